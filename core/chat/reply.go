package chat

// ResolveReply resolves a message's reply back-reference against the local
// list (O(n) scan, no index). A missing target (e.g. purged) resolves to
// nil: expected absence, not an error.
func ResolveReply(messages []Message, m Message) *Message {
	if m.ReplyToMessageID == "" {
		return nil
	}
	for i := range messages {
		if messages[i].ID == m.ReplyToMessageID {
			return &messages[i]
		}
	}
	return nil
}

type (
	// ForwardFailure records one destination that could not be written.
	ForwardFailure struct {
		Destination Container `json:"destination"`
		Error       string    `json:"error"`
	}

	// ForwardResult carries per-destination outcomes so callers can surface
	// partial failure instead of masking it behind one aggregate toast.
	ForwardResult struct {
		Sent   []Message        `json:"sent"`
		Failed []ForwardFailure `json:"failed"`
	}
)

func (r ForwardResult) AllSucceeded() bool { return len(r.Failed) == 0 }
