package chat

// CollageSize is the exact run length rendered as one 2x2 collage unit.
const CollageSize = 4

// Collage is an ephemeral, render-only grouping of exactly 4 consecutive
// image messages from the same container. Never persisted; recomputed on
// every render pass.
type Collage struct {
	Messages []Message
}

// GroupCollages partitions runs of consecutive image messages and emits one
// collage per run of exactly CollageSize. Runs of any other length produce
// no collage: shorter runs render individually, and longer runs are dropped
// from the grouping output entirely, their first four images included.
// Callers must re-derive ungrouped messages (see Ungrouped) or images from
// longer runs disappear from the rendered view. Changing this is a product
// decision.
func GroupCollages(messages []Message) []Collage {
	var collages []Collage
	var run []Message

	flush := func() {
		if len(run) == CollageSize {
			collages = append(collages, Collage{Messages: run})
		}
		run = nil
	}

	for _, m := range messages {
		if m.HasImage() {
			run = append(run, m)
			continue
		}
		flush()
	}
	flush()

	return collages
}

// Ungrouped returns the messages not claimed by any collage, in input order.
func Ungrouped(messages []Message, collages []Collage) []Message {
	grouped := make(map[string]bool, len(collages)*CollageSize)
	for _, c := range collages {
		for _, m := range c.Messages {
			grouped[m.ID] = true
		}
	}

	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if !grouped[m.ID] {
			out = append(out, m)
		}
	}
	return out
}
