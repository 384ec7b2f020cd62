package chat

import "regexp"

var trailingMentionRegex = regexp.MustCompile(`(^|\s)@(\w*)$`)

// ParseMentionQuery extracts the trailing "@partial" token from a composing
// input. ok is false when the text does not end in a mention token.
func ParseMentionQuery(text string) (partial string, ok bool) {
	match := trailingMentionRegex.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[2], true
}

// CommitMention replaces the trailing "@partial" token with "@username "
// (trailing space). Mentions stay plain text tokens; there is no structured
// mention entity or server-side linkage.
func CommitMention(text, username string) string {
	loc := trailingMentionRegex.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}
	// loc[3] is the end of the leading boundary, i.e. the "@" position.
	return text[:loc[3]] + "@" + username + " "
}
