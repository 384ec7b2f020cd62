package core

// Identity is the current user as known to the external auth provider.
// The chat core only ever reads it; accounts are managed elsewhere.
type Identity struct {
	ID       string
	Username string
	Email    string
}

func (i Identity) IsAnonymous() bool { return i.ID == "" }

// Logger is any leveled logger service.
// Extra args may carry an error, a map of extras or an Identity (reported as
// the acting person where the backend supports it).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
