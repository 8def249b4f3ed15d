package commitgraph

import (
	"errors"
	"time"
)

// ErrMalformedHistory is returned when no head commit can be determined.
var ErrMalformedHistory = errors.New("malformed history")

// shortIDLen is the abbreviated hash length used for display.
const shortIDLen = 7

// Commit is one commit record as delivered by a transport. Only ID and Parents
// are interpreted; the remaining fields are carried through untouched.
type Commit struct {
	ID        string    `json:"id" yaml:"id"`
	Parents   []string  `json:"parents" yaml:"parents"`
	Author    string    `json:"author,omitempty" yaml:"author,omitempty"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Equal reports whether two commits share the same identity.
func (c Commit) Equal(other Commit) bool {
	return c.ID == other.ID
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

// ShortID abbreviates a commit hash for display.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
