package idgen

import "github.com/google/uuid"

// Generator produces and validates one family of identifiers.
type Generator interface {
	Generate() (string, error)
	Validate(id string) (bool, string) // (valid, reason)
}

// SessionID returns a random id for a connection.
func SessionID() string {
	return uuid.NewString()
}
