package idgen

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	AlphabetDigits       = "0123456789"
	AlphabetAlphanumeric = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	PasswordSize   = 6
	GuestTokenSize = 21
)

// NanoIDGenerator generates NanoID identifiers with configurable size and alphabet.
type NanoIDGenerator struct {
	size     int
	alphabet string
}

// NewNanoIDGenerator creates a new NanoIDGenerator.
// size must be between 1 and 256. alphabet must have at least 2 characters.
func NewNanoIDGenerator(size int, alphabet string) (*NanoIDGenerator, error) {
	if size < 1 || size > 256 {
		return nil, fmt.Errorf("nanoid size must be between 1 and 256, got %d", size)
	}
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("nanoid alphabet must have at least 2 characters, got %d", len(alphabet))
	}
	return &NanoIDGenerator{size: size, alphabet: alphabet}, nil
}

func (g *NanoIDGenerator) Generate() (string, error) {
	id, err := gonanoid.Generate(g.alphabet, g.size)
	if err != nil {
		return "", fmt.Errorf("failed to generate NanoID: %w", err)
	}
	return id, nil
}

func (g *NanoIDGenerator) Validate(id string) (bool, string) {
	if len(id) != g.size {
		return false, fmt.Sprintf("expected length %d, got %d", g.size, len(id))
	}
	for _, c := range id {
		if !strings.ContainsRune(g.alphabet, c) {
			return false, fmt.Sprintf("character '%c' not in alphabet", c)
		}
	}
	return true, ""
}

// MeetingIDGenerator produces human-readable meeting ids: ten random
// digits grouped 3-3-4, e.g. "123-456-7890".
type MeetingIDGenerator struct {
	digits *NanoIDGenerator
}

// NewMeetingIDGenerator creates a MeetingIDGenerator.
func NewMeetingIDGenerator() *MeetingIDGenerator {
	return &MeetingIDGenerator{digits: &NanoIDGenerator{size: 10, alphabet: AlphabetDigits}}
}

func (g *MeetingIDGenerator) Generate() (string, error) {
	d, err := g.digits.Generate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", d[:3], d[3:6], d[6:]), nil
}

func (g *MeetingIDGenerator) Validate(id string) (bool, string) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || len(parts[0]) != 3 || len(parts[1]) != 3 || len(parts[2]) != 4 {
		return false, "expected format DDD-DDD-DDDD"
	}
	return g.digits.Validate(strings.Join(parts, ""))
}

// Password returns a random alphanumeric meeting password.
func Password() (string, error) {
	return gonanoid.Generate(AlphabetAlphanumeric, PasswordSize)
}

// GuestToken returns the token a guest uses to rejoin or leave a meeting.
func GuestToken() (string, error) {
	return gonanoid.New(GuestTokenSize)
}
