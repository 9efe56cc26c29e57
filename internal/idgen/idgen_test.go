package idgen_test

import (
	"regexp"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/idgen"
)

func TestMeetingIDGenerator(t *testing.T) {
	g := idgen.NewMeetingIDGenerator()
	pattern := regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)

	for i := 0; i < 100; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)

		ok, reason := g.Validate(id)
		assert.True(t, ok, reason)
	}
}

func TestMeetingIDGenerator_Validate(t *testing.T) {
	g := idgen.NewMeetingIDGenerator()

	tests := []struct {
		id   string
		want bool
	}{
		{"123-456-7890", true},
		{"1234567890", false},
		{"123-456-789", false},
		{"12a-456-7890", false},
		{"123-4567-890", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			ok, _ := g.Validate(tt.id)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestNewNanoIDGenerator_Bounds(t *testing.T) {
	_, err := idgen.NewNanoIDGenerator(0, idgen.AlphabetDigits)
	assert.Error(t, err)

	_, err = idgen.NewNanoIDGenerator(8, "x")
	assert.Error(t, err)

	g, err := idgen.NewNanoIDGenerator(8, "ab")
	require.NoError(t, err)
	id, err := g.Generate()
	require.NoError(t, err)
	assert.Regexp(t, `^[ab]{8}$`, id)
}

func TestULIDGenerator_Monotonic(t *testing.T) {
	g := idgen.NewULIDGenerator()

	ids := make([]string, 1000)
	for i := range ids {
		id, err := g.Generate()
		require.NoError(t, err)
		ok, reason := g.Validate(id)
		require.True(t, ok, reason)
		ids[i] = id
	}

	assert.True(t, sort.StringsAreSorted(ids))
	for i := 1; i < len(ids); i++ {
		assert.NotEqual(t, ids[i-1], ids[i])
	}
}

func TestSecrets(t *testing.T) {
	pw, err := idgen.Password()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-zA-Z]{6}$`, pw)

	token, err := idgen.GuestToken()
	require.NoError(t, err)
	assert.Len(t, token, idgen.GuestTokenSize)

	other, err := idgen.GuestToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	assert.NotEqual(t, idgen.SessionID(), idgen.SessionID())
}
