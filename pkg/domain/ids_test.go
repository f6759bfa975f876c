package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserID(t *testing.T) {
	t.Run("round-trips a valid UUID", func(t *testing.T) {
		raw := uuid.New().String()
		parsed, err := ParseUserID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
		assert.False(t, parsed.IsNil())
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, input := range []string{"", "not-a-uuid", "'; DROP TABLE users;--"} {
			_, err := ParseUserID(input)
			assert.Error(t, err, "input %q", input)
		}
	})

	t.Run("nil UUID parses but reports nil", func(t *testing.T) {
		parsed, err := ParseUserID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, parsed.IsNil())
	})
}

func TestNewAnalysisID(t *testing.T) {
	a := NewAnalysisID()
	b := NewAnalysisID()
	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
}

// The wrappers share one underlying validation; this pins that they never
// drift apart.
func FuzzParseIDsConsistent(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		userID, errUser := ParseUserID(input)
		_, errChild := ParseChildID(input)
		_, errAnalysis := ParseAnalysisID(input)

		if (errUser == nil) != (errChild == nil) || (errUser == nil) != (errAnalysis == nil) {
			t.Errorf("inconsistent parsing for %q", input)
		}
		if errUser == nil {
			roundTrip, err := ParseUserID(userID.String())
			if err != nil {
				t.Errorf("valid ID failed round-trip: %v", err)
			}
			if roundTrip != userID {
				t.Error("round-trip changed the value")
			}
		}
	})
}
