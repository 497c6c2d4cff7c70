package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMonthKey(t *testing.T) {
	t.Run("truncates full date to month", func(t *testing.T) {
		assert.Equal(t, MonthKey("2024-03"), DeriveMonthKey("2024-03-15"))
	})

	t.Run("exact month string maps to itself", func(t *testing.T) {
		assert.Equal(t, MonthKey("2024-03"), DeriveMonthKey("2024-03"))
	})

	t.Run("short input yields degenerate key", func(t *testing.T) {
		key := DeriveMonthKey("2024")
		assert.Equal(t, MonthKey("2024"), key)
		assert.NotEqual(t, MonthKey("2024-03"), key)
	})

	t.Run("records share a key iff same calendar month", func(t *testing.T) {
		a := DeriveMonthKey("2024-03-01")
		b := DeriveMonthKey("2024-03-31")
		c := DeriveMonthKey("2024-04-01")
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})
}

func TestParseMonthKey(t *testing.T) {
	t.Run("accepts YYYY-MM", func(t *testing.T) {
		key, err := ParseMonthKey("2024-03")
		require.NoError(t, err)
		assert.Equal(t, MonthKey("2024-03"), key)
	})

	t.Run("rejects malformed keys", func(t *testing.T) {
		for _, input := range []string{"", "2024", "2024-3", "2024-13", "2024-00", "24-03", "2024-03-15", "abcd-ef"} {
			_, err := ParseMonthKey(input)
			assert.Error(t, err, "input %q", input)
		}
	})
}

func TestMonthKeyMatches(t *testing.T) {
	key := MonthKey("2024-03")
	assert.True(t, key.Matches("2024-03-15"))
	assert.True(t, key.Matches("2024-03-15T10:00:00"))
	assert.False(t, key.Matches("2024-04-01"))
	assert.False(t, key.Matches("2023-03-15"))
}
