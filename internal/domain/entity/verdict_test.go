package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVerdict(t *testing.T) {
	t.Run("spam", func(t *testing.T) {
		v := NewVerdict("Win a FREE prize!", true, 0.93, 0.93)

		assert.NotEmpty(t, v.ID)
		assert.True(t, v.IsSpam)
		assert.Equal(t, LabelSpam, v.Label)
		assert.Equal(t, 0.93, v.Confidence)
		assert.Equal(t, 17, v.TextLength)
		assert.Len(t, v.TextSHA256, 64)
	})

	t.Run("ham counts runes", func(t *testing.T) {
		v := NewVerdict("café", false, 0.8, 0.2)

		assert.False(t, v.IsSpam)
		assert.Equal(t, LabelHam, v.Label)
		assert.Equal(t, 4, v.TextLength)
	})

	t.Run("unique ids", func(t *testing.T) {
		a := NewVerdict("x", false, 0.5, 0.5)
		b := NewVerdict("x", false, 0.5, 0.5)

		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, a.TextSHA256, b.TextSHA256)
	})
}

func TestTextDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", TextDigest(""))
	assert.NotEqual(t, TextDigest("spam"), TextDigest("Spam"))
}

func TestVerdictStats_SpamRate(t *testing.T) {
	tests := []struct {
		name     string
		stats    VerdictStats
		expected float64
	}{
		{"empty", VerdictStats{}, 0},
		{"all spam", VerdictStats{Total: 4, SpamCount: 4}, 1},
		{"quarter spam", VerdictStats{Total: 8, SpamCount: 2, HamCount: 6}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.stats.SpamRate(), 0.0001)
		})
	}
}

func TestVerdict_TableName(t *testing.T) {
	assert.Equal(t, "verdicts", Verdict{}.TableName())
}
