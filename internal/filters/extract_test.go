package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   Level
		wantOK bool
	}{
		{"I'm a Beginner", LevelBeginner, true},
		{"just starting out", LevelBeginner, true},
		{"intermediate", LevelIntermediate, true},
		{"mid", LevelIntermediate, true},
		{"Advanced please", LevelExpert, true},
		{"professional", LevelExpert, true},
		{"any level", LevelAll, true},
		{"I don't mind", LevelAll, true},
		{"doesn't matter", LevelAll, true},
		{"python", "", false},
		{"", "", false},
		// First rule wins: "new" is checked before "advanced".
		{"new to advanced topics", LevelBeginner, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractLevel(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPaidPreference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want PaidPreference
	}{
		{"free only", PaidFree},
		{"no cost please", PaidFree},
		{"zero budget", PaidFree},
		{"0", PaidFree},
		{"paid is fine", PaidOnly},
		{"premium", PaidOnly},
		{"I can buy one", PaidOnly},
		{"both", PaidEither},
		{"either works", PaidEither},
		{"I don't care", PaidEither},
		{"hmm", PaidUnknown},
		// Free is checked before paid.
		{"free or paid", PaidFree},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractPaidPreference(tt.in))
		})
	}
}

func TestPaidPreference_IsPaid(t *testing.T) {
	t.Parallel()

	require.NotNil(t, PaidFree.IsPaid())
	assert.False(t, *PaidFree.IsPaid())
	require.NotNil(t, PaidOnly.IsPaid())
	assert.True(t, *PaidOnly.IsPaid())
	assert.Nil(t, PaidEither.IsPaid())
	assert.Nil(t, PaidUnknown.IsPaid())
	assert.Equal(t, "either", PaidEither.String())
}

func TestExtractPriceRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		min, max *float64
	}{
		{"100 to 500", Float(100), Float(500)},
		{"between 100 and 500", Float(100), Float(500)},
		{"200-800", Float(200), Float(800)},
		{"under 200", Float(0), Float(200)},
		{"less than 50", Float(0), Float(50)},
		{"maximum 300", Float(0), Float(300)},
		{"over 1000", Float(1000), Float(PriceCeiling)},
		{"minimum 20", Float(20), Float(PriceCeiling)},
		{"around 300", Float(0), Float(300)},
		// Inverted ranges are returned as written.
		{"500 to 100", Float(500), Float(100)},
		{"no idea", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			gotMin, gotMax := ExtractPriceRange(tt.in)
			assert.Equal(t, tt.min, gotMin)
			assert.Equal(t, tt.max, gotMax)
		})
	}
}
