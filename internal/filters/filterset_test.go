package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	l, ok := ParseLevel("  Beginner Level ")
	assert.True(t, ok)
	assert.Equal(t, LevelBeginner, l)

	_, ok = ParseLevel("beginner")
	assert.False(t, ok)

	assert.Equal(t, LevelAll, Level("").OrAll())
	assert.Equal(t, LevelAll, Level("guru").OrAll())
	assert.Equal(t, LevelExpert, Level("Expert Level").OrAll())
}

func TestFilterSet_Normalize(t *testing.T) {
	t.Parallel()

	fs := FilterSet{MinPrice: Float(500), MaxPrice: Float(100)}.Normalize()
	assert.Equal(t, LevelAll, fs.Level)
	assert.NotNil(t, fs.Keywords)
	assert.Equal(t, Float(100), fs.MinPrice)
	assert.Equal(t, Float(500), fs.MaxPrice)

	fs = FilterSet{MinPrice: Float(-5)}.Normalize()
	assert.Equal(t, Float(0), fs.MinPrice)
}

func TestFilterSet_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := FilterSet{Keywords: []string{"python"}, IsPaid: Bool(true), MaxPrice: Float(200)}
	cp := orig.Clone()
	cp.Keywords[0] = "java"
	*cp.IsPaid = false
	*cp.MaxPrice = 1

	assert.Equal(t, "python", orig.Keywords[0])
	assert.True(t, *orig.IsPaid)
	assert.InDelta(t, 200.0, *orig.MaxPrice, 1e-9)
}

func TestFilterSet_HasConstraint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fs   FilterSet
		want bool
	}{
		{"default", Default(), false},
		{"level", FilterSet{Level: LevelBeginner}, true},
		{"paid false", FilterSet{IsPaid: Bool(false)}, true},
		{"max price", FilterSet{MaxPrice: Float(200)}, true},
		{"zero min only", FilterSet{MinPrice: Float(0)}, false},
		{"keywords only", FilterSet{Keywords: []string{"go"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.fs.HasConstraint())
		})
	}
}

func TestOverrides_Apply(t *testing.T) {
	t.Parallel()

	level := LevelIntermediate
	base := FilterSet{Keywords: []string{"excel"}, Level: LevelAll, IsPaid: Bool(false)}

	assert.True(t, Overrides{}.IsZero())
	assert.Equal(t, base.Normalize(), Overrides{}.Apply(base).Normalize())

	out := Overrides{Level: &level, IsPaid: Bool(true), MaxPrice: Float(300)}.Apply(base)
	assert.Equal(t, []string{"excel"}, out.Keywords)
	assert.Equal(t, LevelIntermediate, out.Level)
	assert.True(t, *out.IsPaid)
	assert.Nil(t, out.MinPrice)
	assert.InDelta(t, 300.0, *out.MaxPrice, 1e-9)
	assert.False(t, *base.IsPaid, "Apply must not mutate its input")
}
