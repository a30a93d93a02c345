package digest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumDeterministic(t *testing.T) {
	a := Sum("x=1", "1")
	b := Sum("x=1", "1")
	assert.Equal(t, a, b)
	assert.Len(t, string(a), 64)
}

func TestSumSeparator(t *testing.T) {
	assert.NotEqual(t, Sum("ab", "c"), Sum("a", "bc"))
	assert.NotEqual(t, Sum("", "x"), Sum("x", ""))
}

func TestSumNearDuplicates(t *testing.T) {
	seen := make(map[Digest]string)
	inputs := []string{"x=1", "x=1 ", " x=1", "x=2", "x = 1", "X=1", "x=1\n", "x=１"}
	outputs := []string{"", "1", "1 ", "01", "１", "\x00"}

	for _, in := range inputs {
		for _, out := range outputs {
			d := Sum(in, out)
			key := fmt.Sprintf("%q/%q", in, out)
			if prev, ok := seen[d]; ok {
				t.Fatalf("collision between %s and %s", prev, key)
			}
			seen[d] = key
		}
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	d := Sum("a", "b")

	_, ok := s.Get("c1")
	assert.False(t, ok)
	assert.True(t, s.Changed("c1", d))

	s.Set("c1", d)
	got, ok := s.Get("c1")
	assert.True(t, ok)
	assert.Equal(t, d, got)
	assert.False(t, s.Changed("c1", d))
	assert.True(t, s.Changed("c1", Sum("a", "c")))
	assert.Equal(t, 1, s.Len())

	s.Set("c1", Sum("a", "c"))
	assert.Equal(t, 1, s.Len())
}
