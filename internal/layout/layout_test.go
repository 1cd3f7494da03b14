package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTripAllTopologies(t *testing.T) {
	cases := []struct {
		topo Topology
		w, h int
	}{
		{RowMajor, 16, 8},
		{ZigzagColumns, 4, 15},
		{Linear, 89, 1},
		{Scattered, 10, 7},
	}
	for _, c := range cases {
		m, err := Build(c.topo, c.w, c.h)
		if err != nil {
			t.Fatalf("%s: %v", c.topo, err)
		}
		seen := make(map[int]bool, m.Count())
		for i := 0; i < m.Count(); i++ {
			x, y := m.ToLogical(i)
			assert.NotEqual(t, Invalid, x, "%s: index %d unmapped", c.topo, i)
			assert.Equal(t, i, m.ToPhysical(x, y), "%s: round trip at %d", c.topo, i)
			assert.False(t, seen[m.ToPhysical(x, y)], "%s: duplicate physical index", c.topo)
			seen[m.ToPhysical(x, y)] = true
		}
	}
}

func TestZigzagKnownIndices(t *testing.T) {
	m, err := Build(ZigzagColumns, 4, 15)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, m.ToPhysical(0, 0))
	assert.Equal(t, 14, m.ToPhysical(0, 14))
	assert.Equal(t, 29, m.ToPhysical(1, 0))
	assert.Equal(t, 15, m.ToPhysical(1, 14))
	assert.Equal(t, 30, m.ToPhysical(2, 0))
	assert.Equal(t, 59, m.ToPhysical(3, 0))
}

func TestLinearIsIdentity(t *testing.T) {
	m, err := Build(Linear, 50, 1)
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 50; x++ {
		assert.Equal(t, x, m.ToPhysical(x, 0))
	}
}

func TestLinearRejectsTallGrid(t *testing.T) {
	_, err := Build(Linear, 10, 2)
	assert.Error(t, err)
}

func TestScatteredStableAcrossBuilds(t *testing.T) {
	a, err := BuildSeeded(Scattered, 8, 8, 99)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildSeeded(Scattered, 8, 8, 99)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			assert.Equal(t, a.ToPhysical(x, y), b.ToPhysical(x, y))
		}
	}

	c, err := BuildSeeded(Scattered, 8, 8, 100)
	if err != nil {
		t.Fatal(err)
	}
	diff := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if a.ToPhysical(x, y) != c.ToPhysical(x, y) {
				diff++
			}
		}
	}
	assert.Greater(t, diff, 0, "different seeds should permute differently")
}

func TestOutOfRangeReturnsSentinel(t *testing.T) {
	m, err := Build(RowMajor, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, Invalid, m.ToPhysical(-1, 0))
	assert.Equal(t, Invalid, m.ToPhysical(4, 0))
	assert.Equal(t, Invalid, m.ToPhysical(0, 4))
	x, y := m.ToLogical(-1)
	assert.Equal(t, Invalid, x)
	assert.Equal(t, Invalid, y)
	x, y = m.ToLogical(16)
	assert.Equal(t, Invalid, x)
	assert.Equal(t, Invalid, y)
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := Build(RowMajor, 0, 4)
	assert.Error(t, err)
	_, err = Build(Topology("spiral"), 4, 4)
	assert.Error(t, err)
}

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology("zigzag-columns")
	assert.NoError(t, err)
	assert.Equal(t, ZigzagColumns, topo)
	_, err = ParseTopology("bogus")
	assert.Error(t, err)
}
