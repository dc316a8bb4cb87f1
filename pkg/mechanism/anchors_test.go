package mechanism

import (
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
)

func TestAnchorSetDedup(t *testing.T) {
	s := NewAnchorSet(0)
	assert.True(t, s.Add(v2.Vec{X: 1, Y: 1}))
	assert.False(t, s.Add(v2.Vec{X: 1 + 5e-6, Y: 1}))
	assert.True(t, s.Add(v2.Vec{X: 1 + 2e-5, Y: 1}))
	assert.True(t, s.Add(v2.Vec{}))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, v2.Vec{X: 1, Y: 1}, s.Points()[0])
}

func TestFarthestPair(t *testing.T) {
	tests := []struct {
		name     string
		pts      []v2.Vec
		from, to v2.Vec
		ok       bool
	}{
		{"empty", nil, v2.Vec{}, v2.Vec{}, false},
		{"single", []v2.Vec{{X: 1}}, v2.Vec{}, v2.Vec{}, false},
		{"pair keeps order", []v2.Vec{{X: 2}, {X: 0}}, v2.Vec{X: 2}, v2.Vec{X: 0}, true},
		{"middle ignored", []v2.Vec{{X: 0.5}, {X: 0}, {X: 2}}, v2.Vec{X: 0}, v2.Vec{X: 2}, true},
		{"tie keeps first", []v2.Vec{{X: 0}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}, v2.Vec{X: 0}, v2.Vec{X: 1, Y: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAnchorSet(DefaultTolerance)
			for _, p := range tt.pts {
				s.Add(p)
			}
			from, to, ok := s.FarthestPair()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestSegmentContains(t *testing.T) {
	seg := newSegment(v2.Vec{X: 1, Y: 1}, 0, 2)
	tests := []struct {
		p    v2.Vec
		want bool
	}{
		{v2.Vec{X: 1, Y: 1}, true},
		{v2.Vec{X: 3, Y: 1}, true},
		{v2.Vec{X: 2, Y: 1 + 5e-6}, true},
		{v2.Vec{X: 2, Y: 1.001}, false},
		{v2.Vec{X: 3.001, Y: 1}, false},
		{v2.Vec{X: 0.999, Y: 1}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, seg.contains(tt.p, DefaultTolerance), "contains(%v)", tt.p)
	}
}
