package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/classhull/internal/model"
)

func TestRankUniform(t *testing.T) {
	t.Parallel()

	ranks := Rank([]string{"a.A", "a.B", "a.C"}, nil)

	require.Len(t, ranks, 3)
	for name, r := range ranks {
		assert.InDelta(t, 1.0/3.0, r, 1e-9, name)
	}
}

func TestRankWithEdges(t *testing.T) {
	t.Parallel()

	names := []string{"a.A", "a.B", "a.C"}
	deps := []model.Dependency{
		{Source: "a.A", Target: "a.B"},
		{Source: "a.C", Target: "a.B"},
	}

	ranks := Rank(names, deps)

	// a.B is referenced by both others.
	order := ByRank(ranks)
	assert.Equal(t, "a.B", order[0])
	assert.Greater(t, ranks["a.B"], ranks["a.A"])

	var sum float64
	for _, r := range ranks {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestRankIgnoresForeignEdges(t *testing.T) {
	t.Parallel()

	ranks := Rank([]string{"a.A", "a.B"}, []model.Dependency{
		{Source: "a.A", Target: "java.lang.Object"},
	})
	assert.Equal(t, ranks["a.A"], ranks["a.B"])
	assert.NotContains(t, ranks, "java.lang.Object")
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Rank(nil, nil))
}

func TestByRankTies(t *testing.T) {
	t.Parallel()

	got := ByRank(map[string]float64{"b": 0.5, "a": 0.5, "c": 0.9})
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestApply(t *testing.T) {
	t.Parallel()

	rep := &model.HullReport{
		Start: "a.A",
		Classes: []model.ClassEntry{
			{Name: "a.A"},
			{Name: "a.B"},
		},
		Dependencies: []model.Dependency{{Source: "a.A", Target: "a.B"}},
	}

	Apply(rep)

	assert.Greater(t, rep.Classes[1].Rank, rep.Classes[0].Rank)
	assert.False(t, math.IsNaN(rep.Classes[0].Rank))
	// Discovery order is untouched.
	assert.Equal(t, "a.A", rep.Classes[0].Name)
}
