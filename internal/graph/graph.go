// Package graph ranks the classes of a hull by PageRank over their
// dependency edges.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/classhull/internal/model"
)

// Rank computes PageRank for names over deps, where an edge from Source to
// Target means Source refers to Target. Edges naming unknown classes are
// ignored. With no usable edges every class gets the same rank.
func Rank(names []string, deps []model.Dependency) map[string]float64 {
	if len(names) == 0 {
		return nil
	}

	nodes := make(map[string]struct{}, len(names))
	for _, n := range names {
		nodes[n] = struct{}{}
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, d := range deps {
		if _, ok := nodes[d.Source]; !ok {
			continue
		}
		if _, ok := nodes[d.Target]; !ok {
			continue
		}
		outEdges[d.Source] = append(outEdges[d.Source], d.Target)
		outDegree[d.Source]++
	}

	if len(outEdges) == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks := make(map[string]float64, len(nodes))
		for n := range nodes {
			ranks[n] = uniform
		}
		return ranks
	}

	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

// Apply fills in the Rank of every class in the report.
func Apply(rep *model.HullReport) {
	names := make([]string, len(rep.Classes))
	for i := range rep.Classes {
		names[i] = rep.Classes[i].Name
	}
	ranks := Rank(names, rep.Dependencies)
	for i := range rep.Classes {
		rep.Classes[i].Rank = ranks[rep.Classes[i].Name]
	}
}

// ByRank returns class names ordered by descending rank, ties broken by name.
func ByRank(ranks map[string]float64) []string {
	names := make([]string, 0, len(ranks))
	for n := range ranks {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if ranks[names[i]] != ranks[names[j]] {
			return ranks[names[i]] > ranks[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		// Distribute rank through edges
		for src, targets := range outEdges {
			deg := float64(outDegree[src])
			contrib := alpha * rank[src] / deg
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		// Check convergence
		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
