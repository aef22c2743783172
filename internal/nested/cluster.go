package nested

import "sort"

// clusterLabels partitions points into connected components of their
// k-nearest-neighbour graph. k starts at minK and doubles until the number of
// components stops changing. Labels start at 1 in order of first appearance.
func clusterLabels(pts [][]float64, minK int) ([]int, int) {
	n := len(pts)
	labels := make([]int, n)
	if n == 0 {
		return labels, 0
	}
	if n == 1 {
		labels[0] = 1
		return labels, 1
	}
	neighbours := sortedNeighbours(pts)
	k := max(1, min(minK, n-1))
	prev := components(neighbours, k, labels)
	for k < n-1 {
		k = min(2*k, n-1)
		next := make([]int, n)
		count := components(neighbours, k, next)
		if count == prev {
			return labels, prev
		}
		labels, prev = next, count
	}
	return labels, prev
}

// sortedNeighbours returns, for every point, the other points ordered by
// distance (ties broken by index).
func sortedNeighbours(pts [][]float64) [][]int {
	n := len(pts)
	out := make([][]int, n)
	dist := make([]float64, n)
	for i := range pts {
		order := make([]int, 0, n-1)
		for j := range pts {
			if j == i {
				continue
			}
			dist[j] = sqDist(pts[i], pts[j])
			order = append(order, j)
		}
		sort.SliceStable(order, func(a, b int) bool {
			da, db := dist[order[a]], dist[order[b]]
			if da != db {
				return da < db
			}
			return order[a] < order[b]
		})
		out[i] = order
	}
	return out
}

func components(neighbours [][]int, k int, labels []int) int {
	parent := make([]int, len(neighbours))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i, order := range neighbours {
		for _, j := range order[:k] {
			if a, b := find(i), find(j); a != b {
				parent[max(a, b)] = min(a, b)
			}
		}
	}
	ids := make(map[int]int)
	for i := range neighbours {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids) + 1
			ids[root] = id
		}
		labels[i] = id
	}
	return len(ids)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// keepShare is the share of a label's live points a component must hold to
// keep that label across a recluster.
const keepShare = 2.0 / 3

// carryLabels maps the components of a fresh clustering (ids 1..ncomp) onto
// the labels of the previous epoch. A component keeps the label most of its
// points carried when it holds more than keepShare of that label's points.
// Every other component gets a new label from *next, so a label never names
// two modes: when a mode splits evenly, both parts are new clusters.
func carryLabels(prev, comp []int, ncomp int, next *int) []int {
	size := map[int]int{}
	for _, l := range prev {
		size[l]++
	}
	votes := make([]map[int]int, ncomp+1)
	for i, c := range comp {
		if votes[c] == nil {
			votes[c] = map[int]int{}
		}
		votes[c][prev[i]]++
	}
	mapped := make([]int, ncomp+1)
	taken := map[int]bool{}
	for c := 1; c <= ncomp; c++ {
		best, bestN := 0, 0
		for l, v := range votes[c] {
			if v > bestN || (v == bestN && l < best) {
				best, bestN = l, v
			}
		}
		if best > 0 && !taken[best] && float64(bestN) > keepShare*float64(size[best]) {
			mapped[c] = best
			taken[best] = true
			continue
		}
		mapped[c] = *next
		*next++
	}
	out := make([]int, len(comp))
	for i, c := range comp {
		out[i] = mapped[c]
	}
	return out
}
