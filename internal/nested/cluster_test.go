package nested

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClusterLabels_TwoSeparatedGroups(t *testing.T) {
	var pts [][]float64
	for i := 0; i < 10; i++ {
		pts = append(pts, []float64{0.1, 0.4 + 0.01*float64(i)})
	}
	for i := 0; i < 10; i++ {
		pts = append(pts, []float64{0.9, 0.4 + 0.01*float64(i)})
	}
	labels, n := clusterLabels(pts, 3)
	if n != 2 {
		t.Fatalf("clusters=%d labels=%v", n, labels)
	}
	for i := range pts {
		want := 1
		if i >= 10 {
			want = 2
		}
		if labels[i] != want {
			t.Fatalf("point %d label=%d want %d", i, labels[i], want)
		}
	}
}

func TestClusterLabels_SingleBlob(t *testing.T) {
	var pts [][]float64
	for i := 0; i < 16; i++ {
		pts = append(pts, []float64{float64(i%4) * 0.1, float64(i/4) * 0.1})
	}
	if _, n := clusterLabels(pts, 3); n != 1 {
		t.Fatalf("clusters=%d", n)
	}
	if labels, n := clusterLabels(nil, 3); n != 0 || len(labels) != 0 {
		t.Fatalf("empty input: %v %d", labels, n)
	}
}

func TestCarryLabels(t *testing.T) {
	repeat := func(v, n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	cases := []struct {
		name     string
		prev     []int
		comp     []int
		ncomp    int
		want     []int
		wantNext int
	}{
		{"unchanged", repeat(1, 6), repeat(1, 6), 1, repeat(1, 6), 5},
		{"even split gets new labels", repeat(1, 6), []int{1, 1, 1, 2, 2, 2}, 2, []int{5, 5, 5, 6, 6, 6}, 7},
		{"fragment splits off", repeat(1, 9), []int{1, 1, 1, 1, 1, 1, 1, 1, 2}, 2, []int{1, 1, 1, 1, 1, 1, 1, 1, 5}, 6},
		{"merge keeps dominant label", []int{3, 3, 3, 4}, repeat(1, 4), 1, repeat(3, 4), 5},
		{"order of components does not matter", []int{3, 3, 4, 4}, []int{2, 2, 1, 1}, 2, []int{3, 3, 4, 4}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := 5
			got := carryLabels(tc.prev, tc.comp, tc.ncomp, &next)
			if diff := cmp.Diff(tc.want, got); diff != "" || next != tc.wantNext {
				t.Fatalf("labels (-want +got):\n%s next=%d", diff, next)
			}
		})
	}
}

func TestLogHelpers(t *testing.T) {
	if got := logAddExp(math.Log(2), math.Log(3)); math.Abs(got-math.Log(5)) > 1e-12 {
		t.Fatalf("logAddExp=%v", got)
	}
	if got := logAddExp(math.Inf(-1), 1.5); got != 1.5 {
		t.Fatalf("logAddExp(-inf)=%v", got)
	}
	if got := logSumExp([]float64{0, 0, 0, 0}); math.Abs(got-math.Log(4)) > 1e-12 {
		t.Fatalf("logSumExp=%v", got)
	}
	if !math.IsInf(logSumExp(nil), -1) {
		t.Fatalf("logSumExp(nil) should be -Inf")
	}
	if got := log1mExp(math.Log(2)); math.Abs(got-math.Log(0.5)) > 1e-12 {
		t.Fatalf("log1mExp=%v", got)
	}
}
