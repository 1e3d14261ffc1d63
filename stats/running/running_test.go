package running

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-acs/internal/testutil"
)

func TestAccumulatorMatchesGonum(t *testing.T) {
	x := testutil.NoisyLags(11, 512, 3, 0.25)

	a := Of(x)
	mean, std := stat.MeanStdDev(x, nil)

	testutil.RequireNearlyEqual(t, "mean", a.Mean(), mean, 1e-12)
	testutil.RequireNearlyEqual(t, "std", a.StdDev(), std, 1e-9)
	if a.N() != 512 {
		t.Fatalf("N = %d, want 512", a.N())
	}
}

func TestAccumulatorSlidingWindow(t *testing.T) {
	x := testutil.NoisyLags(5, 300, 0, 1)

	var a Accumulator
	a.AddSlice(x[:200])
	for i := 200; i < len(x); i++ {
		a.Add(x[i])
		a.Remove(x[i-200])
	}

	want := Of(x[100:])
	testutil.RequireNearlyEqual(t, "mean", a.Mean(), want.Mean(), 1e-12)
	testutil.RequireNearlyEqual(t, "std", a.StdDev(), want.StdDev(), 1e-9)
}

func TestAccumulatorMergeEqualsConcatenation(t *testing.T) {
	left := []float64{1, 2, 3}
	right := []float64{10, 11}

	a := Of(left)
	a.Merge(Of(right))
	b := Of(left, right)

	if a.Mean() != b.Mean() || a.StdDev() != b.StdDev() || a.N() != 5 {
		t.Fatalf("merge mismatch: %+v vs %+v", a, b)
	}
}

func TestAccumulatorDegenerate(t *testing.T) {
	var a Accumulator
	if a.Mean() != 0 || a.StdDev() != 0 {
		t.Fatal("empty window must give zeros")
	}
	a.Add(4)
	if a.StdDev() != 0 {
		t.Fatal("single sample must give zero stddev")
	}
	a.Add(4)
	if a.StdDev() != 0 || math.IsNaN(a.StdDev()) {
		t.Fatalf("constant window stddev = %v", a.StdDev())
	}
}

func TestDeviates(t *testing.T) {
	a := Of([]float64{-1, 1, -1, 1})
	if !a.Deviates(10, 6) {
		t.Fatal("expected 10 to deviate")
	}
	if a.Deviates(1, 6) {
		t.Fatal("did not expect 1 to deviate")
	}
}
