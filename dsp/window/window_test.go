package window

import (
	"math"
	"testing"
)

func TestLagKernelMatchesRaisedCosine(t *testing.T) {
	tests := []struct {
		typ  Type
		a, b float64
	}{
		{TypeHanning, 0.5, 0.5},
		{TypeHamming, 0.46, 0.54},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			const nlags = 16
			k, err := LagKernel(tt.typ, nlags)
			if err != nil {
				t.Fatalf("LagKernel: %v", err)
			}
			if len(k) != nlags {
				t.Fatalf("len=%d, want %d", len(k), nlags)
			}
			for i, v := range k {
				want := tt.b + tt.a*math.Cos(math.Pi*float64(i)/nlags)
				if !almostEqual(v, want, 1e-12) {
					t.Fatalf("kernel[%d]=%v, want %v", i, v, want)
				}
			}
		})
	}
}

func TestLagKernelNoneIsUnity(t *testing.T) {
	k, err := LagKernel(TypeNone, 4)
	if err != nil {
		t.Fatalf("LagKernel: %v", err)
	}
	for i, v := range k {
		if v != 1 {
			t.Fatalf("kernel[%d]=%v, want 1", i, v)
		}
	}
}

func TestLagKernelRejectsEmpty(t *testing.T) {
	if _, err := LagKernel(TypeHanning, 0); err == nil {
		t.Fatal("expected error for zero lags")
	}
}

func TestEdgeWeight(t *testing.T) {
	if got := TypeHanning.EdgeWeight(); got != 0 {
		t.Fatalf("hanning edge weight=%v, want 0", got)
	}
	if got := TypeHamming.EdgeWeight(); !almostEqual(got, 0.08, 1e-12) {
		t.Fatalf("hamming edge weight=%v, want 0.08", got)
	}
	if got := TypeNone.EdgeWeight(); got != 0 {
		t.Fatalf("none edge weight=%v, want 0", got)
	}
}

func TestSmootherCachesKernelPerLength(t *testing.T) {
	s := NewSmoother(TypeHanning)

	k1 := s.Kernel(8)
	k2 := s.Kernel(8)
	if &k1[0] != &k2[0] {
		t.Fatal("kernel recomputed for unchanged lag count")
	}

	k3 := s.Kernel(16)
	if len(k3) != 16 {
		t.Fatalf("len=%d, want 16", len(k3))
	}
	if &k1[0] == &k3[0] {
		t.Fatal("kernel not rebuilt after lag count change")
	}
}

func TestSmootherApplyAllSkipsFlagged(t *testing.T) {
	s := NewSmoother(TypeHamming)
	m := [][]float64{
		{1, 1, 1, 1},
		{1, 1, 1, 1},
	}
	s.ApplyAll(m, []bool{false, true})

	for i, v := range m[1] {
		if v != 1 {
			t.Fatalf("skipped spectrum changed at %d: %v", i, v)
		}
	}
	if !almostEqual(m[0][0], 1, 1e-12) {
		t.Fatalf("lag 0 weight=%v, want 1", m[0][0])
	}
	want := 0.54 + 0.46*math.Cos(math.Pi*2/4)
	if !almostEqual(m[0][2], want, 1e-12) {
		t.Fatalf("lag 2=%v, want %v", m[0][2], want)
	}
}

func TestSmootherNoneIsIdentity(t *testing.T) {
	s := NewSmoother(TypeNone)
	lags := []float64{3, 2, 1}
	s.Apply(lags)
	if lags[0] != 3 || lags[1] != 2 || lags[2] != 1 {
		t.Fatalf("identity smoother changed data: %v", lags)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
		err  bool
	}{
		{"Hanning", TypeHanning, false},
		{"hann", TypeHanning, false},
		{"HAMMING", TypeHamming, false},
		{"none", TypeNone, false},
		{"", TypeNone, false},
		{"blackman", TypeNone, true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.err {
			t.Fatalf("ParseType(%q) err=%v, wantErr %v", tt.in, err, tt.err)
		}
		if err == nil && got != tt.want {
			t.Fatalf("ParseType(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateSymmetricHanningEndpoints(t *testing.T) {
	w := Generate(TypeHanning, 5)
	if !almostEqual(w[0], 0, 1e-12) || !almostEqual(w[4], 0, 1e-12) || !almostEqual(w[2], 1, 1e-12) {
		t.Fatalf("unexpected symmetric hanning: %v", w)
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
