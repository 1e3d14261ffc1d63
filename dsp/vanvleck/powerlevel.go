package vanvleck

import "math"

// lowHighSplit separates the two 3-level lag fits.
const lowHighSplit = 0.199

// PowerScale returns the power-level scale factor for a spectrum with the
// given raw zero lag. Unsupported levels and zero lags that produce a
// non-finite or non-positive scale give 1.
func PowerScale(level int, zeroLag float64) float64 {
	var s float64
	switch level {
	case 3:
		s = powerScale3(zeroLag)
	case 9:
		s = powerScale9(zeroLag)
	default:
		return 1
	}
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return 1
	}
	return s
}

// powerScale3 converts the zero lag to the sampler threshold through a
// rational approximation of erfcinv, and the threshold to power.
func powerScale3(zeroLag float64) float64 {
	rows := table(3, BranchPower)
	fudge, offset, numerator := rows[0][0], rows[0][1], rows[0][2]

	x := (1 - zeroLag) / fudge
	p := x*x - offset
	inv := x * horner(rows[1], p) / horner(rows[2], p)
	return numerator / (2 * inv * inv)
}

func powerScale9(zeroLag float64) float64 {
	rows := table(9, BranchPower)
	z := 10 * math.Log10(zeroLag*16/rows[1][0])
	return math.Pow(10, -0.1*horner(rows[0], z))
}

// Normalize applies the power-level lag correction for level in place. On
// return lags[0] is 1 and the remaining lags are corrected correlation
// coefficients. Unsupported levels leave lags untouched.
func Normalize(level int, lags []float64) {
	if len(lags) == 0 {
		return
	}
	switch level {
	case 3:
		normalize3(lags)
	case 9:
		normalize9(lags)
	}
}

func normalize3(lags []float64) {
	zho := lags[0]
	zho2 := zho * zho
	zho3 := zho2 * zho
	zho7 := zho3 * zho3 * zho
	zho8 := zho7 * zho
	zho12 := zho8 * zho3 * zho
	zho17 := zho8 * zho8 * zho

	lo := table(3, BranchLow)
	lc0 := hornerDesc(lo[0], zho) / zho2
	lc1 := hornerDesc(lo[1], zho3-61.0/512) / zho7
	lc2 := hornerDesc(lo[2], zho-63.0/128) / zho8

	hi := table(3, BranchHigh)
	hc0 := hornerDesc(hi[0], zho7) / zho8
	hc1 := hornerDesc(hi[1], zho-63.0/128) / zho8
	hc2 := hornerDesc(hi[2], zho2-31.0/128) / zho12
	hc3 := hornerDesc(hi[3], zho3-61.0/512) / zho17
	hc4 := hornerDesc(hi[4], zho-63.0/128) / zho17

	for i := 1; i < len(lags); i++ {
		x := lags[i]
		// The branch test is signed: negative lags always use the low fit.
		if x > lowHighSplit {
			x3 := x * x * x
			lags[i] = x * (x3*(x3*(x3*(x3*hc3+hc4)+hc2)+hc1) + hc0)
			continue
		}
		x2 := x * x
		lags[i] = x * (x2*(x2*lc2+lc1) + lc0)
	}
	lags[0] = 1
}

// normalize9 leaves the lags relative to the zero lag. Callers scale by
// PowerScale afterwards, so multiplying back by the zero lag here would
// apply the power twice.
func normalize9(lags []float64) {
	zho := lags[0]
	zl := zho * 16

	a0 := horner(table(9, BranchA0)[0], zl)

	var a1 float64
	switch {
	case zl > 4.50:
		a1 = horner(table(9, BranchA1High)[0], zl)
	case zl < 2.10:
		a1 = horner(table(9, BranchA1Low)[0], zl)
	default:
		a1 = horner(table(9, BranchA1Mid)[0], zl)
	}

	a2rows := table(9, BranchA2Low)
	if zl > 2.00 {
		a2rows = table(9, BranchA2High)
	}
	a2 := a2rows[1][0]/zl + horner(a2rows[0], zl)

	a3 := horner(table(9, BranchA3Low)[0], zl)
	if zl > 3.15 {
		a3 = horner(table(9, BranchA3High)[0], zl)
	}

	var a4 float64
	switch {
	case zl > 4.00:
		a4 = horner(table(9, BranchA4High)[0], zl)
	case zl < 2.2:
		a4 = horner(table(9, BranchA4Low)[0], zl)
	default:
		a4 = horner(table(9, BranchA4Mid)[0], zl)
	}

	for i := 1; i < len(lags); i++ {
		r := lags[i] / zho
		lags[i] = ((((a4*r+a3)*r+a2)*r+a1)*r + a0) * r
	}
	lags[0] = 1
}
