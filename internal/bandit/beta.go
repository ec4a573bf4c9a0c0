package bandit

import "math"

// sampleBeta draws one sample from Beta(alpha, beta) using the standard
// two-Gamma construction: if X ~ Gamma(alpha,1) and Y ~ Gamma(beta,1),
// X/(X+Y) ~ Beta(alpha,beta). No suitable statistical-distribution library
// appears anywhere in the reference corpus (no gonum, no stats package),
// so this samples directly off the *rand.Rand the caller supplies rather
// than reaching for an out-of-pack dependency; see DESIGN.md.
func sampleBeta(rng randSource, alpha, beta float64) float64 {
	x := sampleGamma(rng, alpha)
	y := sampleGamma(rng, beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// randSource is the minimal surface sampleGamma needs, satisfied by
// *math/rand/v2.Rand.
type randSource interface {
	Float64() float64
	NormFloat64() float64
}

// sampleGamma draws one sample from Gamma(shape, 1) via Marsaglia & Tsang's
// method (2000), the standard rejection-sampling construction for shape >=
// 1; for shape < 1 it boosts by one and corrects with a uniform power
// transform, the usual trick to keep the same algorithm valid there too.
func sampleGamma(rng randSource, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)

	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()

		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
