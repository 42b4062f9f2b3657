// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package retriever

import "math"

// cosine returns dot(a,b)/(|a||b|) accumulated in float64. A zero norm on
// either side yields 0. Callers check len(a) == len(b).
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
