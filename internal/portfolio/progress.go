package portfolio

import "math"

// Progress returns how far down the page the reader has scrolled, in percent.
// A page that fits inside the viewport has nothing left to scroll and counts as
// fully read. The result is always a finite value in [0, 100].
func Progress(scrollY, documentHeight, viewportHeight float64) float64 {
	if !finite(scrollY) || !finite(documentHeight) || !finite(viewportHeight) {
		return 0
	}

	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 {
		return 100
	}

	p := scrollY / scrollable * 100
	switch {
	case !finite(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
