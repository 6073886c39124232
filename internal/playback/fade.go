package playback

import "time"

// fadeOpacity maps the time left in a fade window to the opacity of the
// slide fading out: 1 at the start of the window, 0 at its end.
func fadeOpacity(left, window time.Duration) float64 {
	if window <= 0 || left >= window {
		return 1
	}
	if left <= 0 {
		return 0
	}
	t := 1 - float64(left)/float64(window)
	return 1 - easeInOutCubic(t)
}

// easeInOutCubic applies smooth easing
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
