package indicator

// LinearSlope returns the least-squares regression slope of the values
// against their indexes. An empty or constant-x input yields 0.
func LinearSlope(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	xMean := float64(n-1) / 2
	var yMean float64
	for _, v := range values {
		yMean += v
	}
	yMean /= float64(n)

	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
