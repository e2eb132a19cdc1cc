package usecase

// minMaxNormalize maps raw backend scores onto [0,1]. When every score is
// identical (single element, all zero, constant list) there is no
// discriminating signal and every score normalizes to 1.0; special-casing
// this also keeps the division well defined.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return []float64{}
	}

	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	out := make([]float64, len(scores))
	if max == min {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}

	span := max - min
	for i, s := range scores {
		out[i] = (s - min) / span
	}
	return out
}
