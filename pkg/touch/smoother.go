package touch

// Smoother implements an exponential moving average over raw sensor samples
// to suppress electrical noise while staying responsive to real touches.
type Smoother struct {
	value  float64 // Current smoothed value
	alpha  float64 // Smoothing coefficient (0-1]
	seeded bool    // True once the first sample has been observed
}

// NewSmoother creates a smoother with the given coefficient.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Update folds a new raw sample into the moving average and returns the
// smoothed value. The first sample seeds the average as-is, no blending.
func (s *Smoother) Update(raw float64) float64 {
	if !s.seeded {
		s.value = raw
		s.seeded = true
		return s.value
	}

	// Apply exponential moving average
	s.value += s.alpha * (raw - s.value)

	return s.value
}

// Value returns the current smoothed value.
func (s *Smoother) Value() float64 {
	return s.value
}

// Seeded reports whether at least one sample has been observed.
func (s *Smoother) Seeded() bool {
	return s.seeded
}

// SetAlpha updates the smoothing coefficient.
func (s *Smoother) SetAlpha(alpha float64) {
	s.alpha = alpha
}

// Reset clears the smoother state; the next sample seeds it again.
func (s *Smoother) Reset() {
	s.value = 0
	s.seeded = false
}
