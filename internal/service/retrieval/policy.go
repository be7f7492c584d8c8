package retrieval

// Policy decides whether the best hit is similar enough to be shown at all.
type Policy interface {
	Accept(topScore float64) bool
	Threshold() float64
}

// GlobalThreshold accepts any top score at or above the threshold.
type GlobalThreshold float64

func (g GlobalThreshold) Accept(topScore float64) bool {
	return topScore >= float64(g)
}

func (g GlobalThreshold) Threshold() float64 {
	return float64(g)
}
