package forecast

import (
	"fmt"
	"strings"

	"cryptoForecast/internal/domain"
)

// CarryForwardPolicy decides the synthetic row appended to the window after each
// prediction. Only the adjusted close is predicted; the policy fills in the rest.
type CarryForwardPolicy interface {
	// Name returns the configuration name of the policy.
	Name() string
	// Next builds the row to append, in scaled units.
	Next(window []domain.FeatureVector, predicted float64) domain.FeatureVector
}

const (
	PolicyFrozen = "frozen"
	PolicyDecay  = "decay"
)

// Frozen repeats the last row verbatim with the adjusted close replaced by the prediction.
// Open, high, low, close and volume stay at their last observed scaled values.
type Frozen struct{}

func (Frozen) Name() string { return PolicyFrozen }

func (Frozen) Next(window []domain.FeatureVector, predicted float64) domain.FeatureVector {
	next := window[len(window)-1]
	next[domain.FieldAdjClose] = predicted
	return next
}

// DecayToMean moves every non-target field from its last value toward the window
// mean by Rate on each step. Rate 0 behaves like Frozen, Rate 1 jumps to the mean.
type DecayToMean struct {
	Rate float64
}

func (DecayToMean) Name() string { return PolicyDecay }

func (d DecayToMean) Next(window []domain.FeatureVector, predicted float64) domain.FeatureVector {
	var mean domain.FeatureVector
	for _, row := range window {
		for i := range row {
			mean[i] += row[i]
		}
	}
	n := float64(len(window))
	last := window[len(window)-1]
	next := last
	for i := range next {
		if domain.Field(i) == domain.FieldAdjClose {
			continue
		}
		next[i] = last[i] + d.Rate*(mean[i]/n-last[i])
	}
	next[domain.FieldAdjClose] = predicted
	return next
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string, decayRate float64) (CarryForwardPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyFrozen:
		return Frozen{}, nil
	case PolicyDecay:
		if decayRate < 0 || decayRate > 1 {
			return nil, fmt.Errorf("decay rate must be between 0 and 1, got %v", decayRate)
		}
		return DecayToMean{Rate: decayRate}, nil
	default:
		return nil, fmt.Errorf("unknown carry-forward policy %q", name)
	}
}
