// Package scaler implements the feature scalers the models were fitted with.
package scaler

import (
	"fmt"
	"math"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"
	"cryptoForecast/internal/utils"
)

const (
	KindMinMax   = "minmax"
	KindStandard = "standard"
	KindIdentity = "identity"
)

// MinMax rescales each feature linearly into FeatureRange, fitted on DataMin/DataMax.
type MinMax struct {
	scale [domain.NumFeatures]float64
	min   [domain.NumFeatures]float64
}

// NewMinMax builds a MinMax scaler. Constant features (max == min) get a unit data range.
func NewMinMax(dataMin, dataMax domain.FeatureVector, rangeMin, rangeMax float64) (*MinMax, error) {
	if rangeMin >= rangeMax {
		return nil, fmt.Errorf("feature range minimum %v must be below maximum %v", rangeMin, rangeMax)
	}
	s := &MinMax{}
	for i := range dataMin {
		dataRange := dataMax[i] - dataMin[i]
		if dataRange == 0 {
			dataRange = 1
		}
		s.scale[i] = (rangeMax - rangeMin) / dataRange
		s.min[i] = rangeMin - dataMin[i]*s.scale[i]
	}
	return s, nil
}

func (s *MinMax) Transform(v domain.FeatureVector) domain.FeatureVector {
	var out domain.FeatureVector
	for i := range v {
		out[i] = v[i]*s.scale[i] + s.min[i]
	}
	return out
}

func (s *MinMax) InverseTransform(v domain.FeatureVector) domain.FeatureVector {
	var out domain.FeatureVector
	for i := range v {
		out[i] = (v[i] - s.min[i]) / s.scale[i]
	}
	return out
}

func (s *MinMax) InvertField(field domain.Field, value float64) float64 {
	if !field.Valid() {
		return math.NaN()
	}
	return (value - s.min[field]) / s.scale[field]
}

// Standard centers each feature on Mean and divides by Scale.
type Standard struct {
	mean  domain.FeatureVector
	scale domain.FeatureVector
}

// NewStandard builds a Standard scaler. Zero scales are treated as one.
func NewStandard(mean, scale domain.FeatureVector) *Standard {
	for i := range scale {
		if scale[i] == 0 {
			scale[i] = 1
		}
	}
	return &Standard{mean: mean, scale: scale}
}

func (s *Standard) Transform(v domain.FeatureVector) domain.FeatureVector {
	var out domain.FeatureVector
	for i := range v {
		out[i] = (v[i] - s.mean[i]) / s.scale[i]
	}
	return out
}

func (s *Standard) InverseTransform(v domain.FeatureVector) domain.FeatureVector {
	var out domain.FeatureVector
	for i := range v {
		out[i] = v[i]*s.scale[i] + s.mean[i]
	}
	return out
}

func (s *Standard) InvertField(field domain.Field, value float64) float64 {
	if !field.Valid() {
		return math.NaN()
	}
	return value*s.scale[field] + s.mean[field]
}

// Identity leaves values untouched.
type Identity struct{}

func (Identity) Transform(v domain.FeatureVector) domain.FeatureVector        { return v }
func (Identity) InverseTransform(v domain.FeatureVector) domain.FeatureVector { return v }

func (Identity) InvertField(field domain.Field, value float64) float64 {
	if !field.Valid() {
		return math.NaN()
	}
	return value
}

// Document is the on-disk scaler description exported next to each model.
type Document struct {
	Kind         string    `json:"kind" yaml:"kind"`
	DataMin      []float64 `json:"data_min,omitempty" yaml:"data_min,omitempty"`
	DataMax      []float64 `json:"data_max,omitempty" yaml:"data_max,omitempty"`
	FeatureRange []float64 `json:"feature_range,omitempty" yaml:"feature_range,omitempty"`
	Mean         []float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// Load reads a scaler document from a JSON or YAML file.
func Load(path string) (ports.Scaler, error) {
	var doc Document
	if err := utils.DecodeFile(path, &doc); err != nil {
		return nil, err
	}
	s, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("scaler %s: %w", path, err)
	}
	return s, nil
}

// FromDocument builds the scaler described by doc.
func FromDocument(doc Document) (ports.Scaler, error) {
	switch doc.Kind {
	case KindMinMax:
		dataMin, err := toVector("data_min", doc.DataMin)
		if err != nil {
			return nil, err
		}
		dataMax, err := toVector("data_max", doc.DataMax)
		if err != nil {
			return nil, err
		}
		rangeMin, rangeMax := 0.0, 1.0
		if len(doc.FeatureRange) != 0 {
			if len(doc.FeatureRange) != 2 {
				return nil, fmt.Errorf("feature_range needs 2 values, got %d", len(doc.FeatureRange))
			}
			rangeMin, rangeMax = doc.FeatureRange[0], doc.FeatureRange[1]
		}
		return NewMinMax(dataMin, dataMax, rangeMin, rangeMax)
	case KindStandard:
		mean, err := toVector("mean", doc.Mean)
		if err != nil {
			return nil, err
		}
		scale, err := toVector("scale", doc.Scale)
		if err != nil {
			return nil, err
		}
		return NewStandard(mean, scale), nil
	case KindIdentity:
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown scaler kind %q", doc.Kind)
	}
}

func toVector(name string, values []float64) (domain.FeatureVector, error) {
	var v domain.FeatureVector
	if len(values) != domain.NumFeatures {
		return v, fmt.Errorf("%s needs %d values, got %d", name, domain.NumFeatures, len(values))
	}
	copy(v[:], values)
	return v, nil
}
