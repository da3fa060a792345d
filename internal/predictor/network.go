// Package predictor evaluates sequence models exported from the training
// notebooks as plain weight files.
package predictor

import (
	"fmt"
	"math"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"
	"cryptoForecast/internal/utils"
)

// LayerSpec describes one exported layer.
type LayerSpec struct {
	Type                string      `json:"type" yaml:"type"` // lstm, dense, dropout, flatten
	Units               int         `json:"units,omitempty" yaml:"units,omitempty"`
	Activation          string      `json:"activation,omitempty" yaml:"activation,omitempty"`
	RecurrentActivation string      `json:"recurrent_activation,omitempty" yaml:"recurrent_activation,omitempty"`
	ReturnSequences     bool        `json:"return_sequences,omitempty" yaml:"return_sequences,omitempty"`
	Kernel              [][]float64 `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	RecurrentKernel     [][]float64 `json:"recurrent_kernel,omitempty" yaml:"recurrent_kernel,omitempty"`
	Bias                []float64   `json:"bias,omitempty" yaml:"bias,omitempty"`
}

// Document is the on-disk model description.
type Document struct {
	Name     string      `json:"name,omitempty" yaml:"name,omitempty"`
	LookBack int         `json:"look_back" yaml:"look_back"`
	Features int         `json:"features,omitempty" yaml:"features,omitempty"`
	Layers   []LayerSpec `json:"layers" yaml:"layers"`
}

// Sequential is a feed-forward stack of layers producing one scalar per window.
// It holds no per-call state, so Predict is safe for concurrent use.
type Sequential struct {
	name     string
	lookBack int
	layers   []layer
}

var _ ports.Predictor = (*Sequential)(nil)

// Load reads and validates a model file (JSON or YAML).
func Load(path string) (*Sequential, error) {
	var doc Document
	if err := utils.DecodeFile(path, &doc); err != nil {
		return nil, err
	}
	net, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return net, nil
}

// FromDocument builds the network and checks every layer shape against the
// declared look-back and feature count.
func FromDocument(doc Document) (*Sequential, error) {
	if doc.LookBack < 1 {
		return nil, fmt.Errorf("look_back must be positive, got %d", doc.LookBack)
	}
	features := doc.Features
	if features == 0 {
		features = domain.NumFeatures
	}
	if features != domain.NumFeatures {
		return nil, fmt.Errorf("model expects %d features, dataset provides %d", features, domain.NumFeatures)
	}
	if len(doc.Layers) == 0 {
		return nil, fmt.Errorf("model has no layers")
	}

	net := &Sequential{name: doc.Name, lookBack: doc.LookBack}
	steps, width := doc.LookBack, features
	for i, spec := range doc.Layers {
		l, err := buildLayer(spec)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, spec.Type, err)
		}
		steps, width, err = l.outputShape(steps, width)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, spec.Type, err)
		}
		net.layers = append(net.layers, l)
	}
	if width != 1 {
		return nil, fmt.Errorf("model must end in a single output unit, got %d", width)
	}
	return net, nil
}

func buildLayer(spec LayerSpec) (layer, error) {
	switch spec.Type {
	case "lstm":
		units := spec.Units
		if units == 0 {
			units = len(spec.Bias) / 4
		}
		if units < 1 {
			return nil, fmt.Errorf("lstm needs at least one unit")
		}
		act, err := activationByName(spec.Activation, "tanh")
		if err != nil {
			return nil, err
		}
		rec, err := activationByName(spec.RecurrentActivation, "sigmoid")
		if err != nil {
			return nil, err
		}
		return &lstmLayer{
			units:           units,
			kernel:          spec.Kernel,
			recurrentKernel: spec.RecurrentKernel,
			bias:            spec.Bias,
			activation:      act,
			recurrent:       rec,
			returnSequences: spec.ReturnSequences,
		}, nil
	case "dense":
		if spec.Units != 0 && spec.Units != len(spec.Bias) {
			return nil, fmt.Errorf("dense declares %d units but has %d biases", spec.Units, len(spec.Bias))
		}
		if len(spec.Bias) == 0 {
			return nil, fmt.Errorf("dense needs a bias vector")
		}
		act, err := activationByName(spec.Activation, "linear")
		if err != nil {
			return nil, err
		}
		return &denseLayer{kernel: spec.Kernel, bias: spec.Bias, activation: act}, nil
	case "dropout":
		return dropoutLayer{}, nil
	case "flatten":
		return flattenLayer{}, nil
	default:
		return nil, fmt.Errorf("unsupported layer type %q", spec.Type)
	}
}

// Name returns the exported model name.
func (s *Sequential) Name() string { return s.name }

// LookBack returns the window length the model was trained on.
func (s *Sequential) LookBack() int { return s.lookBack }

// Predict runs the window through every layer and returns the single output.
func (s *Sequential) Predict(window []domain.FeatureVector) (float64, error) {
	if len(window) != s.lookBack {
		return 0, fmt.Errorf("window has %d rows, model expects %d", len(window), s.lookBack)
	}
	seq := make([][]float64, len(window))
	for i := range window {
		row := window[i]
		seq[i] = row[:]
	}
	for _, l := range s.layers {
		seq = l.forward(seq)
	}
	out := seq[len(seq)-1][0]
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("model produced non-finite output %v", out)
	}
	return out, nil
}
