package predictor

import (
	"fmt"
	"math"
)

// layer transforms a sequence of vectors (time steps × width) into another sequence.
type layer interface {
	forward(seq [][]float64) [][]float64
	// outputShape reports the shape produced for an input of steps × width.
	outputShape(steps, width int) (int, int, error)
}

type activation func(float64) float64

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
func relu(x float64) float64    { return math.Max(0, x) }
func linear(x float64) float64  { return x }

func hardSigmoid(x float64) float64 {
	return math.Max(0, math.Min(1, 0.2*x+0.5))
}

func activationByName(name, fallback string) (activation, error) {
	if name == "" {
		name = fallback
	}
	switch name {
	case "linear":
		return linear, nil
	case "relu":
		return relu, nil
	case "tanh":
		return math.Tanh, nil
	case "sigmoid":
		return sigmoid, nil
	case "hard_sigmoid":
		return hardSigmoid, nil
	default:
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
}

// lstmLayer follows the Keras LSTM cell: gates ordered input, forget, cell, output.
type lstmLayer struct {
	units           int
	kernel          [][]float64 // input width × 4*units
	recurrentKernel [][]float64 // units × 4*units
	bias            []float64   // 4*units
	activation      activation
	recurrent       activation
	returnSequences bool
}

func (l *lstmLayer) outputShape(steps, width int) (int, int, error) {
	gates := 4 * l.units
	if len(l.kernel) != width {
		return 0, 0, fmt.Errorf("lstm kernel has %d rows, input width is %d", len(l.kernel), width)
	}
	if err := checkRows("lstm kernel", l.kernel, gates); err != nil {
		return 0, 0, err
	}
	if len(l.recurrentKernel) != l.units {
		return 0, 0, fmt.Errorf("lstm recurrent kernel has %d rows, want %d", len(l.recurrentKernel), l.units)
	}
	if err := checkRows("lstm recurrent kernel", l.recurrentKernel, gates); err != nil {
		return 0, 0, err
	}
	if len(l.bias) != gates {
		return 0, 0, fmt.Errorf("lstm bias has %d values, want %d", len(l.bias), gates)
	}
	if l.returnSequences {
		return steps, l.units, nil
	}
	return 1, l.units, nil
}

func (l *lstmLayer) forward(seq [][]float64) [][]float64 {
	u := l.units
	h := make([]float64, u)
	c := make([]float64, u)
	z := make([]float64, 4*u)

	var out [][]float64
	if l.returnSequences {
		out = make([][]float64, 0, len(seq))
	}
	for _, x := range seq {
		copy(z, l.bias)
		accumulate(z, x, l.kernel)
		accumulate(z, h, l.recurrentKernel)
		for k := 0; k < u; k++ {
			i := l.recurrent(z[k])
			f := l.recurrent(z[u+k])
			g := l.activation(z[2*u+k])
			o := l.recurrent(z[3*u+k])
			c[k] = f*c[k] + i*g
			h[k] = o * l.activation(c[k])
		}
		if l.returnSequences {
			out = append(out, append([]float64(nil), h...))
		}
	}
	if !l.returnSequences {
		out = [][]float64{h}
	}
	return out
}

// denseLayer applies the same affine map to every time step.
type denseLayer struct {
	kernel     [][]float64 // input width × units
	bias       []float64
	activation activation
}

func (l *denseLayer) outputShape(steps, width int) (int, int, error) {
	if len(l.kernel) != width {
		return 0, 0, fmt.Errorf("dense kernel has %d rows, input width is %d", len(l.kernel), width)
	}
	if err := checkRows("dense kernel", l.kernel, len(l.bias)); err != nil {
		return 0, 0, err
	}
	return steps, len(l.bias), nil
}

func (l *denseLayer) forward(seq [][]float64) [][]float64 {
	out := make([][]float64, len(seq))
	for t, x := range seq {
		y := append([]float64(nil), l.bias...)
		accumulate(y, x, l.kernel)
		for j := range y {
			y[j] = l.activation(y[j])
		}
		out[t] = y
	}
	return out
}

// flattenLayer concatenates all time steps into one vector.
type flattenLayer struct{}

func (flattenLayer) outputShape(steps, width int) (int, int, error) {
	return 1, steps * width, nil
}

func (flattenLayer) forward(seq [][]float64) [][]float64 {
	var flat []float64
	for _, x := range seq {
		flat = append(flat, x...)
	}
	return [][]float64{flat}
}

// dropoutLayer is a no-op at inference time.
type dropoutLayer struct{}

func (dropoutLayer) outputShape(steps, width int) (int, int, error) { return steps, width, nil }
func (dropoutLayer) forward(seq [][]float64) [][]float64            { return seq }

// accumulate adds x·w to dst.
func accumulate(dst, x []float64, w [][]float64) {
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		row := w[i]
		for j := range dst {
			dst[j] += xi * row[j]
		}
	}
}

func checkRows(name string, m [][]float64, width int) error {
	for i, row := range m {
		if len(row) != width {
			return fmt.Errorf("%s row %d has %d values, want %d", name, i, len(row), width)
		}
	}
	return nil
}
