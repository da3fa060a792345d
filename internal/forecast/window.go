package forecast

import "cryptoForecast/internal/domain"

// Window is the fixed-length sequence of scaled feature vectors fed to the predictor.
// Its length never changes after construction.
type Window struct {
	rows []domain.FeatureVector
}

// NewWindow copies rows into a new window.
func NewWindow(rows []domain.FeatureVector) *Window {
	w := &Window{rows: make([]domain.FeatureVector, len(rows))}
	copy(w.rows, rows)
	return w
}

// Len returns the number of rows in the window.
func (w *Window) Len() int {
	return len(w.rows)
}

// Rows exposes the window contents, oldest first. Callers must treat it as read-only.
func (w *Window) Rows() []domain.FeatureVector {
	return w.rows
}

// Last returns the newest row.
func (w *Window) Last() domain.FeatureVector {
	return w.rows[len(w.rows)-1]
}

// Slide drops the oldest row and appends next.
func (w *Window) Slide(next domain.FeatureVector) {
	if len(w.rows) == 0 {
		return
	}
	copy(w.rows, w.rows[1:])
	w.rows[len(w.rows)-1] = next
}
