// Package models defines the wire types of the dftcalc HTTP API. They are
// shared by the server and by clients, and encode to JSON or MessagePack.
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Float is a float64 that survives JSON: NaN and infinities, which
// encoding/json rejects, are written as null and read back as NaN.
type Float float64

// MarshalJSON writes non-finite values as null.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON reads null as NaN.
func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Source is a point source. L and M are direction cosines, already scaled
// to radians.
type Source struct {
	L         float64 `json:"l"`
	M         float64 `json:"m"`
	Intensity float64 `json:"intensity"`
}

// Visibility is a baseline coordinate in wavelengths.
type Visibility struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
	W float64 `json:"w"`
}

// Brightness is one extracted complex visibility.
type Brightness struct {
	Real      Float `json:"real"`
	Imaginary Float `json:"imag"`
}

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	// Backend selects the execution strategy; empty uses the server default.
	Backend      string       `json:"backend,omitempty"`
	ForceZeroW   bool         `json:"force_zero_w,omitempty"`
	Sources      []Source     `json:"sources"`
	Visibilities []Visibility `json:"visibilities"`
}

// ExtractResponse is the result of POST /extract. Visibilities is in
// request order; it is omitted when Error is set.
type ExtractResponse struct {
	Backend      string       `json:"backend"`
	Duration     string       `json:"duration"`
	DurationMS   float64      `json:"duration_ms"`
	NaNCount     int          `json:"nan_count"`
	Cached       bool         `json:"cached,omitempty"`
	Visibilities []Brightness `json:"visibilities,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// BackendsResponse is the body of GET /backends.
type BackendsResponse struct {
	Backends []string `json:"backends"`
	Default  string   `json:"default"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	// Device describes the host the accelerator backend is emulated on.
	Device string `json:"device,omitempty"`
}
