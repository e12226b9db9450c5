package core

import (
	"math"
	"strconv"
	"strings"
)

// Peptide is one row of the annotation table: a peptide sequence, its
// zero-or-more directly annotated term identifiers, and one intensity
// slot per sample column. Missing intensities are encoded as NaN;
// a measured zero stays zero. The two are never conflated.
type Peptide struct {
	ID          string
	Terms       []string
	Intensities []float64
}

// Missing reports whether an intensity slot holds no measurement.
func Missing(v float64) bool {
	return math.IsNaN(v)
}

// MissingValue returns the in-memory encoding of a missing intensity.
func MissingValue() float64 {
	return math.NaN()
}

// ParseIntensity parses one intensity token. Empty, "NA", and "NaN"
// (any case) are missing; everything else must be a non-negative
// number.
func ParseIntensity(tok string) (float64, error) {
	tok = strings.TrimSpace(tok)
	switch strings.ToLower(tok) {
	case "", "na", "nan":
		return MissingValue(), nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingValue(), nil
	}
	if v < 0 {
		return 0, &ValueError{Token: tok, Reason: "intensity must be non-negative"}
	}
	return v, nil
}

// ValueError reports a malformed input value.
type ValueError struct {
	Token  string
	Reason string
}

func (e *ValueError) Error() string {
	return "invalid value '" + e.Token + "': " + e.Reason
}
