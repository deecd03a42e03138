package validation

import (
	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/layer"
)

// FeatureErrors pairs a feature with its geometry errors. Errors is never
// empty.
type FeatureErrors struct {
	FeatureID layer.FeatureID         `json:"featureId" yaml:"feature_id"`
	Errors    []geometry.GeometryError `json:"errors" yaml:"errors"`
}

// ResultKind tells which shape a Result has.
type ResultKind int

const (
	// ResultErrorList carries the errors in memory.
	ResultErrorList ResultKind = iota
	// ResultWritten confirms the errors were written to an output layer.
	ResultWritten
	// ResultCancelled is the empty result of a stopped run.
	ResultCancelled
)

func (k ResultKind) String() string {
	switch k {
	case ResultErrorList:
		return "errors"
	case ResultWritten:
		return "written"
	case ResultCancelled:
		return "cancelled"
	}
	return "unknown"
}

// WriteConfirmation describes the output layer of a write-mode run.
type WriteConfirmation struct {
	Path    string
	Written int
	// Skipped counts errors that had no location and so could not become
	// point features.
	Skipped int
}

// Result is the value produced by a finished run.
type Result struct {
	Kind         ResultKind
	Errors       []FeatureErrors
	Confirmation *WriteConfirmation
}

// ErrorCount returns the number of individual geometry errors in the list.
func (r Result) ErrorCount() int {
	n := 0
	for _, fe := range r.Errors {
		n += len(fe.Errors)
	}
	return n
}
