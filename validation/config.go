package validation

import (
	"errors"

	"github.com/bsaid97/geomcheck/layer"
)

var (
	ErrNoInputLayer   = errors.New("no input layer")
	ErrNoOutputPath   = errors.New("no output path")
	ErrNoEncoding     = errors.New("no output encoding")
	ErrAlreadyStarted = errors.New("worker already started")
	ErrRunInProgress  = errors.New("a validation run is already in progress")
	ErrOutputCreate   = errors.New("cannot create output layer")
	ErrOutputWrite    = errors.New("cannot write output layer")
)

// RunConfig fixes everything a worker run needs. It is not modified after
// the worker starts.
type RunConfig struct {
	Layer        *layer.Layer
	SelectedOnly bool
	// WriteOutput switches the run from returning the error list to
	// writing one point per located error to OutputPath.
	WriteOutput bool
	OutputPath  string
	Encoding    string
}

// Validate reports the first missing setting.
func (c RunConfig) Validate() error {
	switch {
	case c.Layer == nil:
		return ErrNoInputLayer
	case c.WriteOutput && c.OutputPath == "":
		return ErrNoOutputPath
	case c.WriteOutput && c.Encoding == "":
		return ErrNoEncoding
	}
	return nil
}
