package validation

import (
	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/layer"
)

// MessageLevel is the severity of a user-facing message.
type MessageLevel int

const (
	MessageInfo MessageLevel = iota
	MessageWarning
)

// Row is one line of the result table. Location is selection payload and
// is not meant to be rendered.
type Row struct {
	FeatureID layer.FeatureID
	Message   string
	Location  *geometry.Point
}

// View is what a UI implements to host the validation presenter. All calls
// are made from the presenter's dispatcher.
type View interface {
	ShowMessage(level MessageLevel, title, text string)
	// Confirm asks a yes/no question and blocks until answered.
	Confirm(title, text string) bool
	SetAcceptEnabled(enabled bool)
	// SetCancelMode switches the close action into a cancel action while a
	// run is active.
	SetCancelMode(running bool)
	SetBusy(busy bool)
	SetProgressRange(min, max int)
	SetProgress(value int)
	ClearRows()
	ShowRows(rows []Row)
}

// LayerSource resolves layer names and loads output layers into the
// application.
type LayerSource interface {
	Layer(name string) (*layer.Layer, bool)
	Load(path string) (*layer.Layer, error)
}

// Dispatcher delivers worker events to the UI. A GUI binding posts fn to
// its event loop; the default runs fn on the calling goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(fn func()) { fn() }
