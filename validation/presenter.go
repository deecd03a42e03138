package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/layer"
	"go.uber.org/zap"
)

// Lifecycle topics published on the presenter's bus.
const (
	TopicRunStarted  = "validation:started"
	TopicRunFinished = "validation:finished"
)

const (
	// featureMargin expands a feature's bounding box when framing it.
	featureMargin = 1.05
	// errorWindow is the share of the current extent kept around an error
	// location.
	errorWindow = 0.5
)

// RunSummary is the payload of lifecycle notifications.
type RunSummary struct {
	RunID    string
	Layer    string
	Outcome  string
	Features int
	Errors   int
	Err      error
}

// Input is what the user filled in before pressing OK.
type Input struct {
	LayerName    string
	SelectedOnly bool
	WriteOutput  bool
	OutputPath   string
	Encoding     string
}

// Presenter is the controller of the "check geometry validity" dialog. It
// owns at most one worker at a time and the error marker.
type Presenter struct {
	view       View
	canvas     Canvas
	layers     LayerSource
	marker     *Marker
	dispatcher Dispatcher
	publisher  bus.Publisher
	log        *zap.Logger
	workerOpts []Option

	mu      sync.Mutex
	worker  *Worker
	cfg     RunConfig
	running bool
	pumps   sync.WaitGroup

	// rowsLayer is the layer rows were found in. A write run replaces cfg
	// but leaves the rows of the last table run on screen.
	rows      []Row
	rowsLayer *layer.Layer
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithDispatcher sets how worker events reach the view.
func WithDispatcher(d Dispatcher) PresenterOption {
	return func(p *Presenter) { p.dispatcher = d }
}

// WithPublisher sets the bus that receives lifecycle notifications.
func WithPublisher(pub bus.Publisher) PresenterOption {
	return func(p *Presenter) { p.publisher = pub }
}

// WithPresenterLogger sets the presenter's logger. Workers get it too
// unless WithWorkerOptions overrides it.
func WithPresenterLogger(log *zap.Logger) PresenterOption {
	return func(p *Presenter) { p.log = log }
}

// WithWorkerOptions passes options to every worker the presenter starts.
func WithWorkerOptions(opts ...Option) PresenterOption {
	return func(p *Presenter) { p.workerOpts = append(p.workerOpts, opts...) }
}

// NewPresenter binds a presenter to its view, canvas and layer source and
// puts the view in its initial state.
func NewPresenter(view View, canvas Canvas, layers LayerSource, opts ...PresenterOption) *Presenter {
	p := &Presenter{
		view:       view,
		canvas:     canvas,
		layers:     layers,
		marker:     NewMarker(canvas),
		dispatcher: inlineDispatcher{},
		publisher:  &bus.NoopBus{},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.view.SetProgress(0)
	p.view.SetCancelMode(false)
	p.view.SetAcceptEnabled(true)
	return p
}

// Accept checks the input and starts a run. Missing settings are shown to
// the user and returned; no worker is started for them.
func (p *Presenter) Accept(ctx context.Context, in Input) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrRunInProgress
	}

	l, ok := p.layers.Layer(in.LayerName)
	if in.LayerName == "" || !ok {
		p.view.ShowMessage(MessageInfo, "Error!", "Please specify input vector layer")
		return fmt.Errorf("%w: %q", ErrNoInputLayer, in.LayerName)
	}
	if in.WriteOutput && in.OutputPath == "" {
		p.view.ShowMessage(MessageInfo, "Error!", "Please specify output shapefile")
		return ErrNoOutputPath
	}
	if in.WriteOutput && in.Encoding == "" {
		p.view.ShowMessage(MessageInfo, "Error!", "Please specify output encoding")
		return ErrNoEncoding
	}

	cfg := RunConfig{
		Layer:        l,
		SelectedOnly: in.SelectedOnly,
		WriteOutput:  in.WriteOutput,
		OutputPath:   in.OutputPath,
		Encoding:     in.Encoding,
	}
	if !cfg.WriteOutput {
		p.rows, p.rowsLayer = nil, nil
		p.marker.Reset()
		p.view.ClearRows()
	}

	w, err := NewWorker(cfg, append([]Option{WithLogger(p.log)}, p.workerOpts...)...)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		p.view.ShowMessage(MessageWarning, "Geometry",
			fmt.Sprintf("Error creating output layer:\n%s\n%v", cfg.OutputPath, err))
		return err
	}

	p.worker = w
	p.cfg = cfg
	p.running = true
	p.view.SetAcceptEnabled(false)
	p.view.SetCancelMode(true)
	p.view.SetBusy(true)
	p.publisher.Publish(TopicRunStarted, RunSummary{RunID: w.ID(), Layer: l.Name(), Outcome: StateRunning.String()})

	p.pumps.Add(1)
	go p.pump(w)
	return nil
}

func (p *Presenter) pump(w *Worker) {
	defer p.pumps.Done()

	for ev := range w.Events() {
		p.dispatcher.Dispatch(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.handle(w, ev)
		})
	}
}

func (p *Presenter) handle(w *Worker, ev Event) {
	if w != p.worker {
		return
	}
	switch ev := ev.(type) {
	case RangeEvent:
		p.view.SetProgressRange(ev.Min, ev.Max)
	case ProgressEvent:
		p.view.SetProgress(ev.Count)
	case FinishedEvent:
		p.finish(w, ev)
	}
}

func (p *Presenter) finish(w *Worker, ev FinishedEvent) {
	w.Stop()
	p.running = false
	p.view.SetBusy(false)
	p.view.SetAcceptEnabled(true)
	p.view.SetCancelMode(false)

	summary := RunSummary{
		RunID:    w.ID(),
		Layer:    p.cfg.Layer.Name(),
		Outcome:  ev.Result.Kind.String(),
		Features: len(ev.Result.Errors),
		Errors:   ev.Result.ErrorCount(),
		Err:      ev.Err,
	}
	if ev.Err != nil {
		summary.Outcome = StateFailed.String()
	}
	defer func() { p.publisher.Publish(TopicRunFinished, summary) }()

	if ev.Err != nil {
		p.view.ShowMessage(MessageWarning, "Geometry",
			fmt.Sprintf("Error creating output layer:\n%s\n%v", p.cfg.OutputPath, ev.Err))
		return
	}

	switch ev.Result.Kind {
	case ResultWritten:
		conf := ev.Result.Confirmation
		summary.Errors = conf.Written + conf.Skipped
		extra := ""
		if conf.Skipped > 0 {
			extra = fmt.Sprintf("%d error(s) without location were not written", conf.Skipped)
		}
		question := fmt.Sprintf("Created output layer:\n%s\n%s\n\nWould you like to add the new layer to the map?", conf.Path, extra)
		if !p.view.Confirm("Geometry", question) {
			return
		}
		if _, err := p.layers.Load(conf.Path); err != nil {
			p.log.Warn("failed to load output layer", zap.String("path", conf.Path), zap.Error(err))
			p.view.ShowMessage(MessageWarning, "Geometry", fmt.Sprintf("Error loading output layer:\n%s", conf.Path))
		}
	case ResultErrorList:
		p.rows, p.rowsLayer = rowsOf(ev.Result.Errors), p.cfg.Layer
		p.view.ShowRows(p.rows)
	}
}

func rowsOf(found []FeatureErrors) []Row {
	var rows []Row
	for _, fe := range found {
		for _, e := range fe.Errors {
			rows = append(rows, Row{FeatureID: fe.FeatureID, Message: e.Message, Location: e.Location})
		}
	}
	return rows
}

// Cancel asks the running worker to stop. The view stays busy until the
// worker reports that it has finished.
func (p *Presenter) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running && p.worker != nil {
		p.log.Info("cancelling validation", zap.String("run", p.worker.ID()))
		p.worker.Stop()
	}
}

// Running reports whether a run is active.
func (p *Presenter) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Wait blocks until every event of the started runs has been dispatched.
func (p *Presenter) Wait() {
	p.pumps.Wait()
}

// Rows returns the rows of the last table-mode run.
func (p *Presenter) Rows() []Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Row(nil), p.rows...)
}

// SelectRow follows the focus change in the result table from row prev to
// row curr. The view first returns to the extent saved before the previous
// selection so repeated selections do not stack zoom history.
func (p *Presenter) SelectRow(prev, curr int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if curr < 0 || curr >= len(p.rows) {
		return
	}
	row := p.rows[curr]
	l := p.rowsLayer

	p.canvas.ZoomToPreviousExtent()

	if row.Location != nil {
		at := p.canvas.LayerToMap(l, *row.Location)
		p.marker.SetGeom(at)
		p.canvas.SetExtent(geometry.ScaleAround(p.canvas.Extent(), errorWindow, at))
	} else {
		p.marker.Reset()
		f, ok := l.Feature(row.FeatureID)
		if !ok {
			return
		}
		bounds, ok := geometry.Bounds(f.Geometry)
		if !ok {
			return
		}
		p.canvas.SetExtent(geometry.Scale(p.canvas.LayerExtentToMap(l, bounds), featureMargin))
	}
	p.canvas.Refresh()
}

// Clipboard renders every row as "feature,message" lines.
func (p *Presenter) Clipboard() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	for _, r := range p.rows {
		sb.WriteString(strconv.FormatInt(int64(r.FeatureID), 10))
		sb.WriteByte(',')
		sb.WriteString(r.Message)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Reject closes the dialog without a result.
func (p *Presenter) Reject() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marker.Reset()
}

// Close tears the dialog down: a running worker is told to stop and the
// marker is always released.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.marker.Reset()

	if p.running && p.worker != nil {
		p.worker.Stop()
	}
}
