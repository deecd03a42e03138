package validation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/layer"
	"github.com/bsaid97/geomcheck/metrics"
	"github.com/bsaid97/geomcheck/output"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the lifecycle position of a Worker.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Worker validates the features of one layer in a background goroutine.
// A Worker runs once.
type Worker struct {
	id        string
	cfg       RunConfig
	validator geometry.Validator
	log       *zap.Logger

	state   atomic.Int32
	stopped atomic.Bool

	events chan Event
	done   chan struct{}
	result Result
	err    error
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// WithValidator replaces the GEOS validator.
func WithValidator(v geometry.Validator) Option {
	return func(w *Worker) {
		if v != nil {
			w.validator = v
		}
	}
}

// NewWorker checks cfg and returns an idle worker.
func NewWorker(cfg RunConfig, opts ...Option) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Worker{
		id:        uuid.NewString(),
		cfg:       cfg,
		validator: geometry.NewValidator(),
		log:       zap.NewNop(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(zap.String("run", w.id), zap.String("layer", cfg.Layer.Name()))
	return w, nil
}

// ID returns the run id used in logs and lifecycle notifications.
func (w *Worker) ID() string { return w.id }

// Config returns the run configuration.
func (w *Worker) Config() RunConfig { return w.cfg }

// State returns the current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Start snapshots the features and begins the scan in a new goroutine.
// In write mode the output location is checked first; a failure is
// returned here and no goroutine is started. Cancelling ctx has the same
// effect as Stop.
func (w *Worker) Start(ctx context.Context) error {
	if w.State() != StateIdle {
		return ErrAlreadyStarted
	}
	if w.cfg.WriteOutput {
		if err := output.Preflight(w.cfg.OutputPath); err != nil {
			return fmt.Errorf("%w: %w", ErrOutputCreate, err)
		}
	}
	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	var features []*layer.Feature
	if w.cfg.SelectedOnly {
		features = w.cfg.Layer.SelectedFeatures()
	} else {
		features = w.cfg.Layer.Features()
	}
	// One slot per event: range, N+1 progress, finished.
	w.events = make(chan Event, len(features)+3)

	w.log.Info("validation started",
		zap.Int("features", len(features)),
		zap.Bool("selectedOnly", w.cfg.SelectedOnly),
		zap.Bool("writeOutput", w.cfg.WriteOutput))

	go w.run(ctx, features)
	return nil
}

// Events returns the event stream of a started worker. The channel is
// closed after the FinishedEvent. It is nil before Start.
func (w *Worker) Events() <-chan Event { return w.events }

// Stop asks the worker to stop at the next feature boundary. It never
// interrupts a validation in progress and is safe to call from any
// goroutine, any number of times.
func (w *Worker) Stop() {
	w.stopped.Store(true)
}

// Done is closed once the run has finished.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Wait blocks until the run finishes and returns its result.
func (w *Worker) Wait() (Result, error) {
	<-w.done
	return w.result, w.err
}

func (w *Worker) run(ctx context.Context, features []*layer.Feature) {
	defer close(w.done)
	defer close(w.events)

	result, err := w.checkGeometry(ctx, features)
	w.result, w.err = result, err

	switch {
	case err != nil:
		w.state.Store(int32(StateFailed))
		w.log.Error("validation failed", zap.Error(err))
	case result.Kind == ResultCancelled:
		w.state.Store(int32(StateCancelled))
		w.log.Info("validation cancelled")
	default:
		w.state.Store(int32(StateCompleted))
		w.log.Info("validation finished",
			zap.Stringer("result", result.Kind),
			zap.Int("featuresWithErrors", len(result.Errors)),
			zap.Int("errors", result.ErrorCount()))
	}
	w.events <- FinishedEvent{Result: result, Err: err}
}

func (w *Worker) cancelled(ctx context.Context) bool {
	if w.stopped.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (w *Worker) checkGeometry(ctx context.Context, features []*layer.Feature) (Result, error) {
	total := len(features)
	w.events <- RangeEvent{Min: 0, Max: total}
	w.events <- ProgressEvent{Count: 0}

	var found []FeatureErrors
	for i, f := range features {
		if w.cancelled(ctx) {
			return Result{Kind: ResultCancelled}, nil
		}
		switch {
		case f.Defect != nil:
			metrics.FeaturesValidated.Inc()
			metrics.GeometryErrors.Inc()
			found = append(found, FeatureErrors{FeatureID: f.ID, Errors: []geometry.GeometryError{*f.Defect}})
		case f.Geometry != nil && !f.Geometry.IsEmpty():
			metrics.FeaturesValidated.Inc()
			if errs := w.validator.Validate(f.Geometry); len(errs) > 0 {
				metrics.GeometryErrors.Add(float64(len(errs)))
				found = append(found, FeatureErrors{FeatureID: f.ID, Errors: errs})
			}
		}
		w.events <- ProgressEvent{Count: i + 1}
	}

	if !w.cfg.WriteOutput {
		return Result{Kind: ResultErrorList, Errors: found}, nil
	}
	confirmation, err := w.writeErrors(found)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultWritten, Confirmation: confirmation}, nil
}

// writeErrors creates the two-column point layer and writes one point per
// located error. Errors without a location cannot become points and are
// only counted.
func (w *Worker) writeErrors(found []FeatureErrors) (conf *WriteConfirmation, err error) {
	out, err := output.Create(w.cfg.OutputPath, output.ErrorSchema, output.Options{
		Encoding: w.cfg.Encoding,
		CRS:      w.cfg.Layer.CRS(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputCreate, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrOutputWrite, cerr)
		}
	}()

	conf = &WriteConfirmation{Path: w.cfg.OutputPath}
	for _, fe := range found {
		for _, e := range fe.Errors {
			if !e.HasLocation() {
				conf.Skipped++
				continue
			}
			rec := output.Record{X: e.Location.X, Y: e.Location.Y, Values: []any{int64(fe.FeatureID), e.Message}}
			if err := out.Write(rec); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrOutputWrite, err)
			}
		}
	}
	conf.Written = out.Count()
	metrics.ErrorPointsWritten.Add(float64(conf.Written))

	if conf.Skipped > 0 {
		w.log.Warn("errors without location were not written",
			zap.Int("skipped", conf.Skipped),
			zap.String("path", conf.Path))
	}
	return conf, nil
}

// IsConfigError reports whether err is a missing-setting error detected
// before a run starts.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNoInputLayer) || errors.Is(err, ErrNoOutputPath) || errors.Is(err, ErrNoEncoding)
}
