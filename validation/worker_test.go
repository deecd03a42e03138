package validation_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/layer"
	"github.com/bsaid97/geomcheck/validation"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

func mustWKT(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	require.NoError(t, err)
	return g
}

// fakeValidator reports canned errors per geometry and runs hook before
// answering.
type fakeValidator struct {
	errs  map[*geos.Geom][]geometry.GeometryError
	hook  func(g *geos.Geom)
	calls int
}

func (f *fakeValidator) Validate(g *geos.Geom) []geometry.GeometryError {
	f.calls++
	if f.hook != nil {
		f.hook(g)
	}
	return f.errs[g]
}

func pointLayer(t *testing.T, n int) (*layer.Layer, []*geos.Geom) {
	t.Helper()
	l := layer.New("points")
	geoms := make([]*geos.Geom, n)
	for i := range geoms {
		geoms[i] = mustWKT(t, "POINT (1 1)")
		l.Add(geoms[i], nil)
	}
	return l, geoms
}

func collect(w *validation.Worker) []validation.Event {
	var events []validation.Event
	for ev := range w.Events() {
		events = append(events, ev)
	}
	return events
}

func progress(events []validation.Event) []int {
	var out []int
	for _, ev := range events {
		if p, ok := ev.(validation.ProgressEvent); ok {
			out = append(out, p.Count)
		}
	}
	return out
}

func finished(t *testing.T, events []validation.Event) validation.FinishedEvent {
	t.Helper()
	require.NotEmpty(t, events)
	fin, ok := events[len(events)-1].(validation.FinishedEvent)
	require.True(t, ok, "last event must be FinishedEvent, got %T", events[len(events)-1])
	return fin
}

func TestWorker_ReportsProgressAndErrors(t *testing.T) {
	l, geoms := pointLayer(t, 3)
	v := &fakeValidator{errs: map[*geos.Geom][]geometry.GeometryError{
		geoms[1]: {geometry.At("Self-intersection", 5, 5)},
	}}

	w, err := validation.NewWorker(validation.RunConfig{Layer: l}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	assert.Equal(t, validation.RangeEvent{Min: 0, Max: 3}, events[0])
	assert.Equal(t, []int{0, 1, 2, 3}, progress(events))

	fin := finished(t, events)
	require.NoError(t, fin.Err)
	assert.Equal(t, validation.ResultErrorList, fin.Result.Kind)
	require.Len(t, fin.Result.Errors, 1)
	assert.Equal(t, layer.FeatureID(1), fin.Result.Errors[0].FeatureID)
	assert.Equal(t, "Self-intersection", fin.Result.Errors[0].Errors[0].Message)
	assert.Equal(t, validation.StateCompleted, w.State())

	res, err := w.Wait()
	require.NoError(t, err)
	assert.Equal(t, fin.Result, res)
}

func TestWorker_ErrorsFollowFeatureOrder(t *testing.T) {
	l := layer.New("polygons")
	l.Add(mustWKT(t, "POLYGON ((0 0, 10 10, 10 0, 0 10, 0 0))"), nil)
	l.Add(mustWKT(t, "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"), nil)
	l.Add(mustWKT(t, "POLYGON ((20 20, 30 30, 30 20, 20 30, 20 20))"), nil)

	run := func() validation.Result {
		w, err := validation.NewWorker(validation.RunConfig{Layer: l})
		require.NoError(t, err)
		require.NoError(t, w.Start(context.Background()))
		res, err := w.Wait()
		require.NoError(t, err)
		return res
	}

	first := run()
	require.Len(t, first.Errors, 2)
	assert.Equal(t, layer.FeatureID(0), first.Errors[0].FeatureID)
	assert.Equal(t, layer.FeatureID(2), first.Errors[1].FeatureID)
	require.True(t, first.Errors[0].Errors[0].HasLocation())
	assert.Equal(t, geometry.Point{X: 5, Y: 5}, *first.Errors[0].Errors[0].Location)

	assert.Equal(t, first, run())
}

func TestWorker_SelectedOnly(t *testing.T) {
	l, _ := pointLayer(t, 5)
	l.Select(4, 2)
	v := &fakeValidator{}

	w, err := validation.NewWorker(validation.RunConfig{Layer: l, SelectedOnly: true}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	assert.Equal(t, validation.RangeEvent{Min: 0, Max: 2}, events[0])
	assert.Equal(t, []int{0, 1, 2}, progress(events))
	assert.Equal(t, 2, v.calls)
}

func TestWorker_SkipsEmptyGeometries(t *testing.T) {
	l := layer.New("mixed")
	l.Add(nil, nil)
	l.Add(mustWKT(t, "POLYGON EMPTY"), nil)
	l.Add(mustWKT(t, "POINT (3 4)"), nil)
	v := &fakeValidator{}

	w, err := validation.NewWorker(validation.RunConfig{Layer: l}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	assert.Equal(t, []int{0, 1, 2, 3}, progress(events))
	assert.Equal(t, 1, v.calls)
}

func TestWorker_ReportsLoadDefects(t *testing.T) {
	defect := geometry.At(geometry.MsgTooFewPoints, 2, 3)
	l := layer.New("rings")
	require.NoError(t, l.AddFeature(layer.Feature{ID: 4, Geometry: mustWKT(t, "POINT (1 1)")}))
	require.NoError(t, l.AddFeature(layer.Feature{ID: 9, Defect: &defect}))
	v := &fakeValidator{}

	w, err := validation.NewWorker(validation.RunConfig{Layer: l}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	assert.Equal(t, []int{0, 1, 2}, progress(events))
	assert.Equal(t, 1, v.calls)
	fin := finished(t, events)
	require.NoError(t, fin.Err)
	assert.Equal(t, []validation.FeatureErrors{
		{FeatureID: 9, Errors: []geometry.GeometryError{defect}},
	}, fin.Result.Errors)
}

func TestWorker_StopBetweenFeatures(t *testing.T) {
	l, _ := pointLayer(t, 5)
	var w *validation.Worker
	v := &fakeValidator{}
	v.hook = func(*geos.Geom) {
		if v.calls == 2 {
			w.Stop()
		}
	}

	w, err := validation.NewWorker(validation.RunConfig{Layer: l}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	// The feature being validated when Stop arrives still completes.
	assert.Equal(t, []int{0, 1, 2}, progress(events))
	assert.Equal(t, 2, v.calls)

	fin := finished(t, events)
	require.NoError(t, fin.Err)
	assert.Equal(t, validation.ResultCancelled, fin.Result.Kind)
	assert.Empty(t, fin.Result.Errors)
	assert.Equal(t, validation.StateCancelled, w.State())

	w.Stop()
	assert.Equal(t, validation.StateCancelled, w.State())
}

func TestWorker_ContextCancellation(t *testing.T) {
	l, _ := pointLayer(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := validation.NewWorker(validation.RunConfig{Layer: l}, validation.WithValidator(&fakeValidator{}))
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	events := collect(w)

	assert.Equal(t, []int{0}, progress(events))
	assert.Equal(t, validation.ResultCancelled, finished(t, events).Result.Kind)
}

func TestWorker_ZeroFeatures(t *testing.T) {
	w, err := validation.NewWorker(validation.RunConfig{Layer: layer.New("empty")})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	require.Len(t, events, 3)
	assert.Equal(t, validation.RangeEvent{Min: 0, Max: 0}, events[0])
	assert.Equal(t, validation.ProgressEvent{Count: 0}, events[1])
	fin := finished(t, events)
	assert.Equal(t, validation.ResultErrorList, fin.Result.Kind)
	assert.Empty(t, fin.Result.Errors)
}

func TestWorker_StartTwice(t *testing.T) {
	l, _ := pointLayer(t, 1)
	w, err := validation.NewWorker(validation.RunConfig{Layer: l})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), validation.ErrAlreadyStarted)
	_, err = w.Wait()
	require.NoError(t, err)
}

func TestNewWorker_ConfigErrors(t *testing.T) {
	l := layer.New("points")
	cases := []struct {
		name string
		cfg  validation.RunConfig
		err  error
	}{
		{"no layer", validation.RunConfig{}, validation.ErrNoInputLayer},
		{"no output", validation.RunConfig{Layer: l, WriteOutput: true, Encoding: "UTF-8"}, validation.ErrNoOutputPath},
		{"no encoding", validation.RunConfig{Layer: l, WriteOutput: true, OutputPath: "errors.shp"}, validation.ErrNoEncoding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validation.NewWorker(tc.cfg)
			assert.ErrorIs(t, err, tc.err)
			assert.True(t, validation.IsConfigError(err))
		})
	}
}

func TestWorker_WritesErrorPoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "errors.shp")

	l, geoms := pointLayer(t, 3)
	v := &fakeValidator{errs: map[*geos.Geom][]geometry.GeometryError{
		geoms[0]: {{Message: "Too few points in geometry component"}},
		geoms[2]: {geometry.At("Self-intersection", 10, 20)},
	}}

	w, err := validation.NewWorker(validation.RunConfig{
		Layer:       l,
		WriteOutput: true,
		OutputPath:  path,
		Encoding:    "UTF-8",
	}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	fin := finished(t, events)
	require.NoError(t, fin.Err)
	assert.Equal(t, validation.ResultWritten, fin.Result.Kind)
	require.NotNil(t, fin.Result.Confirmation)
	assert.Equal(t, path, fin.Result.Confirmation.Path)
	assert.Equal(t, 1, fin.Result.Confirmation.Written)
	assert.Equal(t, 1, fin.Result.Confirmation.Skipped)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	fields := r.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "FEAT_ID", strings.TrimRight(fields[0].String(), "\x00"))
	assert.Equal(t, "ERROR", strings.TrimRight(fields[1].String(), "\x00"))

	require.True(t, r.Next())
	_, shape := r.Shape()
	p, ok := shape.(*shp.Point)
	require.True(t, ok)
	assert.Equal(t, 10.0, p.X)
	assert.Equal(t, 20.0, p.Y)
	assert.Equal(t, "2", strings.Trim(r.ReadAttribute(0, 0), " \x00"))
	assert.Equal(t, "Self-intersection", strings.Trim(r.ReadAttribute(0, 1), " \x00"))
	assert.False(t, r.Next())
}

func TestWorker_PreflightFailure(t *testing.T) {
	l, _ := pointLayer(t, 1)
	w, err := validation.NewWorker(validation.RunConfig{
		Layer:       l,
		WriteOutput: true,
		OutputPath:  filepath.Join(t.TempDir(), "missing", "errors.shp"),
		Encoding:    "UTF-8",
	})
	require.NoError(t, err)

	err = w.Start(context.Background())
	assert.ErrorIs(t, err, validation.ErrOutputCreate)
	assert.Equal(t, validation.StateIdle, w.State())
	assert.Nil(t, w.Events())
}

func TestWorker_OutputCreationFailsAfterScan(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.Mkdir(dir, 0o755))

	l, geoms := pointLayer(t, 2)
	v := &fakeValidator{errs: map[*geos.Geom][]geometry.GeometryError{
		geoms[0]: {geometry.At("Self-intersection", 1, 1)},
	}}
	v.hook = func(*geos.Geom) {
		_ = os.RemoveAll(dir)
	}

	w, err := validation.NewWorker(validation.RunConfig{
		Layer:       l,
		WriteOutput: true,
		OutputPath:  filepath.Join(dir, "errors.shp"),
		Encoding:    "UTF-8",
	}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	events := collect(w)

	assert.Equal(t, []int{0, 1, 2}, progress(events))
	fin := finished(t, events)
	assert.ErrorIs(t, fin.Err, validation.ErrOutputCreate)
	assert.Equal(t, validation.StateFailed, w.State())
}

func TestWorker_CancelledRunCreatesNoOutput(t *testing.T) {
	dir := t.TempDir()
	l, _ := pointLayer(t, 3)
	var w *validation.Worker
	v := &fakeValidator{hook: func(*geos.Geom) { w.Stop() }}

	w, err := validation.NewWorker(validation.RunConfig{
		Layer:       l,
		WriteOutput: true,
		OutputPath:  filepath.Join(dir, "errors.shp"),
		Encoding:    "UTF-8",
	}, validation.WithValidator(v))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, validation.ResultCancelled, finished(t, collect(w)).Result.Kind)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
