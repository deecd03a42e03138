package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/layer"
	"github.com/bsaid97/geomcheck/output"
	"github.com/bsaid97/geomcheck/utils"
	"github.com/bsaid97/geomcheck/validation"
	"go.uber.org/zap"
)

type Error struct {
	Ref          int64           `json:"ref"`
	ErrorMessage string          `json:"errorMessage"`
	Location     *geometry.Point `json:"location,omitempty"`
}

// CheckGeometry runs one validation and waits for its result. Lifecycle
// notifications go to pub.
func CheckGeometry(ctx context.Context, cfg validation.RunConfig, log *zap.Logger, pub bus.Publisher) (validation.Result, error) {
	w, err := validation.NewWorker(cfg, validation.WithLogger(log))
	if err != nil {
		return validation.Result{}, err
	}
	if err := w.Start(ctx); err != nil {
		return validation.Result{}, err
	}
	pub.Publish(validation.TopicRunStarted, validation.RunSummary{
		RunID: w.ID(), Layer: cfg.Layer.Name(), Outcome: validation.StateRunning.String(),
	})

	res, err := w.Wait()
	summary := validation.RunSummary{
		RunID:    w.ID(),
		Layer:    cfg.Layer.Name(),
		Outcome:  res.Kind.String(),
		Features: len(res.Errors),
		Errors:   res.ErrorCount(),
		Err:      err,
	}
	if err != nil {
		summary.Outcome = validation.StateFailed.String()
	}
	if res.Confirmation != nil {
		summary.Errors = res.Confirmation.Written + res.Confirmation.Skipped
	}
	pub.Publish(validation.TopicRunFinished, summary)
	return res, err
}

// Errors flattens a result into one entry per geometry error.
func Errors(res validation.Result) []Error {
	errs := make([]Error, 0, res.ErrorCount())
	for _, fe := range res.Errors {
		for _, e := range fe.Errors {
			errs = append(errs, Error{Ref: int64(fe.FeatureID), ErrorMessage: e.Message, Location: e.Location})
		}
	}
	return errs
}

// requestLayer parses the GeoJSON payload and applies the selected query
// parameter.
func requestLayer(r *http.Request) (*layer.Layer, bool, error) {
	payload, err := readPayload(r)
	if err != nil {
		return nil, false, err
	}
	l, err := layer.ReadGeoJSON("request", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}

	selected := r.URL.Query().Get("selected")
	if selected == "" {
		return l, false, nil
	}
	ids, err := utils.ParseIDs(selected)
	if err != nil {
		return nil, false, err
	}
	for _, id := range ids {
		l.Select(layer.FeatureID(id))
	}
	return l, true, nil
}

func (s *Server) checkGeometryHandler(w http.ResponseWriter, r *http.Request) {
	l, selectedOnly, err := requestLayer(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
		return
	}
	s.log.Info("check geometry request", zap.Int("features", l.Len()), zap.Bool("selectedOnly", selectedOnly))

	res, err := CheckGeometry(r.Context(), validation.RunConfig{Layer: l, SelectedOnly: selectedOnly}, s.log, s.bus)
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: Geometry check failed: %v", err), http.StatusInternalServerError)
		return
	}
	sendJSON(w, Errors(res))
}

// checkGeometryHandler2 writes the errors as a point shapefile and returns
// it zipped.
func (s *Server) checkGeometryHandler2(w http.ResponseWriter, r *http.Request) {
	l, selectedOnly, err := requestLayer(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
		return
	}

	dir, err := os.MkdirTemp("", "geomcheck-*")
	if err != nil {
		http.Error(w, "ERROR: cannot create work directory", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "geometry_errors.shp")

	res, err := CheckGeometry(r.Context(), validation.RunConfig{
		Layer:        l,
		SelectedOnly: selectedOnly,
		WriteOutput:  true,
		OutputPath:   path,
		Encoding:     s.encoding,
	}, s.log, s.bus)
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: Geometry check failed: %v", err), http.StatusInternalServerError)
		return
	}
	if res.Confirmation == nil {
		http.Error(w, "ERROR: Geometry check cancelled", http.StatusServiceUnavailable)
		return
	}

	zipData, err := output.ZipShapefile(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Errors-Written", strconv.Itoa(res.Confirmation.Written))
	w.Header().Set("X-Errors-Skipped", strconv.Itoa(res.Confirmation.Skipped))
	sendZipResponse(w, "geometry_errors.zip", zipData)
}
