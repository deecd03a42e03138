package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/bsaid97/geomcheck/utils"
	"go.uber.org/zap"
)

// Server serves the geometry checking endpoints.
type Server struct {
	log      *zap.Logger
	bus      bus.Publisher
	encoding string
}

// NewServer returns a Server. encoding is written with every shapefile it
// produces.
func NewServer(log *zap.Logger, pub bus.Publisher, encoding string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = &bus.NoopBus{}
	}
	if encoding == "" {
		encoding = "UTF-8"
	}
	return &Server{log: log, bus: pub, encoding: encoding}
}

// Routes registers the handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/check-geometry", s.recovered("checkGeometryHandler", s.checkGeometryHandler))
	mux.HandleFunc("/v2/check-geometry", s.recovered("checkGeometryHandler2", s.checkGeometryHandler2))
	mux.HandleFunc("/points-from-table", s.recovered("pointsFromTableHandler", s.pointsFromTableHandler))
}

// recovered turns a panic inside h into a 500 so one bad payload cannot
// take the server down.
func (s *Server) recovered(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", zap.String("handler", name), zap.Any("panic", rec))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method, only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// readPayload returns the GeoJSON of a request: the raw body for JSON
// requests, otherwise the uploaded file or the featureCollection field of
// a multipart form.
func readPayload(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading request body: %w", err)
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("empty request body")
		}
		return body, nil
	}

	multiPartRequest, err := utils.ReadMultiPartForm(r, "file")
	if err != nil {
		return nil, err
	}
	if len(multiPartRequest.File) > 0 {
		return multiPartRequest.File, nil
	}
	if multiPartRequest.Properties.FeatureCollection != "" {
		return []byte(multiPartRequest.Properties.FeatureCollection), nil
	}
	return nil, fmt.Errorf("no suitable files found")
}

func sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func sendZipResponse(w http.ResponseWriter, filename string, zipData []byte) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(zipData)
}
