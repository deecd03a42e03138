package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bsaid97/geomcheck/output"
	"github.com/bsaid97/geomcheck/tables"
	"github.com/bsaid97/geomcheck/utils"
	"go.uber.org/zap"
)

// pointsFromTableHandler turns an uploaded CSV into a zipped point
// shapefile.
func (s *Server) pointsFromTableHandler(w http.ResponseWriter, r *http.Request) {
	multiPartRequest, err := utils.ReadMultiPartForm(r, "file")
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
		return
	}
	if len(multiPartRequest.File) == 0 {
		http.Error(w, "ERROR: No suitable files found", http.StatusBadRequest)
		return
	}

	name := strings.TrimSuffix(multiPartRequest.FileName, filepath.Ext(multiPartRequest.FileName))
	if name == "" {
		name = "table"
	}
	t, err := tables.ReadCSV(name, bytes.NewReader(multiPartRequest.File))
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
	path := filepath.Join(dir, name+"_points.shp")

	sum, err := tables.PointsFromTable(r.Context(), t, path, tables.Options{
		XField:   multiPartRequest.Properties.XField,
		YField:   multiPartRequest.Properties.YField,
		CRS:      multiPartRequest.Properties.CRS,
		Encoding: s.encoding,
		Logger:   s.log,
	})
	if errors.Is(err, tables.ErrFieldNotFound) {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Error("points from table failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusInternalServerError)
		return
	}

	zipData, err := output.ZipShapefile(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Rows-Written", strconv.Itoa(sum.Written))
	w.Header().Set("X-Rows-Skipped", strconv.Itoa(sum.Skipped))
	sendZipResponse(w, name+"_points.zip", zipData)
}
