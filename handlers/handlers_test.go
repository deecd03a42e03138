package handlers_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/handlers"
	"github.com/bsaid97/geomcheck/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parcels = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 1, "properties": {"name": "ok"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "id": 2, "properties": {"name": "bowtie"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,10],[10,0],[0,10],[0,0]]]}},
    {"type": "Feature", "id": 3, "properties": {"name": "empty"}, "geometry": null}
  ]
}`

func newMux(pub bus.Publisher) *http.ServeMux {
	mux := http.NewServeMux()
	handlers.NewServer(nil, pub, "UTF-8").Routes(mux)
	return mux
}

func TestCheckGeometryHandler(t *testing.T) {
	b := bus.New()
	var (
		mu       sync.Mutex
		outcomes []string
	)
	require.NoError(t, b.Subscribe(validation.TopicRunFinished, func(s validation.RunSummary) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, s.Outcome)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-geometry", strings.NewReader(parcels))
	req.Header.Set("Content-Type", "application/json")
	newMux(b).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var errs []handlers.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, int64(2), errs[0].Ref)
	assert.Equal(t, &geometry.Point{X: 5, Y: 5}, errs[0].Location)
	assert.Equal(t, []string{"errors"}, outcomes)
}

func TestCheckGeometryHandler_BrokenRingReportedPerFeature(t *testing.T) {
	body := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "id": 1, "properties": {},
	   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
	  {"type": "Feature", "id": 2, "properties": {},
	   "geometry": {"type": "Polygon", "coordinates": [[[4,4],[5,4],[4,4]]]}}
	]}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-geometry", strings.NewReader(body))
	newMux(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var errs []handlers.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, int64(2), errs[0].Ref)
	assert.Equal(t, geometry.MsgTooFewPoints, errs[0].ErrorMessage)
	assert.Equal(t, &geometry.Point{X: 4, Y: 4}, errs[0].Location)
}

func TestCheckGeometryHandler_Selected(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-geometry?selected=1,3", strings.NewReader(parcels))
	newMux(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCheckGeometryHandler_BadRequests(t *testing.T) {
	mux := newMux(nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check-geometry", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/check-geometry", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/check-geometry?selected=x", strings.NewReader(parcels)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestCheckGeometryHandler2_ReturnsShapefileZip(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v2/check-geometry", strings.NewReader(parcels))
	newMux(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Errors-Written"))
	assert.Equal(t, "0", rec.Header().Get("X-Errors-Skipped"))
	assert.Subset(t, zipNames(t, rec.Body.Bytes()),
		[]string{"geometry_errors.shp", "geometry_errors.shx", "geometry_errors.dbf", "geometry_errors.cpg"})
}

func multipartTable(t *testing.T, xfield string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("xfield", xfield))
	require.NoError(t, mw.WriteField("yfield", "lat"))
	fw, err := mw.CreateFormFile("file", "stations.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("name,lon,lat\na,1,2\nb,,3\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestPointsFromTableHandler(t *testing.T) {
	body, contentType := multipartTable(t, "lon")
	req := httptest.NewRequest(http.MethodPost, "/points-from-table", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newMux(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Rows-Written"))
	assert.Equal(t, "1", rec.Header().Get("X-Rows-Skipped"))
	assert.Contains(t, zipNames(t, rec.Body.Bytes()), "stations_points.shp")
}

func TestPointsFromTableHandler_UnknownField(t *testing.T) {
	body, contentType := multipartTable(t, "x")
	req := httptest.NewRequest(http.MethodPost, "/points-from-table", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newMux(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
