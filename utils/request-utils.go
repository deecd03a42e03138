package utils

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxUploadMemory is held in memory before multipart files spill to disk.
const maxUploadMemory = 32 << 20

type MultipartResult struct {
	File       []byte
	FileName   string
	Properties Properties
}

type Properties struct {
	XField            string
	YField            string
	CRS               string
	FeatureCollection string
}

func ReadMultiPartForm(r *http.Request, fileKey string) (MultipartResult, error) {
	var result MultipartResult
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return result, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	for key, value := range r.MultipartForm.Value {
		switch key {
		case "xfield":
			result.Properties.XField = value[0]
		case "yfield":
			result.Properties.YField = value[0]
		case "crs":
			result.Properties.CRS = value[0]
		case "featureCollection":
			result.Properties.FeatureCollection = value[0]
		}
	}

	headers := r.MultipartForm.File[fileKey]
	if len(headers) == 0 {
		return result, nil
	}
	file, err := headers[0].Open()
	if err != nil {
		return result, fmt.Errorf("failed to open %s: %w", fileKey, err)
	}
	defer file.Close()

	result.File, err = io.ReadAll(file)
	if err != nil {
		return result, fmt.Errorf("failed to read %s: %w", fileKey, err)
	}
	result.FileName = headers[0].Filename
	return result, nil
}

// ParseIDs reads a comma separated list of integer ids such as "1,4,7".
func ParseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid feature id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
