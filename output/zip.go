package output

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// shapefileParts are the sidecar extensions packaged with a shapefile.
var shapefileParts = []string{".shp", ".shx", ".dbf", ".cpg", ".prj"}

// ZipShapefile packages a shapefile and its sidecar files into a zip
// archive. Entries are named after the file's base name; missing optional
// sidecars are skipped.
func ZipShapefile(path string) ([]byte, error) {
	var zipBuffer bytes.Buffer
	zipWriter := zip.NewWriter(&zipBuffer)

	base := strings.TrimSuffix(path, filepath.Ext(path))
	name := filepath.Base(base)
	added := 0
	for _, ext := range shapefileParts {
		fileContent, err := os.ReadFile(base + ext)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read shapefile component %s: %w", ext, err)
		}

		zipFile, err := zipWriter.Create(name + ext)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s file in zip: %w", ext, err)
		}
		if _, err := zipFile.Write(fileContent); err != nil {
			return nil, fmt.Errorf("failed to write %s data to zip: %w", ext, err)
		}
		added++
	}
	if added == 0 {
		return nil, fmt.Errorf("no shapefile components found for %s", path)
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return zipBuffer.Bytes(), nil
}
