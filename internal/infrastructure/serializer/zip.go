package serializer

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Zip bundles documents into a zip archive, one <name>.xml entry each.
func Zip(docs []Document) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, doc := range docs {
		f, err := zw.Create(doc.Filename())
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", doc.Filename(), err)
		}
		if _, err := f.Write(doc.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", doc.Filename(), err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf, nil
}
