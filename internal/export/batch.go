package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Bundle zips docs into one archive. Repeated filenames get a numeric suffix.
func Bundle(docs []*Document, now time.Time) (*Document, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]int, len(docs))

	for _, doc := range docs {
		name := doc.Filename
		if n := seen[name]; n > 0 {
			ext := ""
			if i := strings.LastIndex(name, "."); i > 0 {
				name, ext = name[:i], name[i:]
			}
			name = fmt.Sprintf("%s_%d%s", name, n+1, ext)
		}
		seen[doc.Filename]++

		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(doc.Content); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return &Document{
		Filename:    fmt.Sprintf("work_items_%s.zip", now.Format("20060102_150405")),
		ContentType: zipContentType,
		Content:     buf.Bytes(),
	}, nil
}
