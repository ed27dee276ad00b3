package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/worklist-service/internal/domain"
)

type mapPhotos map[string][]byte

func (m mapPhotos) Open(name string) (io.ReadCloser, error) {
	data, ok := m[name]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func sampleItem() *domain.WorkItem {
	return &domain.WorkItem{
		ID:            1,
		ItemNumber:    "DRAFT_0020",
		Location:      "Engine room",
		Description:   "Replace port side raw water pump & seal",
		Detail:        "Seal leaks <badly>\nsecond line",
		References:    "Pump kit P/N 1234",
		SubmitterName: "DP",
		SubmittedAt:   time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
		Photos: []domain.Photo{
			{ID: 1, Filename: "a.png", Caption: "Pump overview"},
			{ID: 2, Filename: "gone.jpg", Caption: "Seal close-up"},
		},
	}
}

func TestExportLayout(t *testing.T) {
	exp := NewDocxExporter(mapPhotos{"a.png": pngBytes(t, 40, 20)}, nil)

	doc, err := exp.Export(context.Background(), sampleItem())
	require.NoError(t, err)
	assert.Equal(t, "DRAFT_0020_Replace_port_side_raw_water_pu.docx", doc.Filename)
	assert.Equal(t, docxContentType, doc.ContentType)

	parts := readZip(t, doc.Content)
	require.Contains(t, parts, "word/document.xml")
	require.Contains(t, parts, "word/media/image1.png")
	assert.NotContains(t, parts, "word/media/image2.jpeg")

	body := parts["word/document.xml"]
	for _, want := range []string{
		"WORK ITEM DRAFT TEMPLATE",
		"Item NO.: ",
		"Location: ",
		"Description:",
		"Detail:",
		"Seal leaks &lt;badly&gt;",
		"<w:br/>",
		"Operator Furnished Material (OFM):",
		"PHOTOS",
		"Photo 1 Caption: ",
		"Photo 2 Caption: ",
		"Seal close-up",
		"Submitted by: DP | Date: 2025-04-02 09:30",
		`r:embed="rIdImg1"`,
	} {
		assert.Contains(t, body, want)
	}
	assert.Contains(t, parts["word/_rels/document.xml.rels"], `Target="media/image1.png"`)

	// 40x20 image scaled to 4in wide keeps its aspect ratio.
	assert.Contains(t, body, `cx="3657600" cy="1828800"`)
}

func TestExportOmitsEmptyReferences(t *testing.T) {
	item := sampleItem()
	item.References = "  "
	item.Photos = nil

	doc, err := NewDocxExporter(nil, nil).Export(context.Background(), item)
	require.NoError(t, err)
	body := readZip(t, doc.Content)["word/document.xml"]
	assert.NotContains(t, body, "Operator Furnished Material")
	assert.NotContains(t, body, "Caption")
}

func TestFilenameSanitizes(t *testing.T) {
	item := &domain.WorkItem{ItemNumber: "0101", Description: "Pilot/House windows"}
	assert.Equal(t, "0101_Pilot_House_windows.docx", Filename(item))

	short := &domain.WorkItem{ItemNumber: "X", Description: "ab"}
	assert.Equal(t, "X_ab.docx", Filename(short))
}

func TestBundleDeduplicatesNames(t *testing.T) {
	now := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	bundle, err := Bundle([]*Document{
		{Filename: "a.docx", Content: []byte("one")},
		{Filename: "a.docx", Content: []byte("two")},
		{Filename: "b.docx", Content: []byte("three")},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "work_items_20250402_093000.zip", bundle.Filename)

	files := readZip(t, bundle.Content)
	assert.Equal(t, "one", files["a.docx"])
	assert.Equal(t, "two", files["a_2.docx"])
	assert.Equal(t, "three", files["b.docx"])
	assert.False(t, strings.HasPrefix(bundle.ContentType, "application/vnd"))
}
