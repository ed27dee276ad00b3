// Package export renders work items as Word documents.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/domain"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	zipContentType  = "application/zip"

	// 4 inches in English Metric Units.
	photoWidthEMU = 4 * 914400
	descPrefixLen = 30
)

// Document is a rendered file ready to be served.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PhotoSource opens stored photo files by name.
type PhotoSource interface {
	Open(name string) (io.ReadCloser, error)
}

// Exporter renders a single work item. It only reads.
type Exporter interface {
	Export(ctx context.Context, item *domain.WorkItem) (*Document, error)
}

// DocxExporter writes a minimal WordprocessingML package following the work
// item draft template. Photos that cannot be read or decoded are left out and
// only their caption line is written.
type DocxExporter struct {
	photos PhotoSource
	logger *zap.Logger
}

// NewDocxExporter builds an exporter. photos may be nil to skip images.
func NewDocxExporter(photos PhotoSource, logger *zap.Logger) *DocxExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocxExporter{photos: photos, logger: logger}
}

type embeddedImage struct {
	relID string
	path  string
	data  []byte
}

func (e *DocxExporter) Export(ctx context.Context, item *domain.WorkItem) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body strings.Builder
	var images []embeddedImage

	paragraph(&body, pPr("center"), run("WORK ITEM DRAFT TEMPLATE", runStyle{bold: true, size: 28}))
	blank(&body)
	paragraph(&body, "", run("Item NO.: ", runStyle{bold: true}), run(item.ItemNumber, runStyle{}))
	paragraph(&body, "", run("Location: ", runStyle{bold: true}), run(item.Location, runStyle{}))
	blank(&body)
	heading(&body, "Description:")
	paragraph(&body, "", run(item.Description, runStyle{}))
	blank(&body)
	heading(&body, "Detail:")
	paragraph(&body, "", run(item.Detail, runStyle{}))

	if strings.TrimSpace(item.References) != "" {
		blank(&body)
		heading(&body, "Operator Furnished Material (OFM):")
		paragraph(&body, "", run(item.References, runStyle{}))
	}

	blank(&body)
	heading(&body, "PHOTOS")

	for idx, photo := range item.Photos {
		n := idx + 1
		blank(&body)
		if img, cx, cy, ok := e.loadImage(photo, len(images)+1); ok {
			images = append(images, img)
			body.WriteString(drawing(img.relID, len(images), cx, cy))
		}
		paragraph(&body, "", run(fmt.Sprintf("Photo %d Caption: ", n), runStyle{italic: true}), run(photo.Caption, runStyle{}))
	}

	blank(&body)
	blank(&body)
	footer := fmt.Sprintf("Submitted by: %s | Date: %s", item.SubmitterName, item.SubmittedAt.Format("2006-01-02 15:04"))
	paragraph(&body, "", run(footer, runStyle{size: 18, color: "808080"}))

	content, err := buildPackage(body.String(), images)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: Filename(item), ContentType: docxContentType, Content: content}, nil
}

func (e *DocxExporter) loadImage(photo domain.Photo, seq int) (embeddedImage, int, int, bool) {
	if e.photos == nil {
		return embeddedImage{}, 0, 0, false
	}
	rc, err := e.photos.Open(photo.Filename)
	if err != nil {
		e.logger.Debug("photo file unavailable", zap.String("filename", photo.Filename), zap.Error(err))
		return embeddedImage{}, 0, 0, false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		e.logger.Warn("read photo failed", zap.String("filename", photo.Filename), zap.Error(err))
		return embeddedImage{}, 0, 0, false
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 {
		e.logger.Warn("photo not embeddable", zap.String("filename", photo.Filename), zap.Error(err))
		return embeddedImage{}, 0, 0, false
	}
	ext := "png"
	if format == "jpeg" {
		ext = "jpeg"
	}
	cx := photoWidthEMU
	cy := int(int64(photoWidthEMU) * int64(cfg.Height) / int64(cfg.Width))
	return embeddedImage{
		relID: fmt.Sprintf("rIdImg%d", seq),
		path:  fmt.Sprintf("media/image%d.%s", seq, ext),
		data:  data,
	}, cx, cy, true
}

// Filename is <item_number>_<first 30 characters of the description>.docx
// with spaces turned into underscores.
func Filename(item *domain.WorkItem) string {
	desc := []rune(item.Description)
	if len(desc) > descPrefixLen {
		desc = desc[:descPrefixLen]
	}
	name := item.ItemNumber + "_" + strings.ReplaceAll(string(desc), " ", "_")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|', '\n', '\r', '\t':
			return '_'
		}
		return r
	}, name)
	return name + ".docx"
}

type runStyle struct {
	bold   bool
	italic bool
	size   int // half-points
	color  string
}

func pPr(align string) string {
	return `<w:pPr><w:jc w:val="` + align + `"/></w:pPr>`
}

func run(text string, style runStyle) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	if style.bold || style.italic || style.size > 0 || style.color != "" {
		b.WriteString("<w:rPr>")
		if style.bold {
			b.WriteString("<w:b/>")
		}
		if style.italic {
			b.WriteString("<w:i/>")
		}
		if style.color != "" {
			b.WriteString(`<w:color w:val="` + style.color + `"/>`)
		}
		if style.size > 0 {
			fmt.Fprintf(&b, `<w:sz w:val="%d"/>`, style.size)
		}
		b.WriteString("</w:rPr>")
	}
	for i, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(&b, []byte(line))
		b.WriteString("</w:t>")
	}
	b.WriteString("</w:r>")
	return b.String()
}

func paragraph(b *strings.Builder, props string, runs ...string) {
	b.WriteString("<w:p>")
	b.WriteString(props)
	for _, r := range runs {
		b.WriteString(r)
	}
	b.WriteString("</w:p>")
}

func heading(b *strings.Builder, text string) {
	paragraph(b, "", run(text, runStyle{bold: true, size: 24}))
}

func blank(b *strings.Builder) {
	b.WriteString("<w:p/>")
}

func drawing(relID string, id, cx, cy int) string {
	return fmt.Sprintf(`<w:p><w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[3]d" cy="%[4]d"/><wp:docPr id="%[2]d" name="Picture %[2]d"/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%[2]d" name="image%[2]d"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[1]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[3]d" cy="%[4]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`, relID, id, cx, cy)
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Default Extension="jpeg" ContentType="image/jpeg"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// Calibri 11pt as the Normal style.
const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/><w:sz w:val="22"/></w:rPr></w:rPrDefault></w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
</w:styles>`

func buildPackage(body string, images []embeddedImage) ([]byte, error) {
	var rels strings.Builder
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	for _, img := range images {
		fmt.Fprintf(&rels, "\n"+`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`, img.relID, img.path)
	}
	rels.WriteString("\n</Relationships>")

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
		`<w:body>` + body + `<w:sectPr/></w:body></w:document>`

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"word/document.xml", []byte(document)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/_rels/document.xml.rels", []byte(rels.String())},
	}
	for _, img := range images {
		parts = append(parts, struct {
			name string
			data []byte
		}{filepath.ToSlash(filepath.Join("word", img.path)), img.data})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
