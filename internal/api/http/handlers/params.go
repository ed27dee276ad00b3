package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/worklist-service/internal/auth"
	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/service"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

const existingCaptionPrefix = "caption_"

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// itemForm is a submitted work item form, multipart or urlencoded.
type itemForm struct {
	c     *fiber.Ctx
	form  *multipart.Form
	files []*multipart.FileHeader
}

func readItemForm(c *fiber.Ctx) *itemForm {
	f := &itemForm{c: c}
	if form, err := c.MultipartForm(); err == nil {
		f.form = form
		for _, fh := range form.File["photos"] {
			if fh.Filename != "" {
				f.files = append(f.files, fh)
			}
		}
	}
	return f
}

func (f *itemForm) value(key string) string {
	if f.form != nil {
		if v := f.form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return f.c.FormValue(key)
}

func (f *itemForm) content() domain.WorkItemContent {
	return domain.WorkItemContent{
		Location:    f.value("location"),
		Description: f.value("description"),
		Detail:      f.value("detail"),
		References:  f.value("references"),
	}
}

// existingCaptions collects caption_<photoID> fields.
func (f *itemForm) existingCaptions() (map[int64]string, error) {
	out := map[int64]string{}
	if f.form == nil {
		return out, nil
	}
	for key, values := range f.form.Value {
		if !strings.HasPrefix(key, existingCaptionPrefix) || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, existingCaptionPrefix), 10, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid caption field", map[string]any{"field": key})
		}
		out[id] = values[0]
	}
	return out, nil
}

// uploads opens the attached photos. photo_captions pairs with photos by
// position. The returned func closes every opened file.
func (f *itemForm) uploads() ([]service.PhotoUpload, func(), error) {
	var captions []string
	if f.form != nil {
		captions = f.form.Value["photo_captions"]
	}
	files := make([]multipart.File, 0, len(f.files))
	closeAll := func() {
		for _, file := range files {
			_ = file.Close()
		}
	}
	out := make([]service.PhotoUpload, 0, len(f.files))
	for i, fh := range f.files {
		file, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.NewValidationError("unreadable photo upload", map[string]any{"photo": i + 1})
		}
		files = append(files, file)
		caption := ""
		if i < len(captions) {
			caption = captions[i]
		}
		out = append(out, service.PhotoUpload{Name: fh.Filename, Caption: caption, Content: file})
	}
	return out, closeAll, nil
}
