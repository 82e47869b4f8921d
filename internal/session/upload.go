package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/brainboard/brainboard/internal/core"
)

// MaxUploadBytes is the default upload size limit (10 MiB).
const MaxUploadBytes int64 = 10 << 20

// AllowedTypes lists the accepted MIME types per upload category.
var AllowedTypes = map[core.UploadCategory][]string{
	core.UploadPhoto:    {"image/jpeg", "image/png", "image/gif", "image/webp"},
	core.UploadVideo:    {"video/mp4", "video/webm"},
	core.UploadDocument: {"application/pdf", "application/msword", "text/plain"},
}

// File is an upload candidate. Size is the declared size in bytes; MIME is
// the declared content type.
type File struct {
	Name    string
	MIME    string
	Size    int64
	Content io.Reader
}

// Allowed reports whether mimeType is accepted for category. Parameters
// such as "; charset=utf-8" are ignored.
func Allowed(category core.UploadCategory, mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	for _, allowed := range AllowedTypes[category] {
		if base == allowed {
			return true
		}
	}
	return false
}

// UploadFile validates and uploads a file as multipart form data. Size and
// type failures return ErrInvalidFile before any network attempt.
func (c *Client) UploadFile(ctx context.Context, file File, category core.UploadCategory) (core.Upload, error) {
	if _, ok := AllowedTypes[category]; !ok {
		return core.Upload{}, invalidFile(fmt.Sprintf("unknown upload type %q", category))
	}
	if file.Size > c.maxUploadBytes {
		return core.Upload{}, invalidFile(fmt.Sprintf("file size %d exceeds limit of %d bytes", file.Size, c.maxUploadBytes))
	}
	if !Allowed(category, file.MIME) {
		return core.Upload{}, invalidFile(fmt.Sprintf("type %q is not allowed for %s uploads", file.MIME, category))
	}
	if file.Content == nil {
		return core.Upload{}, invalidFile("file has no content")
	}

	content, err := io.ReadAll(io.LimitReader(file.Content, c.maxUploadBytes+1))
	if err != nil {
		return core.Upload{}, invalidFile(fmt.Sprintf("read file: %v", err))
	}
	if int64(len(content)) > c.maxUploadBytes {
		return core.Upload{}, invalidFile(fmt.Sprintf("file exceeds limit of %d bytes", c.maxUploadBytes))
	}

	body, contentType, err := multipartBody(file, content, category, c.csrfToken)
	if err != nil {
		return core.Upload{}, invalidFile(err.Error())
	}

	if err := c.prepare(ctx, callAuthenticated); err != nil {
		return core.Upload{}, err
	}

	var upload core.Upload
	err = c.dispatch(ctx, http.MethodPost, "/upload", body, contentType, nil, callAuthenticated, &upload)
	return upload, err
}

func multipartBody(file File, content []byte, category core.UploadCategory, csrfToken string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	name := filepath.Base(file.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", file.MIME)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("type", string(category)); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("csrf_token", csrfToken); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
