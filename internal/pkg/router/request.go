package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	// Request is the underlying http.Request.
	*http.Request

	w http.ResponseWriter
}

// GetParam reads a path parameter from the request context (as stored by httprouter).
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetQuery returns the trimmed query value for key.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// SetCookie adds a Set-Cookie header to the response.
func (r *Request) SetCookie(c *http.Cookie) {
	if r.w != nil {
		http.SetCookie(r.w, c)
	}
}

// DecodeBody decodes the JSON body into dst.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}

// ParseMultipart parses a multipart/form-data body of at most maxBytes.
// Parts beyond that size are rejected, not spilled to disk.
func (r *Request) ParseMultipart(maxBytes int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return goerror.NewInvalidFormat("Invalid request content-type")
	}

	r.Body = http.MaxBytesReader(r.w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return goerror.NewInvalidFormat("Uploaded file is too large")
		}
		return goerror.NewInvalidFormat()
	}

	return nil
}

// FormText returns the trimmed value of a parsed form field.
func (r *Request) FormText(name string) string {
	if r.MultipartForm == nil {
		return ""
	}
	values := r.MultipartForm.Value[name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// FormFile returns the content of the first file uploaded under name, and
// false when the field is absent or has no file name.
func (r *Request) FormFile(name string) ([]byte, bool, error) {
	if r.MultipartForm == nil {
		return nil, false, nil
	}
	headers := r.MultipartForm.File[name]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, false, nil
	}

	f, err := headers[0].Open()
	if err != nil {
		return nil, false, goerror.NewInvalidFormat()
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, goerror.NewInvalidFormat()
	}

	return data, true, nil
}
