package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/filex"
	"github.com/google/uuid"
)

// multipartMemory is how much of a multipart body is kept in memory before
// net/http spills file parts to disk.
const multipartMemory = 1 << 20

// form holds the string fields of a JSON, urlencoded or multipart body.
type form map[string]string

func (f form) get(name string) string { return f[name] }

// parseForm reads the request body into a form. JSON bodies must be an object;
// non-string JSON values are ignored.
func parseForm(r *http.Request) (form, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, bodyError(err)
		}
		f := form{}
		for k, v := range raw {
			if s, ok := v.(string); ok {
				f[k] = s
			}
		}
		return f, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err)
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
	}

	f := form{}
	for k, v := range r.PostForm {
		if len(v) > 0 {
			f[k] = v[0]
		}
	}
	return f, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewValidationError("request body is too large")
	}
	return common.NewValidationError("malformed request body")
}

// staged tracks files copied into the upload temp dir for one request.
type staged struct {
	dir   string
	paths []string
}

// file copies the first part named field into the staging dir and returns its
// path, or "" when the request has no such part.
func (s *staged) file(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return "", nil
	}

	path, err := stageFile(headers[0], s.dir)
	if err != nil {
		return "", err
	}
	s.paths = append(s.paths, path)
	return path, nil
}

// cleanup removes staged files and any multipart spill files.
func (s *staged) cleanup(r *http.Request) []error {
	var errs []error
	for _, p := range s.paths {
		if err := filex.RemoveQuietly(p); err != nil {
			errs = append(errs, err)
		}
	}
	if r.MultipartForm != nil {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func stageFile(fh *multipart.FileHeader, dir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filepath.Base(fh.Filename)))
	path := filepath.Join(dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = filex.RemoveQuietly(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = filex.RemoveQuietly(path)
		return "", fmt.Errorf("close staged file: %w", err)
	}

	return path, nil
}
