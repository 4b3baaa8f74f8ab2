package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	apierrors "stocklens/internal/errors"
)

// multipartMemory is the part of a multipart upload kept in memory; the
// rest spools to the temp directory
const multipartMemory = 8 << 20

// upload is a CSV received in a request
type upload struct {
	name string
	body io.Reader
	size int64
	done func()
}

// readUpload extracts the CSV from a multipart "file" field or a raw
// text/csv body
func readUpload(r *http.Request) (*upload, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, apierrors.ErrMissingFile
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, maxErr
			}
			return nil, apierrors.InvalidRequestWithError(err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, apierrors.ErrMissingFile
			}
			return nil, apierrors.InvalidRequestWithError(err)
		}
		return &upload{
			name: sanitizeName(header.Filename),
			body: file,
			size: header.Size,
			done: func() {
				file.Close()
				if r.MultipartForm != nil {
					r.MultipartForm.RemoveAll()
				}
			},
		}, nil

	case "text/csv", "text/plain", "application/csv":
		name := sanitizeName(r.URL.Query().Get("name"))
		if name == "" {
			name = "upload.csv"
		}
		return &upload{name: name, body: r.Body, size: r.ContentLength, done: func() {}}, nil
	}

	return nil, apierrors.ErrMissingFile
}

// sanitizeName keeps the base name of a client-supplied file name
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
