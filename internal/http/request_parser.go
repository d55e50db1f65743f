package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"corpdash/internal/analytics"
)

// formFile is the multipart field of the upload form.
const formFile = "file"

const acceptedExtensions = ".xlsx,.xls"

// multipartMemory is the part of an upload kept in memory; the rest spills
// to a temporary file.
const multipartMemory = 8 << 20

var errNoFile = errors.New("no file uploaded")

type uploadedFile struct {
	File     multipart.File
	Filename string
	Size     int64
	form     *multipart.Form
}

func (u uploadedFile) Close() {
	if u.File != nil {
		_ = u.File.Close()
	}
	if u.form != nil {
		_ = u.form.RemoveAll()
	}
}

// readUpload parses the multipart body, capped at maxBytes, and opens the
// uploaded file. The caller must Close the result.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (uploadedFile, error) {
	if r.ContentLength > maxBytes {
		return uploadedFile{}, &http.MaxBytesError{Limit: maxBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return uploadedFile{}, err
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return uploadedFile{}, errNoFile
		}
		return uploadedFile{}, fmt.Errorf("parse upload: %w", err)
	}

	f, hdr, err := r.FormFile(formFile)
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		if errors.Is(err, http.ErrMissingFile) {
			return uploadedFile{}, errNoFile
		}
		return uploadedFile{}, fmt.Errorf("open upload: %w", err)
	}
	return uploadedFile{
		File:     f,
		Filename: sanitizeFilename(hdr.Filename),
		Size:     hdr.Size,
		form:     r.MultipartForm,
	}, nil
}

// sanitizeFilename keeps the base name and drops control characters.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}

// cohortParam reads the service toggle from the query string.
func cohortParam(r *http.Request) (analytics.Cohort, error) {
	return analytics.ParseCohort(r.URL.Query().Get("service"))
}
