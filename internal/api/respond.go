package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/bddgen/internal/bdd"
	"github.com/dgallion1/bddgen/internal/parser"
)

// requestError is a malformed request the handlers reject before any
// document work starts.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	var re *requestError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &re):
		return re.status
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, bdd.ErrValidation), errors.Is(err, parser.ErrInvalidEncoding):
		return http.StatusBadRequest
	case errors.Is(err, bdd.ErrParse):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	if code >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	jsonError(w, err.Error(), code)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// readUpload reads the multipart "file" field into a validated Document.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (bdd.Document, error) {
	if err := s.parseUploadForm(w, r); err != nil {
		return bdd.Document{}, err
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return bdd.Document{}, badRequest("file is required")
	}
	return s.readPart(headers[0])
}

// parseUploadForm parses a multipart body capped at MAX_UPLOAD_BYTES plus
// 1MB of form overhead. The caller removes the form's temp files.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("invalid multipart form: %v", err)
	}
	return nil
}

// readPart turns one uploaded file into a validated Document. Files whose
// name has no usable extension are typed by their part's Content-Type.
func (s *Server) readPart(header *multipart.FileHeader) (bdd.Document, error) {
	file, err := header.Open()
	if err != nil {
		return bdd.Document{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if bdd.FormatFromFilename(filename) == bdd.FormatUnknown {
		if f := bdd.FormatFromContentType(header.Header.Get("Content-Type")); f != bdd.FormatUnknown && filepath.Ext(filename) == "" {
			filename += "." + string(f)
		}
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return bdd.Document{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return bdd.Document{}, &requestError{
			status: http.StatusRequestEntityTooLarge,
			msg:    fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes),
		}
	}

	doc := bdd.NewDocument(filename, data)
	if err := doc.Check(); err != nil {
		return bdd.Document{}, err
	}
	return doc, nil
}

// readCategory reads and validates the doc_type form field.
func readCategory(r *http.Request) (bdd.DocumentCategory, error) {
	raw := r.FormValue("doc_type")
	if strings.TrimSpace(raw) == "" {
		return "", badRequest("doc_type is required; one of %s", categoryList())
	}
	return bdd.ParseCategory(raw)
}

func categoryList() string {
	names := make([]string, len(bdd.Categories))
	for i, c := range bdd.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// extractText flattens doc to plain text. Extraction failures other than
// a bad text encoding are reported as parse errors.
func (s *Server) extractText(doc bdd.Document) (string, error) {
	text, err := parser.ExtractText(doc, s.parseOpts)
	if err != nil {
		if errors.Is(err, bdd.ErrValidation) || errors.Is(err, parser.ErrInvalidEncoding) {
			return "", err
		}
		return "", bdd.ParseErrorf("extract text from %s: %v", doc.Filename(), err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: no text could be extracted from %q", bdd.ErrEmptyDocument, doc.Filename())
	}
	return text, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage reports the first failed field, using its JSON name.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("%s is required", fe.Field())
		}
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return "invalid request"
}
