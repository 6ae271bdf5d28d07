package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20
	maxMultipartBody   = maxImageBytes + 1<<20
	maxFormBody        = 1 << 20
)

var errNoFile = errors.New("no file uploaded")

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// RedirectResponse tells a JSON client which screen to open next.
type RedirectResponse struct {
	Redirect string `json:"redirect"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// wantsJSON reports whether the client asked for the view model instead
// of the rendered page.
func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), "application/json") {
			return true
		}
	}
	return false
}

// redirect sends the browser to target, or tells a JSON client where to go.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, RedirectResponse{Redirect: target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

var errBodyTooLarge = errors.New("request body too large")

// parseForm parses url-encoded and multipart bodies alike. Bodies past
// the size limit are cut off and reported as errBodyTooLarge.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			if tooLarge(err) {
				return errBodyTooLarge
			}
			return errors.New("invalid multipart form")
		}
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		if tooLarge(err) {
			return errBodyTooLarge
		}
		return errors.New("invalid form")
	}
	return nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// formStatus is the response status for a parseForm error.
func formStatus(err error) int {
	if errors.Is(err, errBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// formFile reads the single uploaded file named field. errNoFile is
// returned when the field is absent or empty.
func formFile(form *multipart.Form, field string) ([]byte, error) {
	if form == nil {
		return nil, errNoFile
	}
	files := form.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, errNoFile
	}
	if len(files) > 1 {
		return nil, errors.New("only one file is allowed")
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errNoFile
	}
	return data, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

var errNoCoordinate = errors.New("coordinate missing")

// parseCoordinate parses a posted latitude or longitude. A blank value is
// an error so a success status without a fix is not submitted as 0,0.
func parseCoordinate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errNoCoordinate
	}
	return strconv.ParseFloat(value, 64)
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
