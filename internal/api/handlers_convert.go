package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/tblmaker/internal/convert"
	"github.com/dgallion1/tblmaker/internal/parser"
	"github.com/go-chi/chi/v5"
)

// DownloadFilename is the attachment name of the generated document.
const DownloadFilename = "creatium_table.json"

type convertResponse struct {
	convert.Summary
	HTML       string `json:"html"`
	JSONURL    string `json:"json_url"`
	PreviewURL string `json:"preview_url"`
}

func newConvertResponse(res *convert.Result) convertResponse {
	return convertResponse{
		Summary:    res.Summary(),
		HTML:       res.HTML,
		JSONURL:    fmt.Sprintf("/api/convert/%s/json", res.ID),
		PreviewURL: fmt.Sprintf("/api/convert/%s/preview", res.ID),
	}
}

// handleConvert accepts roster text as a multipart "file" or "text" field, a
// urlencoded "text" field, or a raw text body.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	text, filename, status, err := s.readRoster(r)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	res, err := s.converter.Convert(text, filename)
	if err != nil {
		jsonError(w, err.Error(), convertErrorStatus(err))
		return
	}
	s.results.Put(res)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newConvertResponse(res))
}

func (s *Server) readRoster(r *http.Request) (text, filename string, status int, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", "", http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return s.formText(r.FormValue("text"))
		}
		if err != nil {
			return "", "", http.StatusBadRequest, fmt.Errorf("file is invalid: %w", err)
		}
		defer file.Close()

		filename = sanitizeFilename(header.Filename)
		text, status, err = s.readUpload(file, filename)
		return text, filename, status, err

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return "", "", http.StatusBadRequest, fmt.Errorf("invalid form: %w", err)
		}
		return s.formText(r.PostFormValue("text"))

	default:
		data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
		if err != nil {
			return "", "", http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err)
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			return "", "", http.StatusRequestEntityTooLarge, fmt.Errorf("roster exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
		}
		return string(data), "", http.StatusOK, nil
	}
}

func (s *Server) formText(text string) (string, string, int, error) {
	if int64(len(text)) > s.cfg.MaxUploadBytes {
		return "", "", http.StatusRequestEntityTooLarge, fmt.Errorf("roster exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return text, "", http.StatusOK, nil
}

func (s *Server) readUpload(file io.Reader, filename string) (string, int, error) {
	if !parser.IsSupportedExtension(filename) {
		return "", http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return string(data), http.StatusOK, nil
}

func (s *Server) handleBatchConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}
		text, _, err := s.readUpload(f, filename)
		f.Close()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		res, err := s.converter.Convert(text, filename)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		s.results.Put(res)
		results = append(results, newConvertResponse(res))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res := s.lookupResult(w, r)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newConvertResponse(res))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	res := s.lookupResult(w, r)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadFilename))
	w.Write(res.JSON)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	res := s.lookupResult(w, r)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// Roster values are embedded unescaped by default; keep scripts out of the preview.
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Write([]byte(res.HTML))
}

func (s *Server) lookupResult(w http.ResponseWriter, r *http.Request) *convert.Result {
	id := chi.URLParam(r, "id")
	res := s.results.Get(id)
	if res == nil {
		jsonError(w, "result not found", http.StatusNotFound)
	}
	return res
}

func convertErrorStatus(err error) int {
	if errors.Is(err, parser.ErrMalformedInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
