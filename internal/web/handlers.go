package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/quizbank/reshape/internal/core"
	"github.com/quizbank/reshape/internal/logging"
)

// defaultPreviewRows caps the preview size unless the client asks for more.
const defaultPreviewRows = 20

// maxConfigDocSize bounds imported configuration documents (1MB).
const maxConfigDocSize = 1 << 20

// handleUploadSource accepts a multipart source file upload with an
// optional encoding form value. The decoded grid replaces the current one;
// on a decode failure the previous grid is kept and the client can retry
// the same file with a different encoding.
func (s *Server) handleUploadSource(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, fmt.Errorf("file too large or invalid form: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	encodingName := r.FormValue("encoding")
	if err := s.service.LoadSource(data, header.Filename, encodingName); err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	info := s.service.Source()
	logging.FromContext(r.Context()).Info("source loaded",
		"filename", info.Filename,
		"encoding", info.Encoding,
		"rows", info.Rows,
	)
	writeJSON(w, http.StatusOK, info)
}

// handleSourceInfo returns a summary of the loaded source.
func (s *Server) handleSourceInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Source())
}

// handleSetEncoding re-decodes the retained source bytes under a new
// encoding. The current grid survives a failed decode.
func (s *Server) handleSetEncoding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Encoding string `json:"encoding"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.service.SetEncoding(req.Encoding); err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Source())
}

// handleListEncodings returns the supported encoding names.
func (s *Server) handleListEncodings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"encodings": core.Encodings()})
}

// handlePreview returns the evaluated output header plus the first N data
// rows under the current configuration.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultPreviewRows)
	writeJSON(w, http.StatusOK, map[string]any{"rows": s.service.Preview(limit)})
}

// handleExport streams the final BOM-prefixed CSV document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Export()
	if err != nil {
		s.respondError(w, r, err, http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reshaped.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		logging.FromContext(r.Context()).Error("write export", "error", err)
	}
}

// fieldRequest is the payload for creating a field descriptor.
type fieldRequest struct {
	Header string             `json:"header"`
	Kind   core.FieldKind     `json:"kind"`
	Column *core.ColIndex     `json:"column"`
	Text   *string            `json:"text"`
	Answer *core.AnswerConfig `json:"answer"`
}

// handleListFields returns the current configuration and its generation.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	cfg, gen := s.service.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"fields":     cfg,
		"generation": gen,
	})
}

// handleAppendField adds a new field descriptor at the end of the
// configuration.
func (s *Server) handleAppendField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	d := core.NewField(req.Kind, req.Header)
	if req.Column != nil {
		d.Column = *req.Column
	}
	if req.Text != nil {
		d.Text = *req.Text
	}
	if req.Answer != nil && req.Kind == core.KindSmartAnswer {
		answer := *req.Answer
		d.Answer = &answer
	}
	if err := d.Validate(); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.service.AppendField(d)
	writeJSON(w, http.StatusCreated, d)
}

// handleUpdateField applies a partial update to one descriptor.
func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch core.FieldPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if patch.Kind != nil && !validKind(*patch.Kind) {
		s.respondError(w, r, fmt.Errorf("unknown kind %q", *patch.Kind), http.StatusBadRequest)
		return
	}
	// An omitted mode defaults to key when the patch is applied; anything
	// else must be inside the enum or the exported document would no
	// longer import.
	if patch.Answer != nil && patch.Answer.Mode != "" && !validAnswerMode(patch.Answer.Mode) {
		s.respondError(w, r, fmt.Errorf("unknown answer mode %q", patch.Answer.Mode), http.StatusBadRequest)
		return
	}

	if !s.service.UpdateField(id, patch) {
		s.respondError(w, r, errors.New("field not found"), http.StatusNotFound)
		return
	}
	cfg, gen := s.service.Config()
	writeJSON(w, http.StatusOK, map[string]any{"fields": cfg, "generation": gen})
}

// handleRemoveField deletes one descriptor by ID.
func (s *Server) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.service.RemoveField(id) {
		s.respondError(w, r, errors.New("field not found"), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveField relocates one descriptor to a new position.
func (s *Server) handleMoveField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		To int `json:"to"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if !s.service.MoveField(id, req.To) {
		s.respondError(w, r, errors.New("field not found"), http.StatusNotFound)
		return
	}
	cfg, gen := s.service.Config()
	writeJSON(w, http.StatusOK, map[string]any{"fields": cfg, "generation": gen})
}

// handleExportConfig downloads the configuration as a shareable JSON
// document.
func (s *Server) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	cfg, _ := s.service.Config()
	doc, err := core.MarshalConfiguration(cfg)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="mapping.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		logging.FromContext(r.Context()).Error("write config export", "error", err)
	}
}

// handleImportConfig replaces the configuration wholesale from an
// uploaded document. A malformed document leaves the current
// configuration untouched.
func (s *Server) handleImportConfig(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigDocSize))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read configuration document: %w", err), http.StatusBadRequest)
		return
	}

	cfg, err := core.UnmarshalConfiguration(data)
	if err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	s.service.ReplaceConfig(cfg)
	imported, gen := s.service.Config()
	writeJSON(w, http.StatusOK, map[string]any{"fields": imported, "generation": gen})
}

// handleSuggest asks the external service for an initial mapping of the
// current header row.
//
// The configuration generation is captured before the call; the response
// is applied only if no edit happened while the call was in flight, so a
// slow suggestion can never overwrite manual edits. A failed call
// degrades to the trivial default configuration.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		respondErrorMessage(w, http.StatusServiceUnavailable, "suggestion service is disabled")
		return
	}

	info := s.service.Source()
	if !info.Loaded {
		s.respondError(w, r, core.ErrNoSource, http.StatusConflict)
		return
	}

	_, gen := s.service.Config()

	cfg, err := s.suggester.SuggestMapping(r.Context(), info.Headers)
	if err != nil {
		logging.FromContext(r.Context()).Warn("suggestion failed, using default mapping", "error", err)
		cfg = core.DefaultConfiguration()
	}

	applied := s.service.ApplySuggestion(gen, cfg)
	if !applied {
		logging.FromContext(r.Context()).Info("suggestion discarded as stale", "generation", gen)
	}

	fields, newGen := s.service.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":    applied,
		"fields":     fields,
		"generation": newGen,
	})
}

// decodeJSON decodes a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxConfigDocSize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// validKind reports whether k is one of the four descriptor kinds.
func validKind(k core.FieldKind) bool {
	switch k {
	case core.KindColumn, core.KindConstant, core.KindFilename, core.KindSmartAnswer:
		return true
	}
	return false
}

// validAnswerMode reports whether m is one of the two answer modes.
func validAnswerMode(m core.AnswerMode) bool {
	return m == core.ModeKey || m == core.ModeContent
}
