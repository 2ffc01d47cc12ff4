package core

// service.go holds the session state behind the HTTP surface: the raw
// source bytes, the decoded grid, the live configuration, and a
// generation counter that invalidates in-flight suggestion responses.
// The engine functions it calls are pure; all locking lives here.

import "sync"

// Service owns one editing session. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	// raw and rawName hold the most recent upload whether or not it
	// decoded, so a retry under another encoding reuses the same bytes.
	// filename and grid describe the last successful decode; decoded
	// reports whether they are populated.
	raw      []byte
	rawName  string
	filename string
	encoding string
	decoded  bool
	grid     Grid

	config Configuration

	// generation increments on every configuration edit. A suggestion
	// response is applied only if the generation captured when the
	// request was issued still matches, so a slow response can never
	// overwrite manual edits made while it was in flight.
	generation uint64
}

// NewService creates an empty session with UTF-8 selected.
func NewService() *Service {
	return &Service{encoding: DefaultEncoding}
}

// SourceInfo summarizes the loaded source for the UI chrome.
type SourceInfo struct {
	Filename string   `json:"filename"`
	Encoding string   `json:"encoding"`
	Loaded   bool     `json:"loaded"`
	Rows     int      `json:"rows"`
	Columns  int      `json:"columns"`
	Headers  []string `json:"headers,omitempty"`
}

// LoadSource replaces the session's source file. The raw bytes are
// retained even when decoding fails so the user can retry the same file
// under a different encoding; everything the session reports — filename,
// grid, selected encoding — still describes the last successful decode
// until a retry succeeds.
func (s *Service) LoadSource(data []byte, filename, encodingName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if encodingName == "" {
		encodingName = s.encoding
	}
	s.raw = data
	s.rawName = filename

	text, err := DecodeBytes(data, encodingName)
	if err != nil {
		return err
	}
	s.filename = filename
	s.encoding = encodingName
	s.grid = Parse(text)
	s.decoded = true
	return nil
}

// SetEncoding re-decodes the retained source bytes under a new encoding.
// On failure the current grid and selected encoding are untouched. With
// no source loaded it just records the selection for the next upload.
func (s *Service) SetEncoding(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw == nil {
		if _, err := DecodeBytes(nil, name); err != nil {
			return err
		}
		s.encoding = name
		return nil
	}

	text, err := DecodeBytes(s.raw, name)
	if err != nil {
		return err
	}
	s.filename = s.rawName
	s.encoding = name
	s.grid = Parse(text)
	s.decoded = true
	return nil
}

// Source returns a summary of the loaded source.
func (s *Service) Source() SourceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SourceInfo{
		Filename: s.filename,
		Encoding: s.encoding,
		Loaded:   s.decoded,
		Rows:     len(s.grid),
		Columns:  len(s.grid.Headers()),
	}
	if h := s.grid.Headers(); h != nil {
		info.Headers = append([]string(nil), h...)
	}
	return info
}

// Grid returns a copy-free snapshot of the decoded grid. Grids are
// replaced wholesale, never mutated, so sharing the slice is safe.
func (s *Service) Grid() Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid
}

// Config returns a deep copy of the live configuration together with the
// generation it was captured at.
func (s *Service) Config() (Configuration, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Clone(), s.generation
}

// AppendField adds a descriptor and bumps the generation.
func (s *Service) AppendField(d FieldDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Append(d)
	s.generation++
}

// RemoveField deletes a descriptor by ID. Returns false if absent.
func (s *Service) RemoveField(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.RemoveByID(id) {
		return false
	}
	s.generation++
	return true
}

// UpdateField patches a descriptor by ID. Returns false if absent.
func (s *Service) UpdateField(id string, patch FieldPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.UpdateByID(id, patch) {
		return false
	}
	s.generation++
	return true
}

// MoveField reorders a descriptor by ID. Returns false if absent.
func (s *Service) MoveField(id string, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.Move(id, to) {
		return false
	}
	s.generation++
	return true
}

// ReplaceConfig swaps in an imported configuration wholesale.
func (s *Service) ReplaceConfig(cfg Configuration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg.Clone()
	s.generation++
}

// ApplySuggestion installs a suggested configuration only if no edit has
// happened since gen was captured. Returns whether it was applied; a
// stale result is dropped without side effects.
func (s *Service) ApplySuggestion(gen uint64, cfg Configuration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.config = cfg.Clone()
	s.generation++
	return true
}

// Preview evaluates the current configuration against at most limit data
// rows, returning the output header row followed by the evaluated rows.
// A non-positive limit previews every data row.
func (s *Service) Preview(limit int) [][]string {
	s.mu.Lock()
	cfg := s.config
	grid := s.grid
	filename := s.filename
	s.mu.Unlock()

	rows := grid.DataRows()
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([][]string, 0, len(rows)+1)
	out = append(out, cfg.Headers())
	for _, row := range rows {
		out = append(out, Evaluate(cfg, row, filename))
	}
	return out
}

// Export renders the final BOM-prefixed CSV document.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	cfg := s.config
	grid := s.grid
	filename := s.filename
	loaded := s.decoded
	s.mu.Unlock()

	if !loaded {
		return nil, ErrNoSource
	}
	return EmitDocument(cfg, grid, filename), nil
}
