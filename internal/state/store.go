// Package state holds the single source of truth for a batch session: the selected files, the active
// template and options, the processing flag, and the results and errors of the current run.
package state

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// State is a snapshot of the store. Values handed out by the store never alias its internals.
type State struct {
	SelectedFiles   []entity.SelectedFile     `json:"selected_files"`
	CurrentTemplate *entity.Template          `json:"current_template"`
	ProcessingMode  constants.ProcessingMode  `json:"processing_mode"`
	OutputFormat    constants.ExportFormat    `json:"output_format"`
	IsProcessing    bool                      `json:"is_processing"`
	Results         []entity.ExtractionResult `json:"results"`
	Errors          []entity.ErrorRecord      `json:"errors"`
}

// Default returns the documented initial state.
func Default() State {
	return State{
		SelectedFiles:   []entity.SelectedFile{},
		CurrentTemplate: nil,
		ProcessingMode:  constants.DefaultProcessingMode,
		OutputFormat:    constants.DefaultOutputFormat,
		IsProcessing:    false,
		Results:         []entity.ExtractionResult{},
		Errors:          []entity.ErrorRecord{},
	}
}

// Clone deep-copies s.
func (s State) Clone() State {
	out := s
	out.SelectedFiles = make([]entity.SelectedFile, len(s.SelectedFiles))
	for i, f := range s.SelectedFiles {
		out.SelectedFiles[i] = f.Clone()
	}
	out.CurrentTemplate = s.CurrentTemplate.Clone()
	out.Results = make([]entity.ExtractionResult, len(s.Results))
	for i, r := range s.Results {
		out.Results[i] = r.Clone()
	}
	out.Errors = append(make([]entity.ErrorRecord, 0, len(s.Errors)), s.Errors...)
	return out
}

// Listener is called synchronously after every effective change.
type Listener func(next, prev State)

// Store is safe for concurrent use. Listeners run on the goroutine that made the change,
// after the store lock has been released.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	order     []int
	nextID    int
	logger    *slog.Logger
}

// NewStore returns a store holding the default state.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:     Default(),
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Snapshot returns a defensive copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// SetSelectedFiles replaces the selection wholesale.
func (s *Store) SetSelectedFiles(files []entity.SelectedFile) {
	cp := make([]entity.SelectedFile, len(files))
	for i, f := range files {
		cp[i] = f.Clone()
	}
	s.update("selected_files", func(st *State) { st.SelectedFiles = cp })
}

// SetCurrentTemplate replaces the active template; nil clears it.
func (s *Store) SetCurrentTemplate(t *entity.Template) {
	cp := t.Clone()
	s.update("current_template", func(st *State) { st.CurrentTemplate = cp })
}

func (s *Store) SetProcessingMode(m constants.ProcessingMode) {
	s.update("processing_mode", func(st *State) { st.ProcessingMode = m })
}

func (s *Store) SetOutputFormat(f constants.ExportFormat) {
	s.update("output_format", func(st *State) { st.OutputFormat = f })
}

func (s *Store) SetProcessingState(processing bool) {
	s.update("is_processing", func(st *State) { st.IsProcessing = processing })
}

// AddResult appends r to the results.
func (s *Store) AddResult(r entity.ExtractionResult) {
	cp := r.Clone()
	s.update("results", func(st *State) { st.Results = append(st.Results, cp) })
}

// AddError appends e to the errors.
func (s *Store) AddError(e entity.ErrorRecord) {
	s.update("errors", func(st *State) { st.Errors = append(st.Errors, e) })
}

func (s *Store) ClearResults() {
	s.update("results", func(st *State) { st.Results = []entity.ExtractionResult{} })
}

func (s *Store) ClearErrors() {
	s.update("errors", func(st *State) { st.Errors = []entity.ErrorRecord{} })
}

// Reset restores every field to its default.
func (s *Store) Reset() {
	s.update("*", func(st *State) { *st = Default() })
}

// update applies fn to a copy of the state and notifies listeners when the result differs.
func (s *Store) update(field string, fn func(st *State)) {
	s.mu.Lock()
	prev := s.state
	next := prev.Clone()
	fn(&next)
	if reflect.DeepEqual(prev, next) {
		s.mu.Unlock()
		return
	}
	s.state = next

	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	var nextView, prevView State
	if len(listeners) > 0 {
		nextView, prevView = next.Clone(), prev.Clone()
	}
	s.mu.Unlock()

	s.logger.Debug("state.changed", "field", field, "listeners", len(listeners))
	for _, l := range listeners {
		l(nextView.Clone(), prevView.Clone())
	}
}
