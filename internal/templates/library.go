package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Library holds the named templates available to a run: the built-ins plus every
// *.yaml, *.yml and *.xlsx file found in its directory.
type Library struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	items map[string]entity.Template
}

func NewLibrary(dir string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{dir: dir, logger: logger, items: map[string]entity.Template{}}
}

// Load (re)reads the built-ins and the directory. A missing directory is not an error.
func (l *Library) Load() error {
	items := map[string]entity.Template{}
	builtins, err := decodeYAML(builtinYAML)
	if err != nil {
		return fmt.Errorf("builtin templates: %w", err)
	}
	for _, t := range builtins {
		t.Source = "builtin"
		items[key(t.Name)] = t
	}

	loaded := 0
	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Debug("templates.dir.missing", "dir", l.dir)
		case err != nil:
			return fmt.Errorf("read templates dir: %w", err)
		default:
			for _, e := range entries {
				if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
					continue
				}
				path := filepath.Join(l.dir, e.Name())
				ts, err := LoadFile(path)
				if err != nil {
					if errors.Is(err, common.ErrUnsupportedFormat) {
						continue
					}
					l.logger.Warn("templates.file.failed", "path", path, "error", err)
					continue
				}
				for _, t := range ts {
					items[key(t.Name)] = t
					loaded++
				}
			}
		}
	}

	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	l.logger.Info("templates.load.ok", "dir", l.dir, "from_dir", loaded, "total", len(items))
	return nil
}

// List returns every template sorted by name.
func (l *Library) List() []entity.Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.Template, 0, len(l.items))
	for _, t := range l.items {
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get finds a template by case-insensitive name.
func (l *Library) Get(name string) (*entity.Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.items[key(name)]
	if !ok {
		return nil, fmt.Errorf("template %q: %w", name, common.ErrNotFound)
	}
	return t.Clone(), nil
}

// Resolve accepts either a template name or a path to a template file.
func (l *Library) Resolve(ref string) (*entity.Template, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if t, err := l.Get(ref); err == nil {
		return t, nil
	}
	if _, err := os.Stat(ref); err == nil {
		ts, err := LoadFile(ref)
		if err != nil {
			return nil, err
		}
		if len(ts) == 0 {
			return nil, fmt.Errorf("template file %s is empty: %w", ref, common.ErrInvalidInput)
		}
		return ts[0].Clone(), nil
	}
	return nil, fmt.Errorf("template %q: %w", ref, common.ErrNotFound)
}

// LoadFile reads one template file. YAML files may hold one template or a list.
func LoadFile(path string) ([]entity.Template, error) {
	switch constants.ExtFromName(path) {
	case "yaml", "yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		ts, err := decodeYAML(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for i := range ts {
			ts[i].Source = path
		}
		return ts, nil
	case "xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		base := filepath.Base(path)
		t, err := FromXLSX(strings.TrimSuffix(base, filepath.Ext(base)), f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.Source = path
		return []entity.Template{*t}, nil
	default:
		return nil, fmt.Errorf("%s: %w", path, common.ErrUnsupportedFormat)
	}
}

// FromXLSX builds a template whose fields are the non-empty cells of the first row of the first sheet.
func FromXLSX(name string, r io.Reader) (*entity.Template, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", common.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	var fields []string
	if len(rows) > 0 {
		for _, c := range rows[0] {
			if c = strings.TrimSpace(c); c != "" {
				fields = append(fields, c)
			}
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("first row has no headers: %w", common.ErrInvalidInput)
	}
	return &entity.Template{Name: name, Fields: fields}, nil
}

func decodeYAML(b []byte) ([]entity.Template, error) {
	var list []entity.Template
	if err := yaml.NewDecoder(bytes.NewReader(b)).Decode(&list); err != nil {
		var one entity.Template
		if err2 := yaml.Unmarshal(b, &one); err2 != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		list = []entity.Template{one}
	}
	out := list[:0]
	for _, t := range list {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("template without name: %w", common.ErrInvalidInput)
		}
		out = append(out, t)
	}
	return out, nil
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }
