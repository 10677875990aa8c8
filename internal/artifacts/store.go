// Package artifacts keeps the transient files produced by recap runs: the
// uploaded workbook, the recap workbook and the warning letters.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("run not found")

const manifestName = "manifest.json"

// Store owns one directory per run under Root.
type Store struct {
	Root string
	TTL  time.Duration

	mu  sync.Mutex
	now func() time.Time
}

func NewStore(root string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("artifacts root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts root %s: %w", root, err)
	}
	return &Store{Root: root, TTL: ttl, now: time.Now}, nil
}

// Manifest describes the files of one run.
type Manifest struct {
	ID         string            `json:"id"`
	SourceName string            `json:"sourceName"`
	CreatedAt  time.Time         `json:"createdAt"`
	Workbook   string            `json:"workbook,omitempty"`
	Letters    map[string]string `json:"letters,omitempty"`
}

// Run is an open run directory.
type Run struct {
	Manifest
	Dir string
}

// NewRun creates an empty run directory for an upload named sourceName.
func (s *Store) NewRun(sourceName string) (*Run, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.Root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	run := &Run{
		Manifest: Manifest{
			ID:         id,
			SourceName: SanitizeFilename(filepath.Base(sourceName)),
			CreatedAt:  s.now().UTC(),
			Letters:    map[string]string{},
		},
		Dir: dir,
	}
	if err := run.Save(); err != nil {
		return nil, err
	}
	return run, nil
}

// DirRun writes run files straight into dir, as the one-shot processor does.
// The run has no ID and is never swept.
func DirRun(dir, sourceName string, created time.Time) (*Run, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &Run{
		Manifest: Manifest{
			SourceName: SanitizeFilename(filepath.Base(sourceName)),
			CreatedAt:  created.UTC(),
			Letters:    map[string]string{},
		},
		Dir: dir,
	}, nil
}

// Open loads a run by ID. IDs that are not UUIDs never touch the filesystem.
func (s *Store) Open(id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRunNotFound
	}
	dir := filepath.Join(s.Root, id)
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Letters == nil {
		m.Letters = map[string]string{}
	}
	return &Run{Manifest: m, Dir: dir}, nil
}

func (r *Run) Save() error {
	data, err := json.MarshalIndent(r.Manifest, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(r.Dir, manifestName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, filepath.Join(r.Dir, manifestName))
}

// BaseName is the upload name without its extension.
func (r *Run) BaseName() string {
	return strings.TrimSuffix(r.SourceName, filepath.Ext(r.SourceName))
}

func (r *Run) SourcePath() string {
	return filepath.Join(r.Dir, r.CreatedAt.Format("20060102_150405")+"_"+r.SourceName)
}

func (r *Run) WorkbookName() string {
	return "hasil_rekap_" + r.BaseName() + ".xlsx"
}

func (r *Run) LetterName(employeeID string) string {
	return "surat_panggilan_" + SanitizeFilename(employeeID) + "_" + r.BaseName() + ".pdf"
}

// Create opens a file inside the run directory for writing.
func (r *Run) Create(name string) (*os.File, error) {
	name = SanitizeFilename(filepath.Base(name))
	f, err := os.OpenFile(filepath.Join(r.Dir, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return f, nil
}

// WriteFile streams fn's output into name inside the run directory.
func (r *Run) WriteFile(name string, fn func(io.Writer) error) error {
	f, err := r.Create(name)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	return f.Close()
}

// OpenFile opens a file recorded in the manifest.
func (r *Run) OpenFile(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, ErrRunNotFound
	}
	f, err := os.Open(filepath.Join(r.Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return f, nil
}

// Files lists the regular files of the run, sorted, manifest excluded.
func (r *Run) Files() ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && e.Name() != manifestName && !strings.HasSuffix(e.Name(), ".tmp") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Sweep removes runs older than the TTL and returns how many were removed.
func (s *Store) Sweep() (int, error) {
	if s.TTL <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return 0, fmt.Errorf("list artifacts root: %w", err)
	}
	cutoff := s.now().Add(-s.TTL)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.Root, e.Name())); err != nil {
			return removed, fmt.Errorf("remove run %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// SanitizeFilename replaces characters that are unsafe in file names.
func SanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	s = replacer.Replace(strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		return "file"
	}
	return s
}
