package apiapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/rekap/internal/artifacts"
	"github.com/phillip-england/rekap/internal/attendance"
	"github.com/phillip-england/rekap/internal/config"
	"github.com/phillip-england/rekap/internal/envutil"
	"github.com/phillip-england/rekap/internal/letter"
	"github.com/phillip-england/rekap/internal/middleware"
	"github.com/phillip-england/rekap/internal/spreadsheet"
)

const (
	uploadFieldName       = "attendance_file"
	defaultMaxUploadBytes = 32 << 20
	workbookContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Config struct {
	Addr           string
	ConfigPath     string
	OutputDir      string
	RunTTL         time.Duration
	SweepSchedule  string
	MaxUploadBytes int64
}

type server struct {
	store     *artifacts.Store
	settings  config.Config
	renderer  *letter.Renderer
	maxUpload int64
	now       func() time.Time
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:           envutil.OrDefault("API_ADDR", ":8080"),
		ConfigPath:     envutil.OrDefault("REKAP_CONFIG", config.DefaultPath),
		OutputDir:      envutil.OrDefault("REKAP_OUTPUT_DIR", "output"),
		RunTTL:         envutil.Duration("REKAP_RUN_TTL", 24*time.Hour),
		SweepSchedule:  envutil.OrDefault("REKAP_SWEEP_SCHEDULE", "0 * * * *"),
		MaxUploadBytes: envutil.Int64("REKAP_MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
	}
}

func newServer(cfg Config) (*server, error) {
	settings, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load recap settings: %w", err)
	}
	renderer, err := settings.Renderer()
	if err != nil {
		return nil, fmt.Errorf("prepare letter renderer: %w", err)
	}
	store, err := artifacts.NewStore(cfg.OutputDir, cfg.RunTTL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &server{
		store:     store,
		settings:  settings,
		renderer:  renderer,
		maxUpload: cfg.MaxUploadBytes,
		now:       time.Now,
	}, nil
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/health", http.HandlerFunc(s.health))
	mux.Handle("/api/recap", http.HandlerFunc(s.recap))
	mux.Handle("/api/runs/", http.HandlerFunc(s.runsHandler))

	return middleware.Chain(
		mux,
		middleware.Logging(nil),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'"}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	s, err := newServer(cfg)
	if err != nil {
		return err
	}
	log.Printf("recap settings: %s", s.settings.Summary())
	if err := s.store.StartSweeper(ctx, cfg.SweepSchedule); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("api listening on http://localhost%s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) recap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid upload form")
		return
	}

	opts, err := s.settings.Options()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	threshold, err := thresholdFromForm(r, opts.Threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Threshold = threshold

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "attendance file is required")
		return
	}
	defer file.Close()
	if !spreadsheet.SupportedExtension(header.Filename) {
		writeError(w, http.StatusBadRequest, spreadsheet.ErrUnsupportedFormat.Error())
		return
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read uploaded file")
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	sheets, err := spreadsheet.ReadWorkbook(bytes.NewReader(raw), header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, stats, err := attendance.Run(sheets, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := s.store.NewRun(header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to create run")
		return
	}
	if err := run.WriteFile(filepath.Base(run.SourcePath()), func(w io.Writer) error {
		_, err := w.Write(raw)
		return err
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "unable to store upload")
		return
	}
	if err := Generate(run, report, s.renderer, s.settings.LetterLocale(), s.now()); err != nil {
		log.Printf("recap %s failed: %v", run.ID, err)
		writeError(w, http.StatusInternalServerError, "unable to generate recap files")
		return
	}
	if err := run.Save(); err != nil {
		writeError(w, http.StatusInternalServerError, "unable to save run")
		return
	}

	log.Printf("recap %s (%s): %s", run.ID, run.SourceName, describeRun(report, stats))
	writeJSON(w, http.StatusCreated, newRecapResponse(run, report, stats))
}

func thresholdFromForm(r *http.Request, current attendance.Threshold) (attendance.Threshold, error) {
	if raw := strings.TrimSpace(r.FormValue("threshold")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return current, errors.New("threshold must be a whole number of days")
		}
		current.Days = days
	}
	if raw := strings.TrimSpace(r.FormValue("inclusive")); raw != "" {
		current.Inclusive = parseBoolValue(raw)
	}
	return current, nil
}

func (s *server) runsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.EscapedPath(), "/api/runs/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		http.NotFound(w, r)
		return
	}
	run, err := s.store.Open(parts[0])
	if err != nil {
		if errors.Is(err, artifacts.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "unable to load run")
		return
	}

	switch {
	case len(parts) == 1:
		writeJSON(w, http.StatusOK, newRunResponse(run))
	case len(parts) == 2 && parts[1] == "workbook":
		serveRunFile(w, r, run, run.Workbook, workbookContentType)
	case len(parts) == 2 && parts[1] == "bundle":
		w.Header().Set("Content-Type", "application/x-xz")
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(run.BundleName()))
		if err := run.WriteBundle(w); err != nil {
			log.Printf("bundle %s failed: %v", run.ID, err)
		}
	case len(parts) == 3 && parts[1] == "letters":
		employeeID, err := url.PathUnescape(parts[2])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		name, ok := run.Letters[attendance.CleanID(employeeID)]
		if !ok {
			writeError(w, http.StatusNotFound, "letter not found")
			return
		}
		serveRunFile(w, r, run, name, "application/pdf")
	default:
		http.NotFound(w, r)
	}
}

func serveRunFile(w http.ResponseWriter, r *http.Request, run *artifacts.Run, name, contentType string) {
	f, err := run.OpenFile(name)
	if err != nil {
		if errors.Is(err, artifacts.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "unable to open file")
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	_, _ = io.Copy(w, f)
}

func parseBoolValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
