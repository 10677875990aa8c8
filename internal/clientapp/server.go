package clientapp

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/phillip-england/rekap/internal/envutil"
	"github.com/phillip-england/rekap/internal/middleware"
)

const uploadFieldName = "attendance_file"

type Config struct {
	Addr          string
	APIBaseURL    string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	UploadTimeout time.Duration
}

type pageData struct {
	Error     string
	Threshold string
	Exclusive bool
	Result    *recapView
}

type thresholdView struct {
	Days      int    `json:"days"`
	Inclusive bool   `json:"inclusive"`
	Label     string `json:"label"`
}

type statsView struct {
	Sheets   int            `json:"sheets"`
	RowsRead int            `json:"rowsRead"`
	Kept     int            `json:"kept"`
	Dropped  map[string]int `json:"dropped"`
}

type tableRowView struct {
	EmployeeID  string `json:"employeeId"`
	Highlighted bool   `json:"highlighted"`
	Cells       []any  `json:"cells"`
}

type tableView struct {
	Key     string         `json:"key"`
	Title   string         `json:"title"`
	Columns []string       `json:"columns"`
	Rows    []tableRowView `json:"rows"`
}

type escalationView struct {
	EmployeeID   string   `json:"employeeId"`
	EmployeeName string   `json:"employeeName"`
	DaysAbsent   int      `json:"daysAbsent"`
	AbsentDates  []string `json:"absentDates"`
	Highlighted  bool     `json:"highlighted"`
	LetterURL    string   `json:"letterUrl"`
}

type recapView struct {
	RunID       string           `json:"runId"`
	SourceName  string           `json:"sourceName"`
	PeriodStart string           `json:"periodStart"`
	PeriodEnd   string           `json:"periodEnd"`
	WorkingDays int              `json:"workingDays"`
	Threshold   thresholdView    `json:"threshold"`
	Highlighted []string         `json:"highlighted"`
	Stats       statsView        `json:"stats"`
	Tables      []tableView      `json:"tables"`
	Escalations []escalationView `json:"escalations"`
	WorkbookURL string           `json:"workbookUrl"`
	BundleURL   string           `json:"bundleUrl"`
}

func (r recapView) Dropped() int {
	total := 0
	for _, n := range r.Stats.Dropped {
		total += n
	}
	return total
}

//go:embed templates/index.html templates/result.html
var templatesFS embed.FS

type server struct {
	apiBaseURL string
	apiClient  *http.Client
	indexTmpl  *template.Template
	resultTmpl *template.Template
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:          envutil.OrDefault("CLIENT_ADDR", ":3000"),
		APIBaseURL:    envutil.OrDefault("API_BASE_URL", "http://localhost:8080"),
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  2 * time.Minute,
		UploadTimeout: envutil.Duration("REKAP_UPLOAD_TIMEOUT", 90*time.Second),
	}
}

func newServer(cfg Config) *server {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 90 * time.Second
	}
	return &server{
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		apiClient:  &http.Client{Timeout: cfg.UploadTimeout},
		indexTmpl:  template.Must(template.ParseFS(templatesFS, "templates/index.html")),
		resultTmpl: template.Must(template.ParseFS(templatesFS, "templates/result.html")),
	}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.indexPage))
	mux.Handle("/recap", http.HandlerFunc(s.recapProxy))
	mux.Handle("/runs/", http.HandlerFunc(s.downloadProxy))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.Logging(nil),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	s := newServer(cfg)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("client listening on http://localhost%s", cfg.Addr)
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

func (s *server) indexPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := renderHTMLTemplate(w, s.indexTmpl, pageData{}); err != nil {
		http.Error(w, "unable to render page", http.StatusInternalServerError)
	}
}

func (s *server) renderFormError(w http.ResponseWriter, status int, data pageData, message string) {
	data.Error = message
	var buf bytes.Buffer
	if err := s.indexTmpl.Execute(&buf, data); err != nil {
		log.Printf("render upload form: %v", err)
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) recapProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.renderFormError(w, http.StatusBadRequest, pageData{}, "Invalid upload")
		return
	}
	data := pageData{
		Threshold: strings.TrimSpace(r.FormValue("threshold")),
		Exclusive: r.FormValue("exclusive") != "",
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		s.renderFormError(w, http.StatusBadRequest, data, "Attendance file is required")
		return
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	dst, err := writer.CreateFormFile(uploadFieldName, header.Filename)
	if err != nil {
		s.renderFormError(w, http.StatusInternalServerError, data, "Unable to prepare upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		s.renderFormError(w, http.StatusBadRequest, data, "Unable to read upload")
		return
	}
	if data.Threshold != "" {
		_ = writer.WriteField("threshold", data.Threshold)
	}
	if data.Exclusive {
		_ = writer.WriteField("inclusive", "false")
	}
	if err := writer.Close(); err != nil {
		s.renderFormError(w, http.StatusInternalServerError, data, "Unable to finalize upload")
		return
	}

	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.apiBaseURL+"/api/recap", &body)
	if err != nil {
		s.renderFormError(w, http.StatusInternalServerError, data, "Unable to send upload")
		return
	}
	apiReq.Header.Set("Content-Type", writer.FormDataContentType())
	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		s.renderFormError(w, http.StatusBadGateway, data, "Service unavailable")
		return
	}
	defer apiResp.Body.Close()
	respBody, _ := io.ReadAll(apiResp.Body)
	if apiResp.StatusCode != http.StatusCreated && apiResp.StatusCode != http.StatusOK {
		msg := "Unable to process attendance file"
		var errPayload map[string]string
		if err := json.Unmarshal(respBody, &errPayload); err == nil && strings.TrimSpace(errPayload["error"]) != "" {
			msg = errPayload["error"]
		}
		status := apiResp.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		s.renderFormError(w, status, data, msg)
		return
	}

	var result recapView
	if err := json.Unmarshal(respBody, &result); err != nil {
		s.renderFormError(w, http.StatusBadGateway, data, "Invalid response from recap service")
		return
	}
	localizeURLs(&result)
	data.Result = &result
	if err := renderHTMLTemplate(w, s.resultTmpl, data); err != nil {
		http.Error(w, "unable to render page", http.StatusInternalServerError)
	}
}

// localizeURLs points API download links at this server's download proxy.
func localizeURLs(result *recapView) {
	result.WorkbookURL = clientURL(result.WorkbookURL)
	result.BundleURL = clientURL(result.BundleURL)
	for i := range result.Escalations {
		result.Escalations[i].LetterURL = clientURL(result.Escalations[i].LetterURL)
	}
}

func clientURL(apiURL string) string {
	if apiURL == "" {
		return ""
	}
	return strings.TrimPrefix(apiURL, "/api")
}

func (s *server) downloadProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.apiBaseURL+"/api"+r.URL.EscapedPath(), nil)
	if err != nil {
		http.Error(w, "invalid download", http.StatusBadRequest)
		return
	}
	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Error(w, "service unavailable", http.StatusBadGateway)
		return
	}
	defer apiResp.Body.Close()
	if apiResp.StatusCode != http.StatusOK {
		if apiResp.StatusCode == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "unable to download file", http.StatusBadGateway)
		return
	}
	for _, key := range []string{"Content-Type", "Content-Disposition", "Content-Length"} {
		if value := apiResp.Header.Get(key); value != "" {
			w.Header().Set(key, value)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, apiResp.Body)
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}
