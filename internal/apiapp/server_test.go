package apiapp

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	dir := t.TempDir()
	s, err := newServer(Config{
		ConfigPath: filepath.Join(dir, "missing.yaml"),
		OutputDir:  filepath.Join(dir, "runs"),
		RunTTL:     time.Hour,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func buildAttendanceWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	rows := [][]any{
		{"Perusahaan", "Nama", "ID", "Tgl/Waktu", "Mesin_ID", "Kolom6", "Status", "Kolom8"},
		{"PT. QUANTUM", "Budi", "119", "01/01/2024 07:55:00", 1},
		{"PT. QUANTUM", "Budi", "119.0", "02/01/2024 07:30:00", 1},
		{"PT. QUANTUM", "Sari", "7", "01/01/2024 07:10:00", 1},
		{"PT. QUANTUM", "Sari", "7", "06/01/2024 08:01:00", 1},
		{"PT. QUANTUM", "nan", "8", "03/01/2024 07:00:00", 1},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func postUpload(t *testing.T, h http.Handler, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile(uploadFieldName, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/recap", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(newTestServer(t).handler(), "/api/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}
}

func TestRecapProducesRunFiles(t *testing.T) {
	h := newTestServer(t).handler()
	rec := postUpload(t, h, "Absensi Januari.xlsx", buildAttendanceWorkbook(t), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp recapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.WorkingDays != 6 || resp.PeriodStart != "2024-01-01" || resp.PeriodEnd != "2024-01-06" {
		t.Fatalf("unexpected period: %+v", resp)
	}
	if resp.Stats.Kept != 4 || resp.Stats.Dropped["missing_name"] != 1 {
		t.Fatalf("unexpected stats: %+v", resp.Stats)
	}
	if resp.Threshold.Label != "≥3" {
		t.Fatalf("unexpected threshold label %q", resp.Threshold.Label)
	}
	if len(resp.Tables) != 4 || resp.Tables[2].Title != "Jumlah Kehadiran" || resp.Tables[3].Title != "Tidak Hadir ≥3 Hari" {
		t.Fatalf("unexpected tables: %+v", resp.Tables)
	}
	summary := resp.Tables[2]
	if len(summary.Rows) != 2 || summary.Rows[0].EmployeeID != "7" || summary.Rows[1].EmployeeID != "119" {
		t.Fatalf("unexpected summary rows: %+v", summary.Rows)
	}
	if summary.Rows[0].Highlighted || !summary.Rows[1].Highlighted {
		t.Fatalf("expected only 119 highlighted: %+v", summary.Rows)
	}
	if len(resp.Escalations) != 2 || resp.Escalations[0].EmployeeID != "7" || resp.Escalations[1].DaysAbsent != 4 {
		t.Fatalf("unexpected escalations: %+v", resp.Escalations)
	}
	if got := strings.Join(resp.Escalations[1].AbsentDates, ","); got != "2024-01-03,2024-01-04,2024-01-05,2024-01-06" {
		t.Fatalf("unexpected absent dates %s", got)
	}

	wb := get(h, resp.WorkbookURL)
	if wb.Code != http.StatusOK || wb.Header().Get("Content-Type") != workbookContentType {
		t.Fatalf("unexpected workbook response %d %s", wb.Code, wb.Header().Get("Content-Type"))
	}
	if !strings.Contains(wb.Header().Get("Content-Disposition"), "hasil_rekap_Absensi_Januari.xlsx") {
		t.Fatalf("unexpected disposition %q", wb.Header().Get("Content-Disposition"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(wb.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	if got := strings.Join(f.GetSheetList(), "|"); got != "Karyawan Telat|Karyawan Tidak Hadir|Jumlah Kehadiran|Tidak Hadir ≥3 Hari" {
		t.Fatalf("unexpected sheets %s", got)
	}

	letter := get(h, resp.Escalations[1].LetterURL)
	if letter.Code != http.StatusOK || !bytes.HasPrefix(letter.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("unexpected letter response %d", letter.Code)
	}

	bundle := get(h, resp.BundleURL)
	if bundle.Code != http.StatusOK {
		t.Fatalf("unexpected bundle status %d", bundle.Code)
	}
	xr, err := xz.NewReader(bytes.NewReader(bundle.Body.Bytes()))
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	tr := tar.NewReader(xr)
	var names []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read bundle: %v", err)
		}
		names = append(names, header.Name)
	}
	sort.Strings(names)
	want := []string{
		"hasil_rekap_Absensi_Januari.xlsx",
		"surat_panggilan_119_Absensi_Januari.pdf",
		"surat_panggilan_7_Absensi_Januari.pdf",
	}
	if len(names) != 4 || !strings.HasSuffix(names[0], "_Absensi_Januari.xlsx") || strings.Join(names[1:], ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected bundle entries %v", names)
	}

	info := get(h, "/api/runs/"+resp.RunID)
	var run runResponse
	if err := json.Unmarshal(info.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if len(run.Letters) != 2 || run.WorkbookURL != resp.WorkbookURL {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestRecapThresholdOverride(t *testing.T) {
	h := newTestServer(t).handler()
	rec := postUpload(t, h, "absen.xlsx", buildAttendanceWorkbook(t), map[string]string{"threshold": "4", "inclusive": "false"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp recapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Threshold.Label != ">4" || len(resp.Escalations) != 0 {
		t.Fatalf("expected no escalations above 4 days: %+v", resp)
	}
	if len(resp.Tables) != 3 {
		t.Fatalf("expected escalation table to be omitted, got %d tables", len(resp.Tables))
	}
}

func TestRecapRejectsBadRequests(t *testing.T) {
	h := newTestServer(t).handler()
	workbook := buildAttendanceWorkbook(t)

	cases := []struct {
		name     string
		filename string
		data     []byte
		fields   map[string]string
	}{
		{name: "missing file"},
		{name: "csv upload", filename: "absen.csv", data: []byte("a,b,c")},
		{name: "empty upload", filename: "absen.xlsx"},
		{name: "corrupt workbook", filename: "absen.xlsx", data: []byte("not a workbook")},
		{name: "bad threshold", filename: "absen.xlsx", data: workbook, fields: map[string]string{"threshold": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postUpload(t, h, tc.filename, tc.data, tc.fields)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Fatalf("expected json error body, got %s", rec.Body.String())
			}
		})
	}

	if rec := get(h, "/api/recap"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestRunsNotFound(t *testing.T) {
	h := newTestServer(t).handler()
	if rec := get(h, "/api/runs/not-a-run/workbook"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec := postUpload(t, h, "absen.xlsx", buildAttendanceWorkbook(t), nil)
	var resp recapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec := get(h, "/api/runs/"+resp.RunID+"/letters/999"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown letter, got %d", rec.Code)
	}
	if rec := get(h, "/api/runs/"+resp.RunID+"/unknown"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown resource, got %d", rec.Code)
	}
}
