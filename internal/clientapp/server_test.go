package clientapp

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const recapPayload = `{
  "runId": "3b241101-e2bb-4255-8caf-4136c566a962",
  "sourceName": "absen.xlsx",
  "periodStart": "2024-01-01",
  "periodEnd": "2024-01-06",
  "workingDays": 6,
  "threshold": {"days": 3, "inclusive": true, "label": "≥3"},
  "stats": {"sheets": 1, "rowsRead": 5, "kept": 4, "dropped": {"missing_name": 1}},
  "tables": [
    {"key": "AttendanceSummary", "title": "Jumlah Kehadiran", "columns": ["ID", "Nama", "Jumlah Hadir", "Jumlah Telat", "Jumlah Tidak Hadir"],
     "rows": [
       {"employeeId": "7", "highlighted": false, "cells": ["7", "Sari", 2, 1, 4]},
       {"employeeId": "119", "highlighted": true, "cells": ["119", "Budi", 2, 1, 4]}
     ]}
  ],
  "escalations": [
    {"employeeId": "119", "employeeName": "Budi", "daysAbsent": 4, "absentDates": ["2024-01-03"], "highlighted": true,
     "letterUrl": "/api/runs/3b241101-e2bb-4255-8caf-4136c566a962/letters/119"}
  ],
  "workbookUrl": "/api/runs/3b241101-e2bb-4255-8caf-4136c566a962/workbook",
  "bundleUrl": "/api/runs/3b241101-e2bb-4255-8caf-4136c566a962/bundle"
}`

type apiStub struct {
	lastThreshold string
	lastInclusive string
	lastFilename  string
}

func (a *apiStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/recap", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("stub parse form: %v", err)
		}
		a.lastThreshold = r.FormValue("threshold")
		a.lastInclusive = r.FormValue("inclusive")
		file, header, err := r.FormFile("attendance_file")
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"attendance file is required"}`))
			return
		}
		defer file.Close()
		a.lastFilename = header.Filename
		if strings.HasSuffix(header.Filename, ".csv") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported file type; upload an .xls or .xlsx workbook"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(recapPayload))
	})
	mux.HandleFunc("/api/runs/3b241101-e2bb-4255-8caf-4136c566a962/workbook", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="hasil_rekap_absen.xlsx"`)
		_, _ = w.Write([]byte("xlsx-bytes"))
	})
	return mux
}

func newTestClient(t *testing.T) (*apiStub, http.Handler) {
	t.Helper()
	stub := &apiStub{}
	api := httptest.NewServer(stub.handler(t))
	t.Cleanup(api.Close)
	s := newServer(Config{APIBaseURL: api.URL + "/", UploadTimeout: 5 * time.Second})
	return stub, s.handler()
}

func postForm(t *testing.T, h http.Handler, filename string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		part, err := mw.CreateFormFile("attendance_file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte("workbook"))
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/recap", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexPage(t *testing.T) {
	_, h := newTestClient(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="attendance_file"`) {
		t.Fatalf("unexpected index page %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown page, got %d", rec.Code)
	}
}

func TestRecapRendersTables(t *testing.T) {
	stub, h := newTestClient(t)
	rec := postForm(t, h, "absen.xlsx", map[string]string{"threshold": "5", "exclusive": "1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastFilename != "absen.xlsx" || stub.lastThreshold != "5" || stub.lastInclusive != "false" {
		t.Fatalf("upload not forwarded: %+v", stub)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Jumlah Kehadiran",
		`<tr class="vip"><td>119</td>`,
		`href="/runs/3b241101-e2bb-4255-8caf-4136c566a962/workbook"`,
		`href="/runs/3b241101-e2bb-4255-8caf-4136c566a962/letters/119"`,
		"1 dilewati",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
	if strings.Contains(body, `<tr class="vip"><td>7</td>`) {
		t.Fatalf("employee 7 should not be highlighted")
	}
}

func TestRecapShowsAPIError(t *testing.T) {
	_, h := newTestClient(t)
	rec := postForm(t, h, "absen.csv", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported file type") {
		t.Fatalf("expected api error on page, got %s", rec.Body.String())
	}

	rec = postForm(t, h, "", nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Attendance file is required") {
		t.Fatalf("expected missing file error, got %d", rec.Code)
	}
}

func TestDownloadProxy(t *testing.T) {
	_, h := newTestClient(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/3b241101-e2bb-4255-8caf-4136c566a962/workbook", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, _ := io.ReadAll(rec.Body)
	if string(data) != "xlsx-bytes" || !strings.Contains(rec.Header().Get("Content-Disposition"), "hasil_rekap_absen.xlsx") {
		t.Fatalf("unexpected download %q %q", data, rec.Header().Get("Content-Disposition"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/3b241101-e2bb-4255-8caf-4136c566a962/bundle", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 passthrough, got %d", rec.Code)
	}
}
