// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/pipelines/csvload"
	store "github.com/mdhender/mdip/stores/sqlite"
	"github.com/mdhender/mdip/web/auth"
	"github.com/mdhender/mdip/web/handlers"
)

type testServer struct {
	store   *store.SQLiteStore
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	sessions := auth.NewSessionStore()
	h := handlers.New(s, sessions, csvload.NewLoader(s), handlers.Options{BcryptCost: auth.MinCost})

	u, err := s.RegisterUser(context.Background(), "alice", "Secret1", "admin", auth.MinCost)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	session := sessions.Create(auth.User{ID: u.ID, Username: u.Username, Role: u.Role})

	return &testServer{
		store:   s,
		handler: h.Routes(),
		cookie:  &http.Cookie{Name: auth.SessionCookieName, Value: session.ID},
	}
}

func (ts *testServer) do(r *http.Request, signedIn bool) *httptest.ResponseRecorder {
	if signedIn {
		r.AddCookie(ts.cookie)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil), true)
}

func (ts *testServer) post(path string, form url.Values, signedIn bool) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(r, signedIn)
}

func (ts *testServer) upload(t *testing.T, table, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("table", table); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("Accept", "application/json")
	return ts.do(r, true)
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, prefix string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, prefix) {
		t.Errorf("expected redirect to %s, got %s", prefix, loc)
	}
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/dashboard", "/incidents", "/datasets", "/tickets", "/settings", "/upload"} {
		w := ts.do(httptest.NewRequest(http.MethodGet, path, nil), false)
		expectRedirect(t, w, "/login")
	}

	if w := ts.get("/dashboard"); w.Code != http.StatusOK {
		t.Errorf("expected dashboard for signed-in user, got %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post("/login", url.Values{"username": {"alice"}, "password": {"Secret1"}}, false)
	expectRedirect(t, w, "/dashboard")
	if len(w.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}

	w = ts.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Invalid username or password") {
		t.Errorf("expected login error, got %d", w.Code)
	}
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post("/register", url.Values{"username": {"bob"}, "password": {"Passw0rd"}, "confirm": {"Passw0rd"}}, false)
	expectRedirect(t, w, "/login?flash=")

	w = ts.post("/register", url.Values{"username": {"bob"}, "password": {"Passw0rd"}, "confirm": {"Passw0rd"}}, false)
	if !strings.Contains(w.Body.String(), "already exists") {
		t.Error("expected duplicate username error")
	}

	w = ts.post("/register", url.Values{"username": {"carol"}, "password": {"weak"}, "confirm": {"weak"}}, false)
	if !strings.Contains(w.Body.String(), "at least 5 characters") {
		t.Error("expected password strength error")
	}
}

func TestIncidentLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post("/incidents", url.Values{
		"date":          {"2024-05-01"},
		"incident_type": {"Phishing"},
		"severity":      {"High"},
		"status":        {"Open"},
		"description":   {"Suspicious email"},
	}, true)
	expectRedirect(t, w, "/incidents?flash=")

	list, err := ts.store.ListIncidents(context.Background(), model.IncidentFilter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one incident, got %v, %v", list, err)
	}
	if list[0].ReportedBy != "alice" {
		t.Errorf("expected reporter alice, got %q", list[0].ReportedBy)
	}

	w = ts.get("/incidents")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Suspicious email") {
		t.Errorf("expected incident in page, got %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/incidents?severity=Low", nil)
	r.Header.Set("HX-Request", "true")
	w = ts.do(r, true)
	if strings.Contains(w.Body.String(), "<html") || !strings.Contains(w.Body.String(), "No incidents found") {
		t.Error("expected a filtered partial")
	}

	id := list[0].ID
	path := "/incidents/" + itoa(id)
	expectRedirect(t, ts.post(path+"/status", url.Values{"status": {"Resolved"}}, true), "/incidents")
	expectRedirect(t, ts.post(path+"/delete", nil, true), "/incidents")
	if w := ts.post(path+"/delete", nil, true); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
	if w := ts.post("/incidents/abc/delete", nil, true); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad id, got %d", w.Code)
	}
}

func TestDatasets(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post("/datasets", url.Values{
		"dataset_name": {"Sales"},
		"category":     {"Finance"},
		"record_count": {"100"},
		"file_size_mb": {"1.5"},
	}, true)
	expectRedirect(t, w, "/datasets?flash=")

	w = ts.post("/datasets", url.Values{"dataset_name": {"Bad"}, "record_count": {"many"}}, true)
	expectRedirect(t, w, "/datasets?error=")

	list, err := ts.store.ListDatasets(context.Background(), "")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one dataset, got %v, %v", list, err)
	}
	expectRedirect(t, ts.post("/datasets/"+itoa(list[0].ID)+"/records", url.Values{"record_count": {"250"}}, true), "/datasets?flash=")

	w = ts.get("/datasets")
	if !strings.Contains(w.Body.String(), `value="250"`) {
		t.Error("expected updated record count in page")
	}
}

func TestTickets(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{"ticket_id": {"T-100"}, "subject": {"VPN down"}, "priority": {"High"}}
	expectRedirect(t, ts.post("/tickets", form, true), "/tickets?flash=")
	expectRedirect(t, ts.post("/tickets", form, true), "/tickets?error=")

	expectRedirect(t, ts.post("/tickets/T-100/status", url.Values{"status": {"Resolved"}}, true), "/tickets?flash=")
	if w := ts.post("/tickets/T-404/status", url.Values{"status": {"Resolved"}}, true); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w := ts.get("/tickets")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "VPN down") {
		t.Errorf("expected ticket in page, got %d", w.Code)
	}
	expectRedirect(t, ts.post("/tickets/T-100/delete", nil, true), "/tickets?flash=")
}

type uploadResult struct {
	Success           bool   `json:"success"`
	Code              string `json:"code"`
	RowsRead          int    `json:"rowsRead"`
	RowsWritten       int    `json:"rowsWritten"`
	DuplicatesDropped int    `json:"duplicatesDropped"`
	ExistingSkipped   int    `json:"existingSkipped"`
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t)
	csv := "ticket_id,priority,status,subject\nA1,High,Open,x\nA1,Low,Open,y\nA2,Low,Open,z\n"

	var resp uploadResult

	w := ts.upload(t, "it_tickets", "tickets.csv", csv)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.RowsRead != 3 || resp.RowsWritten != 2 || resp.DuplicatesDropped != 1 {
		t.Errorf("unexpected first upload result %+v", resp)
	}

	resp = uploadResult{}
	w = ts.upload(t, "it_tickets", "tickets.csv", csv)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RowsWritten != 0 || resp.ExistingSkipped != 2 {
		t.Errorf("unexpected second upload result %+v", resp)
	}

	w = ts.upload(t, "datasets_metadata", "datasets.csv", "dataset_name,owner\nSales,bob\n")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), csvload.ErrCodeSchemaMismatch) {
		t.Errorf("expected schema mismatch, got %d: %s", w.Code, w.Body.String())
	}

	w = ts.upload(t, "sqlite_master", "x.csv", "a\n1\n")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown table, got %d", w.Code)
	}

	w = ts.get("/upload")
	if !strings.Contains(w.Body.String(), "tickets.csv") {
		t.Error("expected load history on upload page")
	}
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post("/settings/password", url.Values{"current": {"wrong"}, "password": {"NewPass1"}, "confirm": {"NewPass1"}}, true)
	expectRedirect(t, w, "/settings?error=")

	w = ts.post("/settings/password", url.Values{"current": {"Secret1"}, "password": {"NewPass1"}, "confirm": {"Other1x"}}, true)
	expectRedirect(t, w, "/settings?error=")

	w = ts.post("/settings/password", url.Values{"current": {"Secret1"}, "password": {"NewPass1"}, "confirm": {"NewPass1"}}, true)
	expectRedirect(t, w, "/settings?flash=")

	if u, _ := ts.store.ValidateCredentials(context.Background(), "alice", "NewPass1"); u == nil {
		t.Error("expected new password to work")
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)

	expectRedirect(t, ts.post("/logout", nil, true), "/login")
	expectRedirect(t, ts.get("/dashboard"), "/login")
}

func TestStatic(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil), false)
	if w.Code != http.StatusOK {
		t.Errorf("expected stylesheet, got %d", w.Code)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
