package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stepform/stepform/internal/schema"
)

type stubSchemaStore struct {
	sch      schema.Schema
	settings schema.Settings
}

func (s *stubSchemaStore) Get(ctx context.Context) (schema.Schema, error) { return s.sch, nil }
func (s *stubSchemaStore) GetSettings(ctx context.Context) (schema.Settings, error) {
	return s.settings, nil
}
func (s *stubSchemaStore) Set(ctx context.Context, sch schema.Schema) error {
	if err := sch.Validate(); err != nil {
		return err
	}
	s.sch = sch
	return nil
}
func (s *stubSchemaStore) SetSettings(ctx context.Context, settings schema.Settings) error {
	s.settings = settings
	return nil
}

type stubMinter struct{}

func (stubMinter) Mint() (string, error) { return "minted-token", nil }

func newTestHandler(t *testing.T) (*Handler, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	store := &stubSchemaStore{sch: validatorSchema(), settings: schema.DefaultSettings()}
	pipeline := NewPipeline(PipelineConfig{
		Schemas:   store,
		Validator: newTestValidator(),
		Repo:      repo,
	})
	h := NewHandler(HandlerConfig{
		Pipeline: pipeline,
		Repo:     repo,
		Schemas:  store,
		Tokens:   stubMinter{},
	})
	return h, repo
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/forms/submit", h.SubmitForm)
	r.Get("/api/v1/forms/schema", h.GetPublicSchema)
	r.Get("/admin/schema", h.GetSchema)
	r.Put("/admin/schema", h.PutSchema)
	r.Get("/admin/submissions", h.ListSubmissions)
	r.Get("/admin/submissions/{id}", h.GetSubmission)
	r.Patch("/admin/submissions/{id}/status", h.UpdateSubmissionStatus)
	r.Delete("/admin/submissions/{id}", h.DeleteSubmission)
	r.Post("/admin/submissions/bulk-delete", h.BulkDeleteSubmissions)
	r.Get("/admin/submissions/daily-counts", h.DailyCounts)
	return r
}

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSubmitFormSuccess(t *testing.T) {
	h, repo := newTestHandler(t)
	router := testRouter(h)

	req := multipartRequest(t, map[string]string{
		"name":                    "Ada Lovelace",
		"email":                   "ada@example.com",
		"message":                 "Hello there",
		"custom[field_subscribe]": "No",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.SubmissionID == "" {
		t.Errorf("resp = %+v", resp)
	}

	if _, err := repo.GetByID(context.Background(), resp.SubmissionID); err != nil {
		t.Errorf("submission not persisted: %v", err)
	}
}

func TestSubmitFormValidationErrorCarriesStep(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	req := multipartRequest(t, map[string]string{
		"name":    "Ada",
		"email":   "not-an-email",
		"message": "Hello",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("Success = true")
	}
	if resp.Step != 1 {
		t.Errorf("Step = %d, want 1", resp.Step)
	}
	if resp.Message != "Please enter a valid email address" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestGetPublicSchemaIncludesFormToken(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forms/schema", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		FormToken string          `json:"form_token"`
		Schema    json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.FormToken != "minted-token" {
		t.Errorf("form_token = %q", resp.FormToken)
	}
	if !strings.Contains(string(resp.Schema), "step_1") {
		t.Errorf("schema payload = %s", resp.Schema)
	}
}

func TestGetSubmissionMarksRead(t *testing.T) {
	h, repo := newTestHandler(t)
	router := testRouter(h)

	sub := &Submission{Name: "Ada", Email: "ada@example.com", Fields: map[string]string{}}
	if err := repo.Create(context.Background(), sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/submissions/"+sub.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusRead {
		t.Errorf("response status = %q, want read", got.Status)
	}

	stored, _ := repo.GetByID(context.Background(), sub.ID)
	if stored.Status != StatusRead {
		t.Errorf("stored status = %q, want read", stored.Status)
	}
}

func TestPutSchemaRejectsInvalid(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	body := strings.NewReader(`[]`)
	req := httptest.NewRequest(http.MethodPut, "/admin/schema", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPutSchemaRoundTrip(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	payload, err := json.Marshal(schema.Default())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, "/admin/schema", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/schema", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got schema.Schema
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "step_1" {
		t.Errorf("schema = %+v", got)
	}
}

func TestBulkDeleteSubmissions(t *testing.T) {
	h, repo := newTestHandler(t)
	router := testRouter(h)

	a := &Submission{Name: "Ada", Fields: map[string]string{}}
	b := &Submission{Name: "Grace", Fields: map[string]string{}}
	repo.Create(context.Background(), a)
	repo.Create(context.Background(), b)

	body, _ := json.Marshal(map[string][]string{"ids": {a.ID, b.ID}})
	req := httptest.NewRequest(http.MethodPost, "/admin/submissions/bulk-delete", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["deleted"] != 2 {
		t.Errorf("deleted = %d", resp["deleted"])
	}
}

func TestListSubmissionsEmpty(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/submissions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ListSubmissionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Submissions == nil {
		t.Error("Submissions is null, want empty array")
	}
	if resp.Total != 0 {
		t.Errorf("Total = %d", resp.Total)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/forms/submit", nil)
		r.RemoteAddr = tc.remoteAddr
		if got := clientIP(r); got != tc.want {
			t.Errorf("clientIP(%q) = %q, want %q", tc.remoteAddr, got, tc.want)
		}
	}
}
