package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stepform/stepform/internal/schema"
	"github.com/stepform/stepform/internal/uploads"
	"github.com/stepform/stepform/pkg/logging"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing; larger
// file parts spill to disk.
const maxMultipartMemory = 32 << 20

// TokenMinter mints the form token embedded in the rendered form.
type TokenMinter interface {
	Mint() (string, error)
}

// TestNotifier sends a synthetic admin notification.
type TestNotifier interface {
	SendTest(ctx context.Context) error
}

// SchemaStore is the read/write schema access the admin endpoints need.
type SchemaStore interface {
	SchemaSource
	Set(ctx context.Context, sch schema.Schema) error
	SetSettings(ctx context.Context, settings schema.Settings) error
}

// CaptchaInfo is the client-visible captcha configuration surfaced with the
// public schema.
type CaptchaInfo struct {
	Enabled bool   `json:"enabled"`
	Type    string `json:"type,omitempty"`
	SiteKey string `json:"site_key,omitempty"`
}

// Handler handles HTTP requests for the form and its submissions.
type Handler struct {
	pipeline *Pipeline
	repo     Repository
	schemas  SchemaStore
	tokens   TokenMinter
	notifier TestNotifier
	captcha  CaptchaInfo
	logger   *logging.Logger
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Pipeline *Pipeline
	Repo     Repository
	Schemas  SchemaStore
	Tokens   TokenMinter
	Notifier TestNotifier
	Captcha  CaptchaInfo
	Logger   *logging.Logger
}

// NewHandler creates the submission handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Pipeline == nil {
		panic("submission: pipeline required")
	}
	if cfg.Repo == nil {
		panic("submission: repository required")
	}
	if cfg.Schemas == nil {
		panic("submission: schema store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		pipeline: cfg.Pipeline,
		repo:     cfg.Repo,
		schemas:  cfg.Schemas,
		tokens:   cfg.Tokens,
		notifier: cfg.Notifier,
		captcha:  cfg.Captcha,
		logger:   cfg.Logger,
	}
}

type submitResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id,omitempty"`
	Step         int    `json:"step,omitempty"`
}

// SubmitForm handles POST /api/v1/forms/submit.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.logger.Error("failed to parse multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, submitResponse{Success: false, Message: "Invalid form data"})
		return
	}

	raw, closeFiles := parseRawSubmission(r)
	defer closeFiles()

	meta := Meta{
		FormToken:    r.FormValue("form_token"),
		CaptchaToken: captchaToken(r),
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	}

	id, message, err := h.pipeline.Submit(r.Context(), raw, meta)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, submitResponse{Success: false, Message: verr.Message, Step: verr.Step})
			return
		}
		writeJSON(w, http.StatusInternalServerError, submitResponse{Success: false, Message: "Failed to save submission"})
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{Success: true, Message: message, SubmissionID: id})
}

type publicSchemaResponse struct {
	Schema    schema.Schema `json:"schema"`
	FormToken string        `json:"form_token,omitempty"`
	Captcha   CaptchaInfo   `json:"captcha"`
	Tracker   bool          `json:"show_tracker"`
}

// GetPublicSchema handles GET /api/v1/forms/schema: the schema plus the
// rendering hints the client needs, including a fresh form token.
func (h *Handler) GetPublicSchema(w http.ResponseWriter, r *http.Request) {
	sch, err := h.schemas.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load schema", "error", err)
		http.Error(w, "failed to load form", http.StatusInternalServerError)
		return
	}
	settings, err := h.schemas.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		settings = schema.DefaultSettings()
	}

	resp := publicSchemaResponse{
		Schema:  sch,
		Captcha: h.captcha,
		Tracker: settings.ShowTracker,
	}
	if h.tokens != nil {
		token, err := h.tokens.Mint()
		if err != nil {
			h.logger.Error("failed to mint form token", "error", err)
			http.Error(w, "failed to load form", http.StatusInternalServerError)
			return
		}
		resp.FormToken = token
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSchema handles GET /admin/schema.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	sch, err := h.schemas.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load schema", "error", err)
		http.Error(w, "failed to load schema", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

// PutSchema handles PUT /admin/schema: validates and saves the new structure.
func (h *Handler) PutSchema(w http.ResponseWriter, r *http.Request) {
	var sch schema.Schema
	if err := json.NewDecoder(r.Body).Decode(&sch); err != nil {
		http.Error(w, "invalid schema payload", http.StatusBadRequest)
		return
	}
	if err := h.schemas.Set(r.Context(), sch); err != nil {
		if isSchemaError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to save schema", "error", err)
		http.Error(w, "failed to save schema", http.StatusInternalServerError)
		return
	}
	h.logger.Info("schema saved", "steps", len(sch))
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /admin/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.schemas.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /admin/settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings schema.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	if err := h.schemas.SetSettings(r.Context(), settings); err != nil {
		h.logger.Error("failed to save settings", "error", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubmissionsResponse is the response for listing submissions.
type ListSubmissionsResponse struct {
	Submissions []*Submission `json:"submissions"`
	Total       int           `json:"total"`
	Offset      int           `json:"offset"`
	Limit       int           `json:"limit"`
}

// ListSubmissions handles GET /admin/submissions.
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Limit: defaultListLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	filter.Status = r.URL.Query().Get("status")
	filter.Search = r.URL.Query().Get("search")

	subs, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list submissions", "error", err)
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	if subs == nil {
		subs = []*Submission{}
	}

	writeJSON(w, http.StatusOK, ListSubmissionsResponse{
		Submissions: subs,
		Total:       total,
		Offset:      filter.Offset,
		Limit:       filter.Limit,
	})
}

// GetSubmission handles GET /admin/submissions/{id}. Viewing a new submission
// marks it read.
func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "submission not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load submission", "error", err, "id", id)
		http.Error(w, "failed to load submission", http.StatusInternalServerError)
		return
	}

	if sub.Status == StatusNew {
		if err := h.repo.UpdateStatus(r.Context(), id, StatusRead); err != nil {
			h.logger.Error("failed to mark submission read", "error", err, "id", id)
		} else {
			sub.Status = StatusRead
		}
	}

	writeJSON(w, http.StatusOK, sub)
}

// UpdateSubmissionStatus handles PUT /admin/submissions/{id}/status.
func (h *Handler) UpdateSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status != StatusNew && req.Status != StatusRead {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "submission not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update status", "error", err, "id", id)
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSubmission handles DELETE /admin/submissions/{id}.
func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "submission not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete submission", "error", err, "id", id)
		http.Error(w, "failed to delete submission", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDeleteSubmissions handles POST /admin/submissions/bulk-delete.
func (h *Handler) BulkDeleteSubmissions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, "no ids given", http.StatusBadRequest)
		return
	}

	deleted, err := h.repo.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error("failed to bulk delete submissions", "error", err)
		http.Error(w, "failed to delete submissions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// DailyCounts handles GET /admin/submissions/daily-counts.
func (h *Handler) DailyCounts(w http.ResponseWriter, r *http.Request) {
	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 && d <= 90 {
			days = d
		}
	}

	counts, err := h.repo.DailyCounts(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to load daily counts", "error", err)
		http.Error(w, "failed to load daily counts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// SendTestNotification handles POST /admin/notifications/test.
func (h *Handler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil {
		http.Error(w, "notifications not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.notifier.SendTest(r.Context()); err != nil {
		h.logger.Error("test notification failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// parseRawSubmission maps the multipart form onto a RawSubmission. Custom
// values arrive as custom[<field_id>]; uploads use the same key shape. The
// returned func closes every opened file part.
func parseRawSubmission(r *http.Request) (*RawSubmission, func()) {
	raw := &RawSubmission{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Message: r.FormValue("message"),
		Custom:  make(map[string]string),
		Files:   make(map[string]*uploads.File),
	}

	var closers []func()
	if r.MultipartForm != nil {
		for key, values := range r.MultipartForm.Value {
			fid, ok := customFieldID(key)
			if !ok || len(values) == 0 {
				continue
			}
			raw.Custom[fid] = values[0]
		}
		for key, headers := range r.MultipartForm.File {
			fid, ok := customFieldID(key)
			if !ok || len(headers) == 0 {
				continue
			}
			fh := headers[0]
			f, err := fh.Open()
			if err != nil {
				continue
			}
			closers = append(closers, func() { f.Close() })
			raw.Files[fid] = &uploads.File{
				Name:    fh.Filename,
				Size:    fh.Size,
				Content: f,
			}
		}
	}

	return raw, func() {
		for _, c := range closers {
			c()
		}
	}
}

func customFieldID(key string) (string, bool) {
	if !strings.HasPrefix(key, "custom[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	fid := key[len("custom[") : len(key)-1]
	return fid, fid != ""
}

// captchaToken accepts both the v3 token field and the v2 widget field.
func captchaToken(r *http.Request) string {
	if token := r.FormValue("captcha_token"); token != "" {
		return token
	}
	return r.FormValue("g-recaptcha-response")
}

// clientIP prefers the forwarded address set by the RealIP middleware, which
// rewrites RemoteAddr to a bare IP without a port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isSchemaError(err error) bool {
	return errors.Is(err, schema.ErrNoSteps) ||
		errors.Is(err, schema.ErrDuplicateStepID) ||
		errors.Is(err, schema.ErrDuplicateFieldID) ||
		errors.Is(err, schema.ErrInvalidField) ||
		errors.Is(err, schema.ErrInvalidCondition)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
