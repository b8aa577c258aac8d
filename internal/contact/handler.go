package contact

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/portfolio-contact/internal/notify"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxBodyBytes    = 64 << 10
)

// Handler handles HTTP requests for the contact form
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new contact handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Routes mounts the public submit endpoint and, when admin is non-nil, the
// message management endpoints behind it.
func (h *Handler) Routes(submit, admin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if submit != nil {
		r.With(submit).Post("/", h.Submit)
	} else {
		r.Post("/", h.Submit)
	}
	if admin != nil {
		r.Route("/messages", func(m chi.Router) {
			m.Use(admin)
			m.Get("/", h.ListMessages)
			m.Patch("/{id}", h.UpdateMessage)
		})
	}
	return r
}

type errorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type submitResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	ContactID     string           `json:"contactId"`
	Notifications []notify.Outcome `json:"notifications"`
}

// Submit handles POST /contact requests
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&fields); err != nil {
		h.logger.Warn("failed to decode contact request", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}

	meta := RequestMeta{
		ClientIP:    clientIP(r),
		ClientAgent: r.UserAgent(),
	}

	result, err := h.svc.Submit(r.Context(), fields, meta)
	if err != nil {
		h.writeError(w, err)
		return
	}

	notifications := result.Notifications
	if notifications == nil {
		notifications = []notify.Outcome{}
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Success:       true,
		Message:       "Thank you for your message! I'll get back to you soon.",
		ContactID:     result.ID,
		Notifications: notifications,
	})
}

type pagination struct {
	Current      int `json:"current"`
	Total        int `json:"total"`
	Count        int `json:"count"`
	TotalRecords int `json:"totalRecords"`
}

type listResponse struct {
	Success bool     `json:"success"`
	Data    listData `json:"data"`
}

type listData struct {
	Contacts   []Submission   `json:"contacts"`
	Pagination pagination     `json:"pagination"`
	Stats      map[Status]int `json:"stats"`
}

// ListMessages handles GET /contact/messages requests
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	limit := defaultPageSize
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	// Keep (page-1)*limit representable.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	filter := ListFilter{
		Status:   Status(q.Get("status")),
		Priority: Priority(q.Get("priority")),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	result, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	stats := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		stats[s] = result.Stats[s]
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Data: listData{
			Contacts: result.Submissions,
			Pagination: pagination{
				Current:      page,
				Total:        int(math.Ceil(float64(result.Total) / float64(limit))),
				Count:        len(result.Submissions),
				TotalRecords: result.Total,
			},
			Stats: stats,
		},
	})
}

type updateRequest struct {
	Status   *Status   `json:"status"`
	Priority *Priority `json:"priority"`
	Notes    *string   `json:"notes"`
}

type updateResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *Submission `json:"data"`
}

// UpdateMessage handles PATCH /contact/messages/{id} requests
func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "missing contact id"})
		return
	}

	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}

	sub, err := h.svc.Update(r.Context(), id, AdminPatch{
		Status:   req.Status,
		Priority: req.Priority,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateResponse{
		Success: true,
		Message: "Contact updated successfully",
		Data:    sub,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	var perr *PersistenceError
	switch {
	case errors.As(err, &perr) && perr.Schema:
		resp := errorResponse{Message: "Validation error"}
		if errors.As(perr.Err, &verr) {
			resp.Errors = verr.Messages
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &perr):
		h.logger.Error("contact persistence failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Something went wrong. Please try again later."})
	case errors.As(err, &verr) && verr.Kind == KindMissingRequiredField:
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Please provide all required fields", Errors: verr.Messages})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: verr.Messages})
	case errors.Is(err, ErrSubmissionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Contact not found"})
	default:
		h.logger.Error("contact request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Something went wrong. Please try again later."})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware has
// already rewritten from X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
