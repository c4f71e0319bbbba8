package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nijaru/yt-summary/apperrors"
	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/nijaru/yt-summary/summary"
	"github.com/nijaru/yt-summary/utils"
	"golang.org/x/time/rate"
)

type Handler struct {
	service        *summary.Service
	rateLimiter    *rate.Limiter
	ignorePlaylist bool
}

func NewHandler(service *summary.Service, cfg *config.Config) *Handler {
	return &Handler{
		service:        service,
		rateLimiter:    rate.NewLimiter(rate.Every(cfg.RateLimitInterval), cfg.RateLimit),
		ignorePlaylist: cfg.IgnorePlaylist,
	}
}

// Routes registers the public endpoints. The root path behaves like
// /summarize so the same handler can be mounted as a single function.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/summarize", h.Summarize)
	mux.HandleFunc("/transcript", h.Transcript)
	mux.HandleFunc("/health", HealthCheck)
	mux.HandleFunc("/", h.Summarize)
	return mux
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Summarize"

	if r.Method != http.MethodPost {
		utils.MethodNotAllowed(w, http.MethodPost)
		return
	}

	req, err := h.parseRequest(op, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.Summarize(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).WithField("url", req.URL).Info("Summary generated")
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Transcript"

	if r.Method != http.MethodPost {
		utils.MethodNotAllowed(w, http.MethodPost)
		return
	}

	req, err := h.parseRequest(op, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.Transcript(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, result)
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		utils.MethodNotAllowed(w, http.MethodGet)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseRequest reads the form fields and then applies the rate limit, so
// requests without a url do not spend tokens. The ignore_playlist field
// overrides the configured default when present.
func (h *Handler) parseRequest(op string, r *http.Request) (summary.Request, error) {
	url := strings.TrimSpace(r.FormValue("url"))
	if url == "" {
		return summary.Request{}, apperrors.MissingParameter(op, "url")
	}

	if !h.rateLimiter.Allow() {
		return summary.Request{}, apperrors.RateLimited(op)
	}

	return summary.Request{
		URL:                    url,
		AdditionalInstructions: r.FormValue("additional_instructions"),
		IgnorePlaylist:         formBool(r, "ignore_playlist", h.ignorePlaylist),
		Refresh:                formBool(r, "refresh", false),
	}, nil
}

func formBool(r *http.Request, name string, defaultValue bool) bool {
	if raw := r.FormValue(name); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return defaultValue
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := middleware.GetLogger(r.Context()).WithError(err).WithField("path", r.URL.Path)
	if apperrors.StatusCode(err) >= http.StatusInternalServerError {
		logger.Error("Request failed")
	} else {
		logger.Warn("Request rejected")
	}
	utils.HandleError(w, err)
}
