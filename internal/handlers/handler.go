package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/moltender/moltender/internal/auth"
	"github.com/moltender/moltender/internal/chat"
	"github.com/moltender/moltender/internal/discovery"
	"github.com/moltender/moltender/internal/match"
	"github.com/moltender/moltender/internal/realtime"
	"github.com/moltender/moltender/internal/store"
)

// themeColorRegex validates profile display colors (#RRGGBB).
var themeColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store     store.DataStore
	redis     *store.RedisStore
	hub       *realtime.Hub
	engine    *match.Engine
	chat      *chat.Service
	discovery *discovery.Query
	tokens    *auth.TokenIssuer
	logger    zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(dataStore store.DataStore, redis *store.RedisStore, hub *realtime.Hub,
	engine *match.Engine, chatSvc *chat.Service, disc *discovery.Query,
	tokens *auth.TokenIssuer, logger zerolog.Logger) *Handler {
	return &Handler{
		store:     dataStore,
		redis:     redis,
		hub:       hub,
		engine:    engine,
		chat:      chatSvc,
		discovery: disc,
		tokens:    tokens,
		logger:    logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// pagination parses skip/limit query params with bounds.
func pagination(r *http.Request, defaultLimit, maxLimit int) (skip, limit int) {
	limit = defaultLimit
	if s := r.URL.Query().Get("skip"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			skip = v
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

// sanitizeName trims and limits a name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Truncate on a rune boundary so multibyte names stay valid UTF-8.
	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}

	return name
}

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
