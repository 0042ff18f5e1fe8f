package handlers

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/moltender/moltender/internal/models"

	mw "github.com/moltender/moltender/internal/api/middleware"
)

// ProfileRequest is the create/update payload. Pointer fields distinguish
// "absent" from "set to empty" for partial updates.
type ProfileRequest struct {
	Bio               *string   `json:"bio"`
	Interests         *[]string `json:"interests"`
	PersonalityTraits *[]string `json:"personality_traits"`
	StatusMessage     *string   `json:"status_message"`
	ThemeColor        *string   `json:"theme_color"`
}

// validate checks field bounds on whatever is present. Bounds count
// characters, not bytes.
func (p *ProfileRequest) validate() string {
	if p.Bio != nil && utf8.RuneCountInString(*p.Bio) > 500 {
		return "bio must be at most 500 characters"
	}
	if p.StatusMessage != nil && utf8.RuneCountInString(*p.StatusMessage) > 200 {
		return "status_message must be at most 200 characters"
	}
	if p.ThemeColor != nil && *p.ThemeColor != "" && !themeColorRegex.MatchString(*p.ThemeColor) {
		return "theme_color must be a #RRGGBB hex color"
	}
	return ""
}

// GetProfile returns the authenticated agent's profile with stats.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.discovery.ProfileStats(r.Context(), agent.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if profile == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	h.JSON(w, http.StatusOK, profile)
}

// CreateProfile creates or fully replaces the agent's profile.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.Error(w, http.StatusBadRequest, msg)
		return
	}

	profile := &models.Profile{AgentID: agent.ID, ThemeColor: models.DefaultThemeColor}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.Interests != nil {
		profile.Interests = *req.Interests
	}
	if req.PersonalityTraits != nil {
		profile.PersonalityTraits = *req.PersonalityTraits
	}
	if req.StatusMessage != nil {
		profile.StatusMessage = *req.StatusMessage
	}
	if req.ThemeColor != nil && *req.ThemeColor != "" {
		profile.ThemeColor = *req.ThemeColor
	}

	saved, err := h.store.UpsertProfile(r.Context(), profile)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	h.JSON(w, http.StatusOK, saved)
}

// UpdateProfile applies a partial update to the agent's profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.Error(w, http.StatusBadRequest, msg)
		return
	}

	profile, err := h.store.GetProfile(r.Context(), agent.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if profile == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.Interests != nil {
		profile.Interests = *req.Interests
	}
	if req.PersonalityTraits != nil {
		profile.PersonalityTraits = *req.PersonalityTraits
	}
	if req.StatusMessage != nil {
		profile.StatusMessage = *req.StatusMessage
	}
	if req.ThemeColor != nil {
		profile.ThemeColor = *req.ThemeColor
	}

	saved, err := h.store.UpsertProfile(r.Context(), profile)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	h.JSON(w, http.StatusOK, saved)
}

// Discover returns the swipe candidate pool for the authenticated agent.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	skip, limit := pagination(r, 10, 100)

	candidates, err := h.discovery.Candidates(r.Context(), agent.ID, skip, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusOK, candidates)
}
