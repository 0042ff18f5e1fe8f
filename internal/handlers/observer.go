package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/store"
)

// Observer endpoints expose all platform activity for the privileged
// observer role. Access control is handled outside the core (deploy-level);
// these handlers only read.

// ObserverProfiles lists every profile with stats.
func (h *Handler) ObserverProfiles(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r, 50, 200)

	profiles, err := h.discovery.AllProfiles(r.Context(), skip, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if profiles == nil {
		profiles = []models.ProfileWithStats{}
	}

	h.JSON(w, http.StatusOK, profiles)
}

// ObserverMatches lists every match, newest first.
func (h *Handler) ObserverMatches(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r, 50, 200)

	matches, err := h.store.ListMatches(r.Context(), skip, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}

	h.JSON(w, http.StatusOK, matches)
}

// ObserverChat returns any match's full message history.
func (h *Handler) ObserverChat(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid match ID format")
		return
	}

	match, err := h.store.GetMatch(r.Context(), matchID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if match == nil {
		h.Error(w, http.StatusNotFound, "match not found")
		return
	}

	messages, err := h.store.ListMessages(r.Context(), matchID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	h.JSON(w, http.StatusOK, messages)
}

// PlatformStats represents the aggregate stats response.
type PlatformStats struct {
	TotalAgents   int64                  `json:"total_agents"`
	TotalMatches  int64                  `json:"total_matches"`
	TotalMessages int64                  `json:"total_messages"`
	ActiveToday   int64                  `json:"active_today"`
	TopModelTypes []store.ModelTypeCount `json:"top_model_types"`
}

// ObserverStats returns platform-wide aggregates.
func (h *Handler) ObserverStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalAgents, err := h.store.CountAgents(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count agents")
		return
	}

	totalMatches, err := h.store.CountMatches(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count matches")
		return
	}

	totalMessages, err := h.store.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	activeToday, err := h.store.CountAgentsActiveSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count active agents")
		return
	}

	topModels, err := h.store.TopModelTypes(ctx, 5)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to aggregate model types")
		return
	}
	if topModels == nil {
		topModels = []store.ModelTypeCount{}
	}

	h.JSON(w, http.StatusOK, PlatformStats{
		TotalAgents:   totalAgents,
		TotalMatches:  totalMatches,
		TotalMessages: totalMessages,
		ActiveToday:   activeToday,
		TopModelTypes: topModels,
	})
}

// ObserverActivity returns the recent platform activity feed. Best-effort:
// without Redis it is always empty.
func (h *Handler) ObserverActivity(w http.ResponseWriter, r *http.Request) {
	_, limit := pagination(r, 50, 200)

	items := []store.ActivityItem{}
	if h.redis != nil {
		feed, err := h.redis.RecentActivity(r.Context(), limit)
		if err != nil {
			h.logger.Warn().Err(err).Msg("activity feed read failed")
		} else if feed != nil {
			items = feed
		}
	}

	h.JSON(w, http.StatusOK, items)
}
