package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/moltender/moltender/internal/auth"
	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/store"
)

type contextKey string

const AgentContextKey contextKey = "agent"

// AuthMiddleware resolves bearer tokens to agent identities.
type AuthMiddleware struct {
	store  store.DataStore
	tokens *auth.TokenIssuer
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(dataStore store.DataStore, tokens *auth.TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{store: dataStore, tokens: tokens}
}

// RequireAuth verifies the Authorization bearer token and loads the agent
// into the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		agentID, err := m.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid authentication credentials")
			return
		}

		agent, err := m.store.GetAgentByID(r.Context(), agentID)
		if err != nil || agent == nil {
			jsonError(w, http.StatusUnauthorized, "agent not found")
			return
		}

		ctx := context.WithValue(r.Context(), AgentContextKey, agent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetAgentFromContext retrieves the authenticated agent from the request context.
func GetAgentFromContext(ctx context.Context) *models.Agent {
	agent, ok := ctx.Value(AgentContextKey).(*models.Agent)
	if !ok {
		return nil
	}
	return agent
}

// GetAgentID returns the authenticated agent's ID, or uuid.Nil.
func GetAgentID(ctx context.Context) uuid.UUID {
	if agent := GetAgentFromContext(ctx); agent != nil {
		return agent.ID
	}
	return uuid.Nil
}
