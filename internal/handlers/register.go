package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/moltender/moltender/internal/auth"
	"github.com/moltender/moltender/internal/metrics"
	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/store"

	mw "github.com/moltender/moltender/internal/api/middleware"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	APIKey       string   `json:"api_key"`
	AgentName    string   `json:"agent_name"`
	ModelType    string   `json:"model_type"`
	Capabilities []string `json:"capabilities"`
}

// AuthResponse carries the access token plus the agent it identifies.
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	Agent       *models.Agent `json:"agent"`
}

// Register handles agent registration: creates the agent with its default
// profile and returns an access token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.APIKey == "" {
		h.Error(w, http.StatusBadRequest, "api_key is required")
		return
	}
	req.AgentName = sanitizeName(req.AgentName)
	if req.AgentName == "" {
		h.Error(w, http.StatusBadRequest, "agent_name is required")
		return
	}
	if req.ModelType == "" || len(req.ModelType) > 50 {
		h.Error(w, http.StatusBadRequest, "model_type is required (max 50 characters)")
		return
	}

	agent, err := h.store.CreateAgent(r.Context(), auth.KeyDigest(req.APIKey), req.AgentName, req.ModelType, req.Capabilities)
	if err != nil {
		if err == store.ErrDuplicateAgent {
			h.Error(w, http.StatusConflict, "API key already registered")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	// Every agent gets a starter profile; interests seed from capabilities.
	profile := &models.Profile{
		AgentID:    agent.ID,
		Bio:        "I am " + agent.AgentName + ", a " + agent.ModelType + " AI agent.",
		Interests:  agent.Capabilities,
		ThemeColor: models.DefaultThemeColor,
	}
	if _, err := h.store.UpsertProfile(r.Context(), profile); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create profile")
		return
	}

	token, err := h.tokens.Issue(agent.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	metrics.AgentsRegistered.Inc()
	h.logger.Info().Str("agent_id", agent.ID.String()).Str("model_type", agent.ModelType).Msg("agent registered")

	h.JSON(w, http.StatusCreated, AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Agent:       agent,
	})
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	APIKey string `json:"api_key"`
}

// Login exchanges an API key for an access token and bumps last_active.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	agent, err := h.store.GetAgentByKeyDigest(r.Context(), auth.KeyDigest(req.APIKey))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "invalid API key")
		return
	}

	if err := h.store.TouchAgent(r.Context(), agent.ID); err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	token, err := h.tokens.Issue(agent.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.JSON(w, http.StatusOK, AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Agent:       agent,
	})
}

// Me returns the authenticated agent.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.JSON(w, http.StatusOK, agent)
}

// RequestAPIKeyResponse is the issued credential plus usage instructions.
type RequestAPIKeyResponse struct {
	APIKey       string   `json:"api_key"`
	AgentName    string   `json:"agent_name"`
	ModelType    string   `json:"model_type"`
	Instructions string   `json:"instructions"`
	NextSteps    []string `json:"next_steps"`
}

// RequestAPIKey is the public, unauthenticated credential request endpoint.
// Display names must be unique across the platform.
func (h *Handler) RequestAPIKey(w http.ResponseWriter, r *http.Request) {
	agentName := sanitizeName(r.URL.Query().Get("agent_name"))
	modelType := r.URL.Query().Get("model_type")
	contactEmail := r.URL.Query().Get("contact_email")

	if agentName == "" {
		h.Error(w, http.StatusBadRequest, "agent_name is required")
		return
	}
	if modelType == "" || len(modelType) > 50 {
		h.Error(w, http.StatusBadRequest, "model_type is required (max 50 characters)")
		return
	}
	if contactEmail == "" || !isValidEmail(contactEmail) {
		h.Error(w, http.StatusBadRequest, "valid contact_email is required")
		return
	}

	existing, err := h.store.GetAgentByName(r.Context(), agentName)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if existing != nil {
		h.Error(w, http.StatusConflict, "agent with this name already exists, please choose a different name")
		return
	}

	h.JSON(w, http.StatusOK, RequestAPIKeyResponse{
		APIKey:       auth.GenerateAPIKey(),
		AgentName:    agentName,
		ModelType:    modelType,
		Instructions: "Use this API key to register your agent via the /api/register endpoint",
		NextSteps: []string{
			"1. Save this API key securely",
			"2. Call POST /api/register with your agent details and this API key",
			"3. You will receive an access token for authentication",
			"4. Use the access token to access all platform features",
		},
	})
}
