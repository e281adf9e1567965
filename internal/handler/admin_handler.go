package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"election-service/internal/auth"
	"election-service/internal/models"
	"election-service/internal/service"
	"election-service/internal/util"
)

var errInvalidAction = errors.New("invalid action")

// AdminHandler serves the review endpoints of the admin dashboard.
type AdminHandler struct {
	voters *service.VoterService
	logger *zap.Logger
}

func NewAdminHandler(voters *service.VoterService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{voters: voters, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(Authenticator(h.voters, h.logger))
	r.Use(RequireRole(models.RoleAdmin, h.logger))

	r.Get("/voters/", h.ListVoters)
	r.Patch("/voters/{voterID}/verify/", h.Verify)
	r.Get("/voters/{voterID}/history/", h.History)
	r.Get("/analytics/", h.Analytics)
}

func (h *AdminHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.voters.ListVoters(r.Context())
	if err != nil {
		respondWithServiceError(h.logger, w, err, "Failed to list voters")
		return
	}
	if voters == nil {
		voters = []*models.Voter{}
	}
	respondWithJSON(h.logger, w, http.StatusOK, voters)
}

// Verify records the admin decision. is_verified may be a boolean or the strings
// "true" and "false".
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	voterID := chi.URLParam(r, "voterID")
	claims, _ := auth.ClaimsFromContext(r.Context())

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(h.logger, w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	decision, err := parseDecision(body["is_verified"])
	if err != nil {
		respondWithError(h.logger, w, http.StatusBadRequest, err, "is_verified must be true or false")
		return
	}

	voter, err := h.voters.Decide(r.Context(), voterID, decision, claims.UserID)
	if err != nil {
		respondWithServiceError(h.logger, w, err, decisionFailureMessage(err))
		return
	}

	h.logger.Info("Verification decided via HTTP",
		util.String("voter_id", voterID),
		util.String("status", voter.Status.Label()),
		util.String("request_id", middleware.GetReqID(r.Context())))
	respondWithJSON(h.logger, w, http.StatusOK, voter)
}

func parseDecision(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, errInvalidAction
}

func decisionFailureMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrVoterNotFound):
		return "Voter not found"
	case errors.Is(err, service.ErrAlreadyDecided):
		return "This voter has already been verified or rejected"
	default:
		return "Failed to update verification"
	}
}

func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.voters.DecisionHistory(r.Context(), chi.URLParam(r, "voterID"))
	if err != nil {
		respondWithServiceError(h.logger, w, err, "Failed to load decision history")
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, history)
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.voters.Analytics(r.Context())
	if err != nil {
		respondWithServiceError(h.logger, w, err, "Failed to load analytics")
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, stats)
}
