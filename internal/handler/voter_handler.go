package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"election-service/internal/auth"
	"election-service/internal/models"
	"election-service/internal/service"
	"election-service/internal/util"
)

const registeredMessage = "Voter registered successfully. Awaiting admin verification."

// VoterHandler serves the account endpoints used by the voter portal.
type VoterHandler struct {
	voters *service.VoterService
	logger *zap.Logger
}

func NewVoterHandler(voters *service.VoterService, logger *zap.Logger) *VoterHandler {
	return &VoterHandler{voters: voters, logger: logger}
}

type RegisterResponse struct {
	Message string        `json:"message"`
	Voter   *models.Voter `json:"voter"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *VoterHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register/", h.Register)
	r.Post("/login/", h.Login)
	r.Post("/refresh/", h.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(h.voters, h.logger))
		r.Post("/logout/", h.Logout)
		r.With(RequireRole(models.RoleVoter, h.logger)).Get("/voter/status/", h.Status)
	})
}

func (h *VoterHandler) Register(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	voter, err := h.voters.Register(r.Context(), &req)
	if err != nil {
		respondWithServiceError(h.logger, w, err, "Failed to register voter")
		return
	}

	respondWithJSON(h.logger, w, http.StatusCreated, RegisterResponse{Message: registeredMessage, Voter: voter})
	h.logger.Debug("Voter registered via HTTP",
		util.String("voter_id", voter.ID),
		util.Duration("duration", time.Since(startTime)))
}

func (h *VoterHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		fields := service.FieldErrors{}
		if req.Username == "" {
			fields.Add("username", "This field is required.")
		}
		if req.Password == "" {
			fields.Add("password", "This field is required.")
		}
		respondWithJSON(h.logger, w, http.StatusBadRequest, fields)
		return
	}

	pair, err := h.voters.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		message := "No active account found with the given credentials"
		if errors.Is(err, service.ErrAccountLocked) {
			message = "Too many failed attempts"
		}
		respondWithServiceError(h.logger, w, err, message)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, pair)
}

func (h *VoterHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		respondWithJSON(h.logger, w, http.StatusBadRequest, service.FieldErrors{"refresh": {"This field is required."}})
		return
	}

	pair, err := h.voters.Refresh(r.Context(), req.Refresh)
	if err != nil {
		respondWithServiceError(h.logger, w, err, "Token is invalid or expired")
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, pair)
}

// Logout revokes the access token and the refresh token when one is posted.
func (h *VoterHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req RefreshRequest
	if r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.voters.Logout(r.Context(), claims, req.Refresh); err != nil {
		respondWithServiceError(h.logger, w, err, "Failed to log out")
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Status returns the caller's own verification status.
func (h *VoterHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	status, err := h.voters.Status(r.Context(), claims.UserID)
	if err != nil {
		respondWithServiceError(h.logger, w, err, "Failed to load verification status")
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, models.StatusResponse{IsVerified: status})
}
