package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/logging"
	"github.com/advn1/rback/internal/server/auth"
	"github.com/advn1/rback/internal/server/models"
	"github.com/advn1/rback/internal/server/services"
)

// AuthService is the subset of services.UserService the handlers use.
type AuthService interface {
	Register(ctx context.Context, name, password, email string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	IdentifyRefresh(presented string) (auth.Identity, error)
	Refresh(ctx context.Context, presented string, caller auth.Identity) (*services.TokenPair, error)
	Logout(ctx context.Context, presented string) error
}

type handlers struct {
	users  AuthService
	logger logging.Logger
}

type registerRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	NewAccessToken  string `json:"new_access_token"`
	NewRefreshToken string `json:"new_refresh_token"`
}

type meResponse struct {
	UserID    int64          `json:"user_id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	TokenType auth.TokenType `json:"token_type"`
	ExpiresAt int64          `json:"exp"`
}

func (h *handlers) logFailure(r *http.Request, op string, err error) {
	h.logger.Error(r.Context(), op+" failed", "error", err.Error())
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Password, req.Email)
	if err != nil {
		if isServerFault(err) {
			h.logFailure(r, "register", err)
		}
		writeServiceError(w, err, "refresh_token")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{Message: "User registered successfully", UserID: user.ID})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if header, present := r.Header[common.AuthorizationHeaderName]; present {
		msg := "Not bearer"
		if len(header) > 0 && strings.HasPrefix(header[0], common.BearerPrefix) {
			msg = "Already authorized"
		}
		writeError(w, http.StatusConflict, "Authorization error", detail(common.AuthorizationHeaderName, msg))
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if isServerFault(err) {
			h.logFailure(r, "login", err)
		}
		writeServiceError(w, err, "refresh_token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	caller, err := h.users.IdentifyRefresh(req.RefreshToken)
	if err != nil {
		writeServiceError(w, err, "refresh_token")
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken, caller)
	if err != nil {
		if isServerFault(err) {
			h.logFailure(r, "refresh", err)
		}
		writeServiceError(w, err, "refresh_token")
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{NewAccessToken: pair.AccessToken, NewRefreshToken: pair.RefreshToken})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.users.Logout(r.Context(), req.RefreshToken); err != nil {
		if isServerFault(err) {
			h.logFailure(r, "logout", err)
		}
		writeServiceError(w, err, "refresh_token")
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		UserID:    claims.UserID,
		Name:      claims.Name,
		Email:     claims.Email,
		TokenType: claims.TokenType,
		ExpiresAt: claims.Expiry().Unix(),
	})
}
