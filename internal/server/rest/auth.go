package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/server/services"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	Role                  string    `json:"role"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newAuthResponse(s *services.Session) authResponse {
	return authResponse{
		AccessToken:           s.AccessToken,
		AccessTokenExpiresAt:  s.AccessTokenExpiresAt,
		RefreshToken:          s.RefreshToken,
		RefreshTokenExpiresAt: s.RefreshTokenExpiresAt,
		Username:              s.User.Username,
		Email:                 s.User.Email,
		Role:                  s.User.Role,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(ctx, w, h.logger, "malformed request body")
		return
	}

	user, err := h.users.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	session, err := h.sessions.Issue(ctx, user)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(session))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(ctx, w, h.logger, "malformed request body")
		return
	}

	user, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	session, err := h.sessions.Issue(ctx, user)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(session))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(ctx, w, h.logger, "malformed request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(ctx, w, h.logger, &services.ValidationError{Fields: []services.FieldError{
			{Field: "refreshToken", Message: "refresh token is required"},
		}})
		return
	}

	session, err := h.sessions.Rotate(ctx, req.RefreshToken)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(session))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(ctx, w, h.logger, "malformed request body")
		return
	}

	if err := h.sessions.Revoke(ctx, req.RefreshToken); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	userID, _ := currentUserID(ctx)
	h.logger.Info(ctx, "user logged out", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
}
