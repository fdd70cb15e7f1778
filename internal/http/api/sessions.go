package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/http/middleware"
	"example.com/amadvs/internal/platform/jwt"
	"example.com/amadvs/internal/platform/password"
	"example.com/amadvs/internal/session"
)

type sessionResponse struct {
	SessionID string           `json:"sessionId,omitempty"`
	Session   session.Snapshot `json:"session"`
	Tokens    *tokenPair       `json:"tokens,omitempty"`
}

func (s *Service) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.CreateSession()
	jsonStatus(w, http.StatusCreated, sessionResponse{SessionID: sess.ID, Session: sess.Store.Snapshot()})
}

func (s *Service) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	jsonOK(w, sessionResponse{SessionID: sess.ID, Session: sess.Store.Snapshot()})
}

func (s *Service) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.sessions.EndSession(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// storeStatus maps a session store error to an HTTP status.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, core.ErrPendingApproval):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrEmailTaken), errors.Is(err, session.ErrAbandoned):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, password.ErrTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &in); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if err := sess.Store.Login(r.Context(), in.Email, in.Password); err != nil {
		jsonStatus(w, storeStatus(err), sessionResponse{Session: sess.Store.Snapshot()})
		return
	}

	s.respondAuthenticated(w, http.StatusOK, sess.Store.Snapshot())
}

func (s *Service) respondAuthenticated(w http.ResponseWriter, code int, snap session.Snapshot) {
	resp := sessionResponse{Session: snap}
	if snap.User != nil {
		tokens, err := s.issue(snap.User)
		if err != nil {
			s.logger.Error("token signing failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "token_error")
			return
		}
		resp.Tokens = tokens
	}
	jsonStatus(w, code, resp)
}

func (s *Service) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var in struct {
		RefreshToken string `json:"refresh"`
	}
	if err := decode(w, r, &in); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	sess.Store.Logout()
	if in.RefreshToken != "" {
		s.revoke(r.Context(), in.RefreshToken)
	}
	jsonOK(w, sessionResponse{Session: sess.Store.Snapshot()})
}

func (s *Service) revoke(ctx context.Context, token string) {
	claims, err := s.jwt.VerifyRefresh(token)
	if err != nil {
		return
	}
	if err := s.blacklist.Add(ctx, token, refreshExpiry(claims, time.Now())); err != nil {
		s.logger.Error("refresh revoke failed", zap.Error(err))
	}
}

// refreshExpiry is how long a revoked token must stay blacklisted. Tokens
// without an expiry are kept for an hour.
func refreshExpiry(c *jwt.Claims, now time.Time) time.Time {
	if c.ExpiresAt == nil {
		return now.Add(time.Hour)
	}
	return c.ExpiresAt.Time
}

func (s *Service) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh"`
	}
	if err := decode(w, r, &in); err != nil || in.RefreshToken == "" {
		httpError(w, http.StatusBadRequest, "refresh_token_required")
		return
	}

	revoked, err := s.blacklist.Contains(r.Context(), in.RefreshToken)
	if err != nil {
		s.logger.Error("blacklist lookup failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal")
		return
	}
	if revoked {
		httpError(w, http.StatusUnauthorized, "token_revoked")
		return
	}

	claims, err := s.jwt.VerifyRefresh(in.RefreshToken)
	if err != nil {
		httpError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u := &core.User{ID: claims.Subject, Email: claims.Email, Role: core.Role(claims.Role), Name: claims.Name}
	tokens, err := s.issue(u)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "token_error")
		return
	}

	if err := s.blacklist.Add(r.Context(), in.RefreshToken, refreshExpiry(claims, time.Now())); err != nil {
		s.logger.Error("refresh revoke failed", zap.Error(err))
	}

	jsonOK(w, tokens)
}

func (s *Service) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		httpError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := s.users.ByID(r.Context(), claims.Subject)
	if errors.Is(err, core.ErrNotFound) {
		httpError(w, http.StatusNotFound, "user_not_found")
		return
	}
	if err != nil {
		s.logger.Error("me lookup failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal")
		return
	}
	jsonOK(w, u.User)
}
