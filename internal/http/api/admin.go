package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/http/middleware"
)

func (s *Service) PendingHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.Pending(r.Context())
	if err != nil {
		s.logger.Error("pending lookup failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal")
		return
	}
	if users == nil {
		users = []core.User{}
	}
	jsonOK(w, users)
}

func (s *Service) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := s.users.Approve(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		httpError(w, http.StatusNotFound, "user_not_found")
		return
	}
	if err != nil {
		s.logger.Error("approve failed", zap.String("userID", id), zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal")
		return
	}

	by := ""
	if c, ok := middleware.ClaimsFrom(r.Context()); ok {
		by = c.Subject
	}
	s.logger.Info("user approved", zap.String("userID", u.ID), zap.String("by", by))
	jsonOK(w, u)
}
