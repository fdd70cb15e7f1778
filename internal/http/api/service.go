package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/platform/jwt"
	"example.com/amadvs/internal/platform/revoke"
	"example.com/amadvs/internal/registration"
	"example.com/amadvs/internal/session"
)

// Users is the part of the directory the admin and profile endpoints need.
type Users interface {
	ByID(ctx context.Context, id string) (core.UserRecord, error)
	Approve(ctx context.Context, id string) (core.User, error)
	Pending(ctx context.Context) ([]core.User, error)
}

type Photos interface {
	registration.PhotoStore
	Get(id string) (registration.Photo, bool)
}

type Service struct {
	sessions  *session.Manager
	users     Users
	jwt       jwt.Validator
	blacklist revoke.Blacklist
	photos    Photos
	logger    *zap.Logger
}

func NewService(sessions *session.Manager, users Users, j jwt.Validator, blacklist revoke.Blacklist, photos Photos, logger *zap.Logger) *Service {
	return &Service{
		sessions:  sessions,
		users:     users,
		jwt:       j,
		blacklist: blacklist,
		photos:    photos,
		logger:    logger,
	}
}

func (s *Service) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.GetSession(chi.URLParam(r, "sid"))
	if !ok {
		httpError(w, http.StatusNotFound, "session_not_found")
		return nil, false
	}
	return sess, true
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (s *Service) issue(u *core.User) (*tokenPair, error) {
	access, err := s.jwt.SignAccess(u.ID, u.Email, string(u.Role), u.Name)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.SignRefresh(u.ID, u.Email, string(u.Role), u.Name)
	if err != nil {
		return nil, err
	}
	return &tokenPair{Access: access, Refresh: refresh}, nil
}
