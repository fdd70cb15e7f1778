package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/platform/metrics"
	"example.com/amadvs/internal/platform/password"
)

// Messages recorded in Snapshot.Error.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgPendingApproval    = "Account pending approval"
	MsgAuthFailed         = "Authentication failed"
	MsgEmailTaken         = "Email already registered"
	MsgRegistrationFailed = "Registration failed"
	MsgPasswordTooLong    = "Password too long"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrAbandoned          = errors.New("session changed while request was in flight")
	ErrClosed             = errors.New("session closed")
)

type State string

const (
	Anonymous      State = "anonymous"
	Authenticating State = "authenticating"
	Authenticated  State = "authenticated"
	AuthError      State = "auth_error"
)

type Snapshot struct {
	User            *core.User `json:"user"`
	IsAuthenticated bool       `json:"isAuthenticated"`
	IsLoading       bool       `json:"isLoading"`
	Error           string     `json:"error,omitempty"`
	State           State      `json:"state"`
}

type Directory interface {
	ByEmail(ctx context.Context, email string) (core.UserRecord, error)
	Insert(ctx context.Context, rec core.UserRecord) error
}

type Verifier interface {
	CheckPassword(ctx context.Context, email, pass string) (core.UserRecord, error)
}

// Latency stands in for the network round trip of a real backend.
type Latency interface {
	Wait(ctx context.Context) error
}

type FixedLatency time.Duration

func (d FixedLatency) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Option func(*Store)

func WithLatency(l Latency) Option { return func(s *Store) { s.latency = l } }
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.logger = l } }
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }
func WithIDs(newID func() string) Option { return func(s *Store) { s.newID = newID } }
func WithMetrics(m *metrics.Auth) Option { return func(s *Store) { s.metrics = m } }

// Store is one client's session context: who is logged in, whether a call
// is in flight, and the last error. Login and Register are serialized per
// store; Logout, Snapshot and Close never wait for them.
type Store struct {
	dir     Directory
	verify  Verifier
	latency Latency
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
	metrics *metrics.Auth

	op sync.Mutex

	mu      sync.Mutex
	gen     uint64
	user    *core.User
	loading bool
	err     string
	closed  bool
	subs    map[int]chan Snapshot
	nextSub int
}

func NewStore(dir Directory, verify Verifier, opts ...Option) *Store {
	s := &Store{
		dir:     dir,
		verify:  verify,
		latency: FixedLatency(time.Second),
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
		subs:    make(map[int]chan Snapshot),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		IsAuthenticated: s.user != nil,
		IsLoading:       s.loading,
		Error:           s.err,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	switch {
	case s.loading:
		snap.State = Authenticating
	case s.user != nil:
		snap.State = Authenticated
	case s.err != "":
		snap.State = AuthError
	default:
		snap.State = Anonymous
	}
	return snap
}

// begin marks the store loading and returns the generation the result must
// still match to be applied.
func (s *Store) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.loading = true
	s.err = ""
	s.publishLocked()
	return s.gen, nil
}

// finish applies fn if nothing reset the session since begin.
func (s *Store) finish(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.closed {
		return false
	}
	s.loading = false
	if fn != nil {
		fn()
	}
	s.publishLocked()
	return true
}

func (s *Store) Login(ctx context.Context, email, pass string) error {
	s.op.Lock()
	defer s.op.Unlock()

	gen, err := s.begin()
	if err != nil {
		return err
	}

	if err := s.latency.Wait(ctx); err != nil {
		s.finish(gen, nil)
		return err
	}

	rec, err := s.verify.CheckPassword(ctx, email, pass)
	if err == nil && !rec.Approved {
		err = core.ErrPendingApproval
	}

	var msg, outcome string
	var result error
	switch {
	case err == nil:
		outcome = "ok"
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrBadCreds):
		msg, outcome, result = MsgInvalidCredentials, "invalid_credentials", ErrInvalidCredentials
	case errors.Is(err, core.ErrPendingApproval):
		msg, outcome, result = MsgPendingApproval, "pending_approval", core.ErrPendingApproval
	default:
		s.logger.Error("login failed", zap.String("email", email), zap.Error(err))
		msg, outcome, result = MsgAuthFailed, "error", ErrAuthFailed
	}

	applied := s.finish(gen, func() {
		if result != nil {
			s.err = msg
			return
		}
		u := rec.User
		s.user = &u
	})
	if !applied {
		return ErrAbandoned
	}
	s.metrics.Login(outcome)
	if result == nil {
		s.logger.Info("user logged in", zap.String("userID", rec.ID), zap.String("role", string(rec.Role)))
	}
	return result
}

// Logout clears the session. Calling it again is a no-op. A login or
// registration still in flight is discarded.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.user = nil
	s.loading = false
	s.publishLocked()
}

// Register creates an account from data. Non-students are logged in right
// away; students stay anonymous until someone approves them.
func (s *Store) Register(ctx context.Context, data core.User, pass string, role core.Role) (core.User, error) {
	s.op.Lock()
	defer s.op.Unlock()

	gen, err := s.begin()
	if err != nil {
		return core.User{}, err
	}

	if err := s.latency.Wait(ctx); err != nil {
		s.finish(gen, nil)
		return core.User{}, err
	}

	u := data
	u.ID = s.newID()
	u.Role = role
	u.Approved = role.ApprovedOnCreate()
	u.CreatedAt = s.now().UTC()

	err = u.Validate()
	var rec core.UserRecord
	if err == nil {
		var hash []byte
		hash, err = password.Hash(pass)
		rec = core.UserRecord{User: u, Hash: hash}
	}
	if err == nil {
		err = s.dir.Insert(ctx, rec)
	}

	var msg string
	var result error
	switch {
	case err == nil:
	case errors.Is(err, core.ErrEmailTaken):
		msg, result = MsgEmailTaken, core.ErrEmailTaken
	case errors.Is(err, password.ErrTooLong):
		msg, result = MsgPasswordTooLong, password.ErrTooLong
	default:
		msg, result = MsgRegistrationFailed, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	applied := s.finish(gen, func() {
		switch {
		case result != nil:
			s.err = msg
		case role != core.RoleStudent:
			cp := u
			s.user = &cp
		}
	})
	if result != nil {
		s.metrics.Registration(string(role), "error")
		return core.User{}, result
	}
	// the account exists even if the session was reset meanwhile
	s.metrics.Registration(string(role), "ok")
	s.logger.Info("user registered", zap.String("userID", u.ID), zap.String("role", string(role)), zap.Bool("approved", u.Approved))
	if !applied {
		return u, ErrAbandoned
	}
	return u, nil
}

// Subscribe returns a channel that receives the current snapshot and every
// later change. Slow readers only see the latest snapshot.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Store) publishLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Close tears the context down: subscribers are released and results of
// calls still in flight are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.user = nil
	s.loading = false
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
