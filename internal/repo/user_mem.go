package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/platform/password"
)

type UserMem struct {
	mu    sync.RWMutex
	users map[string]core.UserRecord // by normalized email
}

// NewUserMem returns a directory holding the two demo accounts.
func NewUserMem() *UserMem {
	m, err := NewUserMemFrom(DemoSeeds())
	if err != nil {
		panic(fmt.Sprintf("repo: demo seeds: %v", err))
	}
	return m
}

func NewUserMemFrom(seeds []Seed) (*UserMem, error) {
	m := &UserMem{users: make(map[string]core.UserRecord, len(seeds))}
	for _, s := range seeds {
		rec, err := s.record()
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.User.Email, err)
		}
		if err := m.Insert(context.Background(), rec); err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.User.Email, err)
		}
	}
	return m, nil
}

func (r *UserMem) ByEmail(_ context.Context, email string) (core.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[core.NormalizeEmail(email)]
	if !ok {
		return core.UserRecord{}, core.ErrNotFound
	}
	return u, nil
}

func (r *UserMem) ByID(_ context.Context, id string) (core.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.UserRecord{}, core.ErrNotFound
}

func (r *UserMem) Insert(_ context.Context, rec core.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := core.NormalizeEmail(rec.Email)
	if _, exists := r.users[key]; exists {
		return core.ErrEmailTaken
	}
	for _, u := range r.users {
		if u.ID == rec.ID {
			return fmt.Errorf("duplicate id %q", rec.ID)
		}
	}
	r.users[key] = rec
	return nil
}

func (r *UserMem) CheckPassword(ctx context.Context, email, pass string) (core.UserRecord, error) {
	u, err := r.ByEmail(ctx, email)
	if err != nil {
		return core.UserRecord{}, core.ErrNotFound
	}
	if password.Check(u.Hash, pass) != nil {
		return core.UserRecord{}, core.ErrBadCreds
	}
	return u, nil
}

func (r *UserMem) Approve(_ context.Context, id string) (core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, u := range r.users {
		if u.ID == id {
			u.Approved = true
			r.users[key] = u
			return u.User, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

// Pending lists accounts awaiting approval, oldest first.
func (r *UserMem) Pending(ctx context.Context) ([]core.User, error) {
	all, _ := r.List(ctx)
	out := all[:0]
	for _, u := range all {
		if !u.Approved {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UserMem) List(_ context.Context) ([]core.User, error) {
	r.mu.RLock()
	out := make([]core.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.User)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
