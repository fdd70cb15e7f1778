package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/platform/db"
	"example.com/amadvs/internal/platform/password"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func TestUserPG(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	r := NewUserPG(pool)
	require.NoError(t, r.Migrate(ctx, DemoSeeds()))
	// seeding twice is harmless
	require.NoError(t, r.Migrate(ctx, DemoSeeds()))

	dir, err := r.CheckPassword(ctx, "DANSAX2016@gmail.com", DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, "Daniel de Oliveira", dir.Name)

	m, err := r.ByID(ctx, "2")
	require.NoError(t, err)
	require.NotNil(t, m.Maestro)
	assert.Equal(t, "Pastor João", m.Maestro.PastorName)

	hash, err := password.Hash("1234")
	require.NoError(t, err)
	id := uuid.NewString()
	email := "student." + id[:8] + "@example.local"
	rec := core.UserRecord{
		User: core.User{
			ID: id, Name: "Ana", Role: core.RoleStudent, Email: email,
			CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
			Student:   &core.StudentProfile{Instrument: "violin", Congregation: "ADVS"},
		},
		Hash: hash,
	}
	require.NoError(t, r.Insert(ctx, rec))
	require.ErrorIs(t, r.Insert(ctx, rec), core.ErrEmailTaken)

	got, err := r.ByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, got.Student)
	assert.Equal(t, "violin", got.Student.Instrument)
	assert.False(t, got.Approved)

	approved, err := r.Approve(ctx, id)
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	_, err = r.Approve(ctx, uuid.NewString())
	require.ErrorIs(t, err, core.ErrNotFound)
}
