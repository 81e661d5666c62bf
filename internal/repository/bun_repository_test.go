package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/stackbound/aegis/internal/db/bunx"
	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/migrations"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:", bunx.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func makeUserSnapshot(t *testing.T, id, name string) iam.UserSnapshot {
	t.Helper()
	reg := iam.NewUserRegistry()
	snap, err := reg.Create(iam.UserParams{
		ID:       id,
		Name:     name,
		Email:    name + "@example.com",
		Metadata: map[string]string{"team": "core"},
	})
	require.NoError(t, err)
	snap, _, err = reg.AddAccessKey(id, "AKIA000000000001")
	require.NoError(t, err)
	snap, err = reg.AttachPolicy(id, "p-1")
	require.NoError(t, err)
	return snap
}

func TestBunUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	snap := makeUserSnapshot(t, "u-1", "alice")
	require.NoError(t, repo.Save(ctx, snap))

	t.Run("round trip", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, snap.Name, got.Name)
		assert.Equal(t, snap.Email, got.Email)
		assert.Equal(t, snap.Metadata, got.Metadata)
		assert.Equal(t, snap.Policies, got.Policies)
		require.Len(t, got.AccessKeys, 1)
		assert.Equal(t, snap.AccessKeys[0].Key, got.AccessKeys[0].Key)
		assert.Equal(t, snap.AccessKeys[0].SecretHash, got.AccessKeys[0].SecretHash)
		assert.True(t, got.AccessKeys[0].Active)

		// The stored snapshot rehydrates into a working entity.
		restored, err := iam.RestoreUser(got)
		require.NoError(t, err)
		assert.True(t, restored.Keys().ValidAt("AKIA000000000001", time.Now()))
	})

	t.Run("save is an upsert", func(t *testing.T) {
		snap.Status = "suspended"
		require.NoError(t, repo.Save(ctx, snap))

		got, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "suspended", got.Status)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "u-missing")
		require.ErrorIs(t, err, iam.ErrUserNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, makeUserSnapshot(t, "u-2", "bob")))

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		require.NoError(t, repo.Delete(ctx, "u-2"))
		require.ErrorIs(t, repo.Delete(ctx, "u-2"), iam.ErrUserNotFound)
	})
}

func TestBunGroupRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunGroupRepository(db)
	ctx := context.Background()

	reg := iam.NewGroupRegistry()
	_, err := reg.Create("g-1", "engineering", "eng team")
	require.NoError(t, err)
	_, err = reg.AttachUsers("g-1", []string{"u-1", "u-2"})
	require.NoError(t, err)
	_, err = reg.DelegateAdmin("g-1", "u-1")
	require.NoError(t, err)
	snap, err := reg.MarkEssential("g-1")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, snap))

	got, err := repo.GetByID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, snap.Members, got.Members)
	assert.Equal(t, snap.Admins, got.Admins)
	assert.True(t, got.Essential)
	assert.True(t, got.Active)

	_, err = repo.GetByID(ctx, "g-missing")
	require.ErrorIs(t, err, iam.ErrGroupNotFound)

	require.NoError(t, repo.Delete(ctx, "g-1"))
	require.ErrorIs(t, repo.Delete(ctx, "g-1"), iam.ErrGroupNotFound)
}

func TestBunRoleRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunRoleRepository(db)
	ctx := context.Background()

	reg := iam.NewRoleRegistry()
	_, err := reg.Create("r-1", "deployer", "deploys services")
	require.NoError(t, err)
	name := "release-manager"
	_, err = reg.Update("r-1", iam.RoleUpdate{Name: &name})
	require.NoError(t, err)
	snap, err := reg.AttachPolicy("r-1", "p-1")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, snap))

	got, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "release-manager", got.Name)
	assert.Equal(t, snap.Policies, got.Policies)
	require.Len(t, got.History, 1)
	assert.Equal(t, "deployer", got.History[0].Name)

	_, err = repo.GetByID(ctx, "r-missing")
	require.ErrorIs(t, err, iam.ErrRoleNotFound)
}

func TestBunPolicyRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunPolicyRepository(db)
	ctx := context.Background()

	doc := iam.PolicyDocument{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{"Effect": "Allow", "Action": "s3:GetObject", "Resource": "*"},
		},
	}

	reg := iam.NewPolicyRegistry()
	_, err := reg.Create("p-1", "read-only", "read access", doc)
	require.NoError(t, err)
	_, err = reg.CreateVersion("p-1", doc)
	require.NoError(t, err)
	snap, err := reg.SetDefaultVersion("p-1", "v2")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, snap))

	t.Run("round trip with version history", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "v2", got.DefaultVersionID)
		require.Len(t, got.Versions, 2)
		assert.Equal(t, "v1", got.Versions[0].VersionID)
		assert.Equal(t, "v2", got.Versions[1].VersionID)

		// The stored snapshot rehydrates and the counter resumes.
		fresh := iam.NewPolicyRegistry()
		require.NoError(t, fresh.Import(got))
		v, err := fresh.CreateVersion("p-1", doc)
		require.NoError(t, err)
		assert.Equal(t, "v3", v.VersionID)
	})

	t.Run("re-save only appends new versions", func(t *testing.T) {
		fresh := iam.NewPolicyRegistry()
		require.NoError(t, fresh.Import(snap))
		_, err := fresh.CreateVersion("p-1", doc)
		require.NoError(t, err)
		updated, ok := fresh.GetByID("p-1")
		require.True(t, ok)

		require.NoError(t, repo.Save(ctx, updated))

		got, err := repo.GetByID(ctx, "p-1")
		require.NoError(t, err)
		assert.Len(t, got.Versions, 3)
	})

	t.Run("delete cascades to versions", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "p-1"))
		_, err := repo.GetByID(ctx, "p-1")
		require.ErrorIs(t, err, iam.ErrPolicyNotFound)
		require.ErrorIs(t, repo.Delete(ctx, "p-1"), iam.ErrPolicyNotFound)
	})
}
