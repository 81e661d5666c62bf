package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/stackbound/aegis/internal/db/bunx"
	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/migrations"
	"github.com/stackbound/aegis/internal/repository"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := bunx.NewDB(":memory:", bunx.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return NewService(repository.NewBunStore(db))
}

func testDocument() iam.PolicyDocument {
	return iam.PolicyDocument{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{"Effect": "Allow", "Action": "s3:GetObject", "Resource": "*"},
		},
	}
}

func TestServiceCreateUserGeneratesID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	snap, err := svc.CreateUser(ctx, iam.UserParams{Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "alice", snap.Name)

	got, err := svc.GetUser(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
}

func TestServiceLoadRoundTrip(t *testing.T) {
	db, err := bunx.NewDB("file:loadtest?mode=memory&cache=shared", bunx.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	store := repository.NewBunStore(db)
	svc := NewService(store)

	user, err := svc.CreateUser(ctx, iam.UserParams{ID: "u1", Name: "alice", Email: "a@example.com"})
	require.NoError(t, err)
	group, err := svc.CreateGroup(ctx, "g1", "ops", "operations")
	require.NoError(t, err)
	_, err = svc.AttachGroupUser(ctx, group.ID, user.ID)
	require.NoError(t, err)
	role, err := svc.CreateRole(ctx, "r1", "admin", "")
	require.NoError(t, err)
	policy, err := svc.CreatePolicy(ctx, "p1", "read-only", "", testDocument())
	require.NoError(t, err)
	_, err = svc.AttachRolePolicy(ctx, role.ID, policy.ID)
	require.NoError(t, err)

	// A fresh service over the same store sees everything after Load.
	restored := NewService(store)
	require.NoError(t, restored.Load(ctx))

	gotUser, err := restored.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", gotUser.Name)

	members, err := restored.ListGroupMembers(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, members)

	rolePolicies, err := restored.ListRolePolicies(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, rolePolicies)

	gotPolicy, err := restored.GetPolicy(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "v1", gotPolicy.DefaultVersionID)
}

func TestServiceAccessKeyLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, iam.UserParams{ID: "u1", Name: "alice", Email: "a@example.com"})
	require.NoError(t, err)

	// Server-side generation when no key id is supplied.
	_, key, secret, err := svc.AddAccessKey(ctx, user.ID, "")
	require.NoError(t, err)
	assert.True(t, iam.ValidAccessKeyFormat(key))
	assert.NotEmpty(t, secret)

	ok, err := svc.VerifyAccessKeySecret(ctx, user.ID, key, secret)
	require.NoError(t, err)
	assert.True(t, ok)

	valid, err := svc.IsAccessKeyValid(ctx, user.ID, key)
	require.NoError(t, err)
	assert.True(t, valid)

	// Rotation disables the old key and issues a fresh one.
	_, newKey, newSecret, err := svc.RotateAccessKey(ctx, user.ID, key, "")
	require.NoError(t, err)
	assert.NotEqual(t, key, newKey)
	assert.NotEmpty(t, newSecret)

	valid, err = svc.IsAccessKeyValid(ctx, user.ID, key)
	require.NoError(t, err)
	assert.False(t, valid)

	status, err := svc.AccessKeyStatus(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.False(t, status[0].Active)
	assert.True(t, status[1].Active)
}

func TestServiceRotateAtCeilingPersistsDisable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, iam.UserParams{ID: "u1", Name: "alice", Email: "a@example.com"})
	require.NoError(t, err)

	_, k1, _, err := svc.AddAccessKey(ctx, user.ID, "")
	require.NoError(t, err)
	_, _, _, err = svc.AddAccessKey(ctx, user.ID, "")
	require.NoError(t, err)

	_, _, _, err = svc.RotateAccessKey(ctx, user.ID, k1, "")
	require.ErrorIs(t, err, iam.ErrAccessKeyLimitReached)

	// The disable half of the failed rotation sticks.
	valid, err := svc.IsAccessKeyValid(ctx, user.ID, k1)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestServiceGroupEssentialGuard(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "g1", "core", "")
	require.NoError(t, err)
	_, err = svc.MarkGroupEssential(ctx, group.ID)
	require.NoError(t, err)

	err = svc.RemoveGroup(ctx, group.ID)
	require.ErrorIs(t, err, iam.ErrGroupEssentialRemove)

	_, err = svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
}

func TestServiceRemoveUserDeletesFromStore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, iam.UserParams{ID: "u1", Name: "alice", Email: "a@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveUser(ctx, user.ID))

	_, err = svc.GetUser(ctx, user.ID)
	require.ErrorIs(t, err, iam.ErrUserNotFound)

	err = svc.RemoveUser(ctx, user.ID)
	require.ErrorIs(t, err, iam.ErrUserNotFound)
}

func TestServicePolicyVersionFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	policy, err := svc.CreatePolicy(ctx, "p1", "base", "", testDocument())
	require.NoError(t, err)
	assert.Equal(t, "v1", policy.DefaultVersionID)

	ver, err := svc.CreatePolicyVersion(ctx, policy.ID, testDocument())
	require.NoError(t, err)
	assert.Equal(t, "v2", ver.VersionID)

	// Adding a version never moves the default.
	got, err := svc.GetPolicy(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.DefaultVersionID)

	got, err = svc.SetDefaultPolicyVersion(ctx, policy.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.DefaultVersionID)

	versions, err := svc.ListPolicyVersions(ctx, policy.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v1", versions[0].VersionID)
}

func TestServiceRoleHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "r1", "deploy", "ci deployments")
	require.NoError(t, err)

	name := "deployer"
	_, err = svc.UpdateRole(ctx, role.ID, iam.RoleUpdate{Name: &name})
	require.NoError(t, err)

	history, err := svc.RoleHistory(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "deploy", history[0].Name)
}

func TestGenerateAccessKeyID(t *testing.T) {
	for i := 0; i < 20; i++ {
		key, err := generateAccessKeyID()
		require.NoError(t, err)
		assert.True(t, iam.ValidAccessKeyFormat(key), key)
	}
}
