package iam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRegistryCreate(t *testing.T) {
	reg := NewUserRegistry()

	snap, err := reg.Create(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.Name)
	assert.True(t, reg.Exists("alice"))

	t.Run("duplicate id", func(t *testing.T) {
		_, err := reg.Create(UserParams{ID: "u-1", Name: "other", Email: "other@example.com"})
		require.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := reg.Create(UserParams{ID: "u-2", Name: "alice", Email: "alice2@example.com"})
		require.ErrorIs(t, err, ErrUsernameExists)
	})

	t.Run("invalid email does not reserve the name", func(t *testing.T) {
		_, err := reg.Create(UserParams{ID: "u-2", Name: "bob", Email: "broken"})
		require.ErrorIs(t, err, ErrInvalidEmail)
		assert.False(t, reg.Exists("bob"))
	})
}

func TestUserRegistryUpdateRename(t *testing.T) {
	reg := NewUserRegistry()
	_, err := reg.Create(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = reg.Create(UserParams{ID: "u-2", Name: "bob", Email: "bob@example.com"})
	require.NoError(t, err)

	t.Run("rename to a taken name fails", func(t *testing.T) {
		name := "alice"
		_, err := reg.Update("u-2", UserUpdate{Name: &name})
		require.ErrorIs(t, err, ErrUsernameExists)
	})

	t.Run("rename releases the old name", func(t *testing.T) {
		name := "robert"
		_, err := reg.Update("u-2", UserUpdate{Name: &name})
		require.NoError(t, err)
		assert.False(t, reg.Exists("bob"))
		assert.True(t, reg.Exists("robert"))

		// The freed name is creatable again.
		_, err = reg.Create(UserParams{ID: "u-3", Name: "bob", Email: "bob2@example.com"})
		require.NoError(t, err)
	})

	t.Run("same-name update is not a collision", func(t *testing.T) {
		name := "robert"
		_, err := reg.Update("u-2", UserUpdate{Name: &name})
		require.NoError(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := reg.Update("u-missing", UserUpdate{})
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserRegistryRemove(t *testing.T) {
	reg := NewUserRegistry()
	_, err := reg.Create(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	require.NoError(t, reg.Remove("u-1"))
	_, ok := reg.GetByID("u-1")
	assert.False(t, ok)
	assert.False(t, reg.Exists("alice"))

	require.ErrorIs(t, reg.Remove("u-1"), ErrUserNotFound)

	// Removal releases the username.
	_, err = reg.Create(UserParams{ID: "u-2", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
}

func TestUserRegistryAccessKeys(t *testing.T) {
	reg := NewUserRegistry()
	_, err := reg.Create(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	t.Run("add returns the plaintext secret once", func(t *testing.T) {
		snap, secret, err := reg.AddAccessKey("u-1", "AKIA000000000001")
		require.NoError(t, err)
		require.NotEmpty(t, secret)
		require.Len(t, snap.AccessKeys, 1)
		assert.NotEqual(t, secret, snap.AccessKeys[0].SecretHash)

		ok, err := reg.VerifyAccessKeySecret("u-1", "AKIA000000000001", secret)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("limit and rotation", func(t *testing.T) {
		_, _, err := reg.AddAccessKey("u-1", "AKIA000000000002")
		require.NoError(t, err)
		_, _, err = reg.AddAccessKey("u-1", "AKIA000000000003")
		require.ErrorIs(t, err, ErrAccessKeyLimitReached)

		_, _, err = reg.RotateAccessKey("u-1", "AKIA000000000001", "AKIA000000000003")
		require.ErrorIs(t, err, ErrAccessKeyLimitReached)

		// The disable half of the failed rotation stuck.
		valid, err := reg.IsAccessKeyValid("u-1", "AKIA000000000001")
		require.NoError(t, err)
		assert.False(t, valid)

		_, err = reg.RemoveAccessKey("u-1", "AKIA000000000001")
		require.NoError(t, err)
		_, secret, err := reg.RotateAccessKey("u-1", "AKIA000000000002", "AKIA000000000003")
		require.NoError(t, err)
		assert.NotEmpty(t, secret)
	})

	t.Run("validity checks", func(t *testing.T) {
		valid, err := reg.IsAccessKeyValid("u-1", "AKIA000000000003")
		require.NoError(t, err)
		assert.True(t, valid)

		_, err = reg.SetAccessKeyExpiration("u-1", "AKIA000000000003", time.Now().Add(-time.Minute))
		require.NoError(t, err)
		valid, err = reg.IsAccessKeyValid("u-1", "AKIA000000000003")
		require.NoError(t, err)
		assert.False(t, valid)

		valid, err = reg.IsAccessKeyValid("u-1", "AKIA999999999999")
		require.NoError(t, err)
		assert.False(t, valid)

		_, err = reg.IsAccessKeyValid("u-missing", "AKIA000000000003")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("status order follows insertion", func(t *testing.T) {
		status, err := reg.AccessKeyStatus("u-1")
		require.NoError(t, err)
		require.Len(t, status, 2)
		assert.Equal(t, "AKIA000000000002", status[0].Key)
		assert.Equal(t, "AKIA000000000003", status[1].Key)
	})
}

func TestUserRegistryAttachments(t *testing.T) {
	reg := NewUserRegistry()
	_, err := reg.Create(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = reg.AttachPolicy("u-1", "p-1")
	require.NoError(t, err)
	_, err = reg.AttachPolicy("u-1", "p-1")
	require.ErrorIs(t, err, ErrPolicyAlreadyAttached)

	_, err = reg.DetachPolicy("u-1", "p-missing")
	require.NoError(t, err)

	policies, err := reg.ListAttachedPolicies("u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, policies)

	_, err = reg.AttachRole("u-1", "r-1")
	require.NoError(t, err)
	_, err = reg.AttachRole("u-1", "r-1")
	require.ErrorIs(t, err, ErrRoleAlreadyAttached)

	roles, err := reg.ListRoles("u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r-1"}, roles)

	_, err = reg.AttachPolicy("u-missing", "p-1")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRegistryLoginAndMFA(t *testing.T) {
	reg := NewUserRegistry()
	_, err := reg.Create(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	snap, err := reg.RegisterLogin("u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.LoginCount)
	assert.NotNil(t, snap.LastLoginAt)

	snap, err = reg.EnableMFA("u-1")
	require.NoError(t, err)
	assert.True(t, snap.MFAEnabled)

	snap, err = reg.DisableMFA("u-1")
	require.NoError(t, err)
	assert.False(t, snap.MFAEnabled)
}

func TestUserRegistryImport(t *testing.T) {
	reg := NewUserRegistry()
	_, err := reg.Create(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, _, err = reg.AddAccessKey("u-1", "AKIA000000000001")
	require.NoError(t, err)
	_, err = reg.AttachPolicy("u-1", "p-1")
	require.NoError(t, err)

	exported, ok := reg.GetByID("u-1")
	require.True(t, ok)

	fresh := NewUserRegistry()
	require.NoError(t, fresh.Import(exported))

	got, ok := fresh.GetByID("u-1")
	require.True(t, ok)
	assert.Equal(t, exported, got)
	assert.True(t, fresh.Exists("alice"))

	// The rebuilt index still enforces uniqueness.
	_, err = fresh.Create(UserParams{ID: "u-2", Name: "alice", Email: "alice2@example.com"})
	require.ErrorIs(t, err, ErrUsernameExists)

	t.Run("corrupt key format is rejected at import", func(t *testing.T) {
		bad := exported
		bad.ID = "u-bad"
		bad.Name = "mallory"
		bad.AccessKeys = []AccessKey{{Key: "corrupted", Active: true}}
		require.ErrorIs(t, fresh.Import(bad), ErrInvalidAccessKeyFormat)
	})
}
