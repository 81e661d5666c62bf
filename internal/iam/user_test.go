package iam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("alice@example.com"))
	assert.True(t, ValidEmail("a.b+c@sub.example.org"))

	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("alice"))
	assert.False(t, ValidEmail("alice@example"))
	assert.False(t, ValidEmail("alice @example.com"))
}

func TestNewUser(t *testing.T) {
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		u, err := NewUser(UserParams{
			ID:       "u-1",
			Name:     "alice",
			Email:    "alice@example.com",
			Metadata: map[string]string{"team": "core"},
		}, now)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Name)
		assert.Equal(t, now, u.CreatedAt)
		assert.Nil(t, u.UpdatedAt)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := NewUser(UserParams{ID: "u-1", Name: "alice", Email: "nope"}, now)
		require.ErrorIs(t, err, ErrInvalidEmail)
	})
}

func TestUserUpdate(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Minute)

	t.Run("invalid email fails before any field is touched", func(t *testing.T) {
		u, err := NewUser(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"}, now)
		require.NoError(t, err)

		name := "renamed"
		email := "broken"
		err = u.Update(UserUpdate{Name: &name, Email: &email}, later)
		require.ErrorIs(t, err, ErrInvalidEmail)
		assert.Equal(t, "alice", u.Name)
		assert.Nil(t, u.UpdatedAt)
	})

	t.Run("partial update touches UpdatedAt", func(t *testing.T) {
		u, err := NewUser(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"}, now)
		require.NoError(t, err)

		phone := "555-0100"
		require.NoError(t, u.Update(UserUpdate{Phone: &phone}, later))
		assert.Equal(t, "555-0100", u.Phone)
		assert.Equal(t, "alice@example.com", u.Email)
		require.NotNil(t, u.UpdatedAt)
		assert.Equal(t, later, *u.UpdatedAt)
	})

	t.Run("empty update leaves UpdatedAt nil", func(t *testing.T) {
		u, err := NewUser(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"}, now)
		require.NoError(t, err)

		require.NoError(t, u.Update(UserUpdate{}, later))
		assert.Nil(t, u.UpdatedAt)
	})
}

func TestUserLoginAndMFA(t *testing.T) {
	now := time.Now()
	u, err := NewUser(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"}, now)
	require.NoError(t, err)

	u.RegisterLogin(now)
	u.RegisterLogin(now.Add(time.Hour))
	assert.Equal(t, 2, u.LoginCount)
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, now.Add(time.Hour), *u.LastLoginAt)

	u.EnableMFA()
	assert.True(t, u.MFAEnabled)
	u.DisableMFA()
	assert.False(t, u.MFAEnabled)
}

func TestUserAttachments(t *testing.T) {
	now := time.Now()
	u, err := NewUser(UserParams{ID: "u-1", Name: "alice", Email: "alice@example.com"}, now)
	require.NoError(t, err)

	t.Run("duplicate policy attach fails, detach-absent is a no-op", func(t *testing.T) {
		require.NoError(t, u.AttachPolicy("p-1"))
		require.ErrorIs(t, u.AttachPolicy("p-1"), ErrPolicyAlreadyAttached)

		u.DetachPolicy("p-missing")
		assert.Equal(t, []string{"p-1"}, u.AttachedPolicies())

		u.DetachPolicy("p-1")
		assert.Empty(t, u.AttachedPolicies())
	})

	t.Run("roles behave the same way", func(t *testing.T) {
		require.NoError(t, u.AttachRole("r-1"))
		require.ErrorIs(t, u.AttachRole("r-1"), ErrRoleAlreadyAttached)
		require.NoError(t, u.AttachRole("r-2"))
		assert.Equal(t, []string{"r-1", "r-2"}, u.Roles())
	})
}

func TestUserSnapshotRoundTrip(t *testing.T) {
	now := time.Now()
	u, err := NewUser(UserParams{
		ID:       "u-1",
		Name:     "alice",
		Email:    "alice@example.com",
		Metadata: map[string]string{"team": "core"},
	}, now)
	require.NoError(t, err)

	_, err = u.Keys().Add("AKIA000000000001", now)
	require.NoError(t, err)
	require.NoError(t, u.AttachPolicy("p-1"))
	require.NoError(t, u.AttachRole("r-1"))
	u.RegisterLogin(now)

	snap := u.Snapshot()

	// Snapshots are copies; mutating one must not reach the entity.
	snap.Metadata["team"] = "tampered"
	snap.Policies[0] = "tampered"
	assert.Equal(t, "core", u.Snapshot().Metadata["team"])
	assert.Equal(t, []string{"p-1"}, u.AttachedPolicies())

	restored, err := RestoreUser(u.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, u.Snapshot(), restored.Snapshot())
	assert.True(t, restored.Keys().ValidAt("AKIA000000000001", now))
}

func TestRestoreUserReValidatesKeyFormat(t *testing.T) {
	_, err := RestoreUser(UserSnapshot{
		ID:         "u-1",
		Name:       "alice",
		Email:      "not-an-email", // stored attributes are trusted
		AccessKeys: []AccessKey{{Key: "corrupted", Active: true}},
	})
	require.ErrorIs(t, err, ErrInvalidAccessKeyFormat)

	u, err := RestoreUser(UserSnapshot{ID: "u-1", Name: "alice", Email: "not-an-email"})
	require.NoError(t, err)
	assert.Equal(t, "not-an-email", u.Email)
}
