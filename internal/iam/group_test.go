package iam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMembership(t *testing.T) {
	now := time.Now()
	g := NewGroup("g-1", "engineering", "eng team", now)
	assert.True(t, g.Active)
	assert.False(t, g.Essential)

	t.Run("singular attach is strict", func(t *testing.T) {
		require.NoError(t, g.AttachUser("u-1"))
		require.ErrorIs(t, g.AttachUser("u-1"), ErrUserAlreadyInGroup)
		assert.True(t, g.HasUser("u-1"))
		assert.Equal(t, 1, g.MemberCount())
	})

	t.Run("bulk attach skips duplicates silently", func(t *testing.T) {
		g.AttachUsers([]string{"u-1", "u-2", "u-3", "u-2"})
		assert.Equal(t, []string{"u-1", "u-2", "u-3"}, g.Members())
	})

	t.Run("bulk detach skips absent ids silently", func(t *testing.T) {
		g.DetachUsers([]string{"u-2", "u-missing"})
		assert.Equal(t, []string{"u-1", "u-3"}, g.Members())
	})

	t.Run("remove all", func(t *testing.T) {
		g.RemoveAllUsers()
		assert.Zero(t, g.MemberCount())
		assert.False(t, g.HasUser("u-1"))
	})
}

func TestGroupPolicies(t *testing.T) {
	g := NewGroup("g-1", "engineering", "", time.Now())

	require.NoError(t, g.AttachPolicy("p-1"))
	require.ErrorIs(t, g.AttachPolicy("p-1"), ErrPolicyAlreadyAttached)

	g.AttachPolicies([]string{"p-1", "p-2"})
	assert.Equal(t, []string{"p-1", "p-2"}, g.AttachedPolicies())
	assert.Equal(t, 2, g.PolicyCount())

	g.DetachPolicy("p-missing")
	g.DetachPolicies([]string{"p-1"})
	assert.Equal(t, []string{"p-2"}, g.AttachedPolicies())

	g.RemoveAllPolicies()
	assert.Zero(t, g.PolicyCount())
}

func TestGroupStateAndAdmins(t *testing.T) {
	g := NewGroup("g-1", "engineering", "", time.Now())

	g.Deactivate()
	assert.False(t, g.Active)
	g.Activate()
	assert.True(t, g.Active)

	g.DelegateAdmin("u-1")
	g.DelegateAdmin("u-1") // silent no-op
	g.DelegateAdmin("u-2")
	assert.Equal(t, []string{"u-1", "u-2"}, g.Admins())

	g.RevokeAdmin("u-1")
	g.RevokeAdmin("u-missing")
	assert.Equal(t, []string{"u-2"}, g.Admins())
}

func TestGroupUpdate(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Minute)
	g := NewGroup("g-1", "engineering", "eng team", now)

	g.Update(GroupUpdate{}, later)
	assert.Nil(t, g.UpdatedAt)

	name := "platform"
	g.Update(GroupUpdate{Name: &name}, later)
	assert.Equal(t, "platform", g.Name)
	assert.Equal(t, "eng team", g.Description)
	require.NotNil(t, g.UpdatedAt)
	assert.Equal(t, later, *g.UpdatedAt)
}

func TestGroupSnapshotRoundTrip(t *testing.T) {
	now := time.Now()
	g := NewGroup("g-1", "engineering", "eng team", now)
	g.AttachUsers([]string{"u-1", "u-2"})
	g.DelegateAdmin("u-1")
	require.NoError(t, g.AttachPolicy("p-1"))
	g.Essential = true
	g.Deactivate()

	snap := g.Snapshot()
	snap.Members[0] = "tampered"
	assert.Equal(t, []string{"u-1", "u-2"}, g.Members())

	restored := RestoreGroup(g.Snapshot())
	assert.Equal(t, g.Snapshot(), restored.Snapshot())
	assert.True(t, restored.Essential)
	assert.False(t, restored.Active)
}
