package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRegistryCreateAndRemove(t *testing.T) {
	reg := NewGroupRegistry()

	snap, err := reg.Create("g-1", "engineering", "eng team")
	require.NoError(t, err)
	assert.True(t, snap.Active)

	_, err = reg.Create("g-1", "other", "")
	require.ErrorIs(t, err, ErrGroupExists)

	t.Run("essential group cannot be removed", func(t *testing.T) {
		_, err := reg.MarkEssential("g-1")
		require.NoError(t, err)

		err = reg.Remove("g-1")
		require.ErrorIs(t, err, ErrGroupEssentialRemove)
		_, ok := reg.GetByID("g-1")
		assert.True(t, ok)
	})

	t.Run("ordinary group removal", func(t *testing.T) {
		_, err := reg.Create("g-2", "temp", "")
		require.NoError(t, err)
		require.NoError(t, reg.Remove("g-2"))
		require.ErrorIs(t, reg.Remove("g-2"), ErrGroupNotFound)
	})
}

func TestGroupRegistryMembership(t *testing.T) {
	reg := NewGroupRegistry()
	_, err := reg.Create("g-1", "engineering", "")
	require.NoError(t, err)

	_, err = reg.AttachUser("g-1", "u-1")
	require.NoError(t, err)
	_, err = reg.AttachUser("g-1", "u-1")
	require.ErrorIs(t, err, ErrUserAlreadyInGroup)

	snap, err := reg.AttachUsers("g-1", []string{"u-1", "u-2", "u-3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2", "u-3"}, snap.Members)

	snap, err = reg.DetachUsers("g-1", []string{"u-2", "u-missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-3"}, snap.Members)

	members, err := reg.ListMembers("g-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-3"}, members)

	snap, err = reg.RemoveAllUsers("g-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Members)

	_, err = reg.AttachUser("g-missing", "u-1")
	require.ErrorIs(t, err, ErrGroupNotFound)
}

func TestGroupRegistryPolicies(t *testing.T) {
	reg := NewGroupRegistry()
	_, err := reg.Create("g-1", "engineering", "")
	require.NoError(t, err)

	_, err = reg.AttachPolicy("g-1", "p-1")
	require.NoError(t, err)
	_, err = reg.AttachPolicy("g-1", "p-1")
	require.ErrorIs(t, err, ErrPolicyAlreadyAttached)

	snap, err := reg.AttachPolicies("g-1", []string{"p-1", "p-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, snap.Policies)

	_, err = reg.DetachPolicy("g-1", "p-missing")
	require.NoError(t, err)

	policies, err := reg.ListPolicies("g-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, policies)

	snap, err = reg.DetachPolicies("g-1", []string{"p-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-2"}, snap.Policies)

	snap, err = reg.RemoveAllPolicies("g-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Policies)
}

func TestGroupRegistryQueries(t *testing.T) {
	reg := NewGroupRegistry()
	_, err := reg.Create("g-1", "engineering", "builds the product")
	require.NoError(t, err)
	_, err = reg.Create("g-2", "support", "engineering escalations")
	require.NoError(t, err)
	_, err = reg.Create("g-3", "finance", "money")
	require.NoError(t, err)

	_, err = reg.AttachUser("g-1", "u-1")
	require.NoError(t, err)
	_, err = reg.AttachUser("g-2", "u-1")
	require.NoError(t, err)
	_, err = reg.AttachPolicy("g-1", "p-1")
	require.NoError(t, err)

	t.Run("search matches name or description", func(t *testing.T) {
		found := reg.Search("engineering")
		ids := groupIDs(found)
		assert.ElementsMatch(t, []string{"g-1", "g-2"}, ids)

		assert.Empty(t, reg.Search("nonexistent"))
	})

	t.Run("list groups for a user", func(t *testing.T) {
		ids := groupIDs(reg.ListUserGroups("u-1"))
		assert.ElementsMatch(t, []string{"g-1", "g-2"}, ids)
		assert.Empty(t, reg.ListUserGroups("u-missing"))
	})

	t.Run("empty-membership and empty-policy filters", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"g-3"}, groupIDs(reg.ListWithoutMembers()))
		assert.ElementsMatch(t, []string{"g-2", "g-3"}, groupIDs(reg.ListWithoutPolicies()))
	})
}

func groupIDs(groups []GroupSnapshot) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids
}

func TestGroupRegistryStateAndAdmins(t *testing.T) {
	reg := NewGroupRegistry()
	_, err := reg.Create("g-1", "engineering", "")
	require.NoError(t, err)

	snap, err := reg.Deactivate("g-1")
	require.NoError(t, err)
	assert.False(t, snap.Active)

	snap, err = reg.Activate("g-1")
	require.NoError(t, err)
	assert.True(t, snap.Active)

	snap, err = reg.DelegateAdmin("g-1", "u-1")
	require.NoError(t, err)
	snap, err = reg.DelegateAdmin("g-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1"}, snap.Admins)

	snap, err = reg.RevokeAdmin("g-1", "u-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Admins)
}

func TestGroupRegistryExportImport(t *testing.T) {
	reg := NewGroupRegistry()
	_, err := reg.Create("g-1", "engineering", "eng team")
	require.NoError(t, err)
	_, err = reg.AttachUsers("g-1", []string{"u-1", "u-2"})
	require.NoError(t, err)
	_, err = reg.DelegateAdmin("g-1", "u-1")
	require.NoError(t, err)
	_, err = reg.MarkEssential("g-1")
	require.NoError(t, err)

	exported, err := reg.Export("g-1")
	require.NoError(t, err)

	fresh := NewGroupRegistry()
	fresh.Import(exported)

	got, ok := fresh.GetByID("g-1")
	require.True(t, ok)
	assert.Equal(t, exported, got)
	assert.True(t, got.Essential)

	_, err = reg.Export("g-missing")
	require.ErrorIs(t, err, ErrGroupNotFound)
}
