package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRegistryCRUD(t *testing.T) {
	reg := NewRoleRegistry()

	snap, err := reg.Create("r-1", "deployer", "deploys services")
	require.NoError(t, err)
	assert.Equal(t, "deployer", snap.Name)

	_, err = reg.Create("r-1", "other", "")
	require.ErrorIs(t, err, ErrRoleExists)

	name := "release-manager"
	snap, err = reg.Update("r-1", RoleUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "release-manager", snap.Name)

	hist, err := reg.History("r-1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "deployer", hist[0].Name)

	require.NoError(t, reg.Remove("r-1"))
	require.ErrorIs(t, reg.Remove("r-1"), ErrRoleNotFound)
	_, err = reg.Update("r-1", RoleUpdate{})
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRoleRegistryPolicyAttachment(t *testing.T) {
	reg := NewRoleRegistry()
	_, err := reg.Create("r-1", "deployer", "")
	require.NoError(t, err)

	t.Run("second singular attach fails", func(t *testing.T) {
		_, err := reg.AttachPolicy("r-1", "p-1")
		require.NoError(t, err)
		_, err = reg.AttachPolicy("r-1", "p-1")
		require.ErrorIs(t, err, ErrPolicyAlreadyAttached)
	})

	t.Run("detach of a never-attached policy is a no-op", func(t *testing.T) {
		snap, err := reg.DetachPolicy("r-1", "p-missing")
		require.NoError(t, err)
		assert.Equal(t, []string{"p-1"}, snap.Policies)
	})

	t.Run("list", func(t *testing.T) {
		policies, err := reg.ListPolicies("r-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"p-1"}, policies)

		_, err = reg.ListPolicies("r-missing")
		require.ErrorIs(t, err, ErrRoleNotFound)
	})
}

func TestRoleRegistryImport(t *testing.T) {
	reg := NewRoleRegistry()
	_, err := reg.Create("r-1", "deployer", "deploys services")
	require.NoError(t, err)
	name := "release-manager"
	_, err = reg.Update("r-1", RoleUpdate{Name: &name})
	require.NoError(t, err)
	_, err = reg.AttachPolicy("r-1", "p-1")
	require.NoError(t, err)

	exported, ok := reg.GetByID("r-1")
	require.True(t, ok)

	fresh := NewRoleRegistry()
	fresh.Import(exported)

	got, ok := fresh.GetByID("r-1")
	require.True(t, ok)
	assert.Equal(t, exported, got)
}
