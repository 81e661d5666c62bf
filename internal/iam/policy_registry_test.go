package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyRegistryCRUD(t *testing.T) {
	reg := NewPolicyRegistry()

	snap, err := reg.Create("p-1", "read-only", "read access", validDocument())
	require.NoError(t, err)
	assert.Equal(t, "v1", snap.DefaultVersionID)
	require.Len(t, snap.Versions, 1)

	_, err = reg.Create("p-1", "other", "", validDocument())
	require.ErrorIs(t, err, ErrPolicyExists)

	_, err = reg.Create("p-2", "bad", "", PolicyDocument{"Version": "2012-10-17"})
	require.ErrorIs(t, err, ErrPolicyMissingStatement)
	_, ok := reg.GetByID("p-2")
	assert.False(t, ok)

	require.NoError(t, reg.Remove("p-1"))
	require.ErrorIs(t, reg.Remove("p-1"), ErrPolicyNotFound)
}

func TestPolicyRegistryVersionLifecycle(t *testing.T) {
	reg := NewPolicyRegistry()
	_, err := reg.Create("p-1", "read-only", "", validDocument())
	require.NoError(t, err)

	doc2 := validDocument()
	doc2["Statement"] = []any{map[string]any{"Effect": "Deny", "Action": "*", "Resource": "*"}}

	v2, err := reg.CreateVersion("p-1", doc2)
	require.NoError(t, err)
	assert.Equal(t, "v2", v2.VersionID)

	// Default stays on v1 until repointed.
	snap, ok := reg.GetByID("p-1")
	require.True(t, ok)
	assert.Equal(t, "v1", snap.DefaultVersionID)

	versions, err := reg.ListVersions("p-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v1", versions[0].VersionID)
	assert.Equal(t, "v2", versions[1].VersionID)

	t.Run("repoint to the new version", func(t *testing.T) {
		snap, err := reg.SetDefaultVersion("p-1", "v2")
		require.NoError(t, err)
		assert.Equal(t, "v2", snap.DefaultVersionID)
	})

	t.Run("unknown version id", func(t *testing.T) {
		_, err := reg.SetDefaultVersion("p-1", "v99")
		require.ErrorIs(t, err, ErrPolicyVersionNotFound)
	})

	t.Run("version counters are per policy", func(t *testing.T) {
		_, err := reg.Create("p-2", "other", "", validDocument())
		require.NoError(t, err)
		v, err := reg.CreateVersion("p-2", validDocument())
		require.NoError(t, err)
		assert.Equal(t, "v2", v.VersionID)
	})

	t.Run("unknown policy id", func(t *testing.T) {
		_, err := reg.CreateVersion("p-missing", validDocument())
		require.ErrorIs(t, err, ErrPolicyNotFound)
		_, err = reg.ListVersions("p-missing")
		require.ErrorIs(t, err, ErrPolicyNotFound)
	})
}

func TestPolicyRegistryUpdate(t *testing.T) {
	reg := NewPolicyRegistry()
	_, err := reg.Create("p-1", "read-only", "", validDocument())
	require.NoError(t, err)

	doc2 := validDocument()
	doc2["Statement"] = []any{}
	snap, err := reg.Update("p-1", PolicyUpdate{Document: doc2})
	require.NoError(t, err)
	assert.Equal(t, "v2", snap.DefaultVersionID)
	assert.Len(t, snap.Versions, 2)
	assert.NotNil(t, snap.UpdatedAt)

	_, err = reg.Update("p-1", PolicyUpdate{Document: PolicyDocument{"Version": "2012-10-17"}})
	require.ErrorIs(t, err, ErrPolicyMissingStatement)
	snap, ok := reg.GetByID("p-1")
	require.True(t, ok)
	assert.Len(t, snap.Versions, 2)
}

func TestPolicyRegistryImport(t *testing.T) {
	reg := NewPolicyRegistry()
	_, err := reg.Create("p-1", "read-only", "desc", validDocument())
	require.NoError(t, err)
	_, err = reg.CreateVersion("p-1", validDocument())
	require.NoError(t, err)
	_, err = reg.SetDefaultVersion("p-1", "v2")
	require.NoError(t, err)

	exported, ok := reg.GetByID("p-1")
	require.True(t, ok)

	fresh := NewPolicyRegistry()
	require.NoError(t, fresh.Import(exported))

	got, ok := fresh.GetByID("p-1")
	require.True(t, ok)
	assert.Equal(t, exported, got)

	// The restored counter continues past the imported history.
	v, err := fresh.CreateVersion("p-1", validDocument())
	require.NoError(t, err)
	assert.Equal(t, "v3", v.VersionID)
}
