package moderation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRolesConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roles.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRolesDisabledMode(t *testing.T) {
	roles, err := NewRoles("")
	require.NoError(t, err)

	assert.False(t, roles.IsEnabled())
	assert.False(t, roles.IsAdmin(1))
	assert.False(t, roles.IsModerator(1))
	assert.False(t, roles.HasPermission(1, PermissionResolveReport))
	assert.Empty(t, roles.ListModerators())

	_, ok := roles.GetRole(1)
	assert.False(t, ok)
}

func TestRolesMissingFileDisables(t *testing.T) {
	roles, err := NewRoles(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.False(t, roles.IsEnabled())
}

func TestRolesConfig(t *testing.T) {
	path := writeRolesConfig(t, `{
		"roles": {
			"admin": {
				"description": "Full access",
				"permissions": ["view_reports", "resolve_report", "reject_report",
					"delete_comment", "restore_book", "view_audit_log"]
			},
			"moderator": {
				"description": "Report handling",
				"permissions": ["view_reports", "resolve_report", "reject_report"]
			}
		},
		"users": [
			{"id": 1, "name": "alice", "role": "admin"},
			{"id": 2, "name": "bob", "role": "moderator"}
		]
	}`)

	roles, err := NewRoles(path)
	require.NoError(t, err)

	t.Run("enabled with users", func(t *testing.T) {
		assert.True(t, roles.IsEnabled())
	})

	t.Run("admin checks", func(t *testing.T) {
		assert.True(t, roles.IsAdmin(1))
		assert.False(t, roles.IsAdmin(2))
		assert.False(t, roles.IsAdmin(3))
	})

	t.Run("moderator includes admin", func(t *testing.T) {
		assert.True(t, roles.IsModerator(1))
		assert.True(t, roles.IsModerator(2))
		assert.False(t, roles.IsModerator(3))
	})

	t.Run("permissions follow the role", func(t *testing.T) {
		assert.True(t, roles.HasPermission(1, PermissionRestoreBook))
		assert.False(t, roles.HasPermission(2, PermissionRestoreBook))
		assert.True(t, roles.HasPermission(2, PermissionResolveReport))
		assert.False(t, roles.HasPermission(3, PermissionResolveReport))
	})

	t.Run("get role returns a copy", func(t *testing.T) {
		role, ok := roles.GetRole(2)
		require.True(t, ok)
		assert.Equal(t, RoleModerator, role.Name)

		role.Permissions = nil
		again, ok := roles.GetRole(2)
		require.True(t, ok)
		assert.NotEmpty(t, again.Permissions)
	})

	t.Run("list moderators", func(t *testing.T) {
		mods := roles.ListModerators()
		require.Len(t, mods, 2)
	})
}

func TestRolesConfigValidation(t *testing.T) {
	t.Run("unknown role rejected", func(t *testing.T) {
		path := writeRolesConfig(t, `{
			"roles": {},
			"users": [{"id": 1, "role": "overlord"}]
		}`)
		_, err := NewRoles(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown role")
	})

	t.Run("system actor id rejected", func(t *testing.T) {
		path := writeRolesConfig(t, `{
			"roles": {"admin": {"permissions": ["view_reports"]}},
			"users": [{"id": 0, "role": "admin"}]
		}`)
		_, err := NewRoles(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserved for the system actor")
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		path := writeRolesConfig(t, `{not json`)
		_, err := NewRoles(path)
		require.Error(t, err)
	})
}

func TestRolesReload(t *testing.T) {
	path := writeRolesConfig(t, `{
		"roles": {"moderator": {"permissions": ["view_reports"]}},
		"users": [{"id": 2, "role": "moderator"}]
	}`)

	roles, err := NewRoles(path)
	require.NoError(t, err)
	assert.True(t, roles.IsModerator(2))
	assert.False(t, roles.IsModerator(3))

	require.NoError(t, os.WriteFile(path, []byte(`{
		"roles": {"moderator": {"permissions": ["view_reports"]}},
		"users": [
			{"id": 2, "role": "moderator"},
			{"id": 3, "role": "moderator"}
		]
	}`), 0600))

	require.NoError(t, roles.Reload())
	assert.True(t, roles.IsModerator(3))
}
