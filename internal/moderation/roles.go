package moderation

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Permission represents a moderation action that can be performed.
type Permission string

const (
	PermissionViewReports   Permission = "view_reports"
	PermissionResolveReport Permission = "resolve_report"
	PermissionRejectReport  Permission = "reject_report"
	PermissionDeleteComment Permission = "delete_comment"
	PermissionRestoreBook   Permission = "restore_book"
	PermissionWarnUser      Permission = "warn_user"
	PermissionBanUser       Permission = "ban_user"
	PermissionViewAuditLog  Permission = "view_audit_log"
)

// RoleName represents the name of a moderation role.
type RoleName string

const (
	RoleAdmin     RoleName = "admin"
	RoleModerator RoleName = "moderator"
)

// Role defines a set of permissions for moderators.
type Role struct {
	Name        RoleName     `json:"-"` // Set from map key during loading
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// HasPermission checks if this role has the given permission.
func (r *Role) HasPermission(perm Permission) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ModeratorUser represents a user with moderation privileges.
type ModeratorUser struct {
	ID   int64    `json:"id"`
	Name string   `json:"name,omitempty"`
	Role RoleName `json:"role"`
	Note string   `json:"note,omitempty"`
}

// RolesConfig is the moderation role configuration loaded from JSON.
type RolesConfig struct {
	Roles map[RoleName]*Role `json:"roles"`
	Users []ModeratorUser    `json:"users"`
}

// Validate checks that the config is valid.
func (c *RolesConfig) Validate() error {
	if c.Roles == nil {
		c.Roles = make(map[RoleName]*Role)
	}

	for _, user := range c.Users {
		if user.ID == SystemActorID {
			return &ConfigError{
				Field:   "users",
				Message: "user id " + strconv.FormatInt(user.ID, 10) + " is reserved for the system actor",
			}
		}
		if _, ok := c.Roles[user.Role]; !ok {
			return &ConfigError{
				Field:   "users",
				Message: "user " + strconv.FormatInt(user.ID, 10) + " references unknown role: " + string(user.Role),
			}
		}
	}

	// Set role names from map keys
	for name, role := range c.Roles {
		role.Name = name
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "moderation config error in " + e.Field + ": " + e.Message
}

// Roles provides role-based access control for moderation actions.
type Roles struct {
	mu         sync.RWMutex
	config     *RolesConfig
	configPath string

	// Quick lookup map built from config
	userRoles map[int64]*Role
}

// NewRoles creates a new roles service. If configPath is empty, the
// service is in "disabled" mode where all permission checks return
// false.
func NewRoles(configPath string) (*Roles, error) {
	s := &Roles{
		configPath: configPath,
		userRoles:  make(map[int64]*Role),
	}

	if configPath == "" {
		log.Info().Msg("moderation: no roles config path provided, moderation disabled")
		return s, nil
	}

	if err := s.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load moderation roles config: %w", err)
	}

	return s, nil
}

// loadConfig reads and parses the config file.
func (s *Roles) loadConfig() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", s.configPath).Msg("moderation: roles config not found, moderation disabled")
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config RolesConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = &config
	s.rebuildLookupMap()

	log.Info().
		Int("roles", len(config.Roles)).
		Int("users", len(config.Users)).
		Str("path", s.configPath).
		Msg("moderation: roles config loaded")

	return nil
}

// rebuildLookupMap rebuilds the quick lookup map from config.
// Caller must hold the write lock.
func (s *Roles) rebuildLookupMap() {
	s.userRoles = make(map[int64]*Role)

	if s.config == nil {
		return
	}

	for i := range s.config.Users {
		user := &s.config.Users[i]
		if role, ok := s.config.Roles[user.Role]; ok {
			s.userRoles[user.ID] = role
		}
	}
}

// Reload reloads the configuration from disk.
func (s *Roles) Reload() error {
	if s.configPath == "" {
		return nil
	}
	return s.loadConfig()
}

// IsEnabled returns true if moderation is configured with at least one
// moderator.
func (s *Roles) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config != nil && len(s.config.Users) > 0
}

// IsAdmin returns true if the given user has the admin role.
func (s *Roles) IsAdmin(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.userRoles[userID]
	if !ok {
		return false
	}
	return role.Name == RoleAdmin
}

// IsModerator returns true if the given user has moderation privileges.
// This includes both moderators and admins.
func (s *Roles) IsModerator(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.userRoles[userID]
	return ok
}

// HasPermission returns true if the given user has the specified
// permission.
func (s *Roles) HasPermission(userID int64, permission Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.userRoles[userID]
	if !ok {
		return false
	}
	return role.HasPermission(permission)
}

// GetRole returns the role for the given user, if any.
func (s *Roles) GetRole(userID int64) (*Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.userRoles[userID]
	if !ok {
		return nil, false
	}
	// Return a copy to prevent external modification
	roleCopy := *role
	return &roleCopy, true
}

// ListModerators returns all configured moderator users.
func (s *Roles) ListModerators() []ModeratorUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil
	}

	result := make([]ModeratorUser, len(s.config.Users))
	copy(result, s.config.Users)
	return result
}
