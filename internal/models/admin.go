package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole - роль администратора
type AdminRole string

const (
	RoleSuperAdmin AdminRole = "super_admin"
	RoleAdmin      AdminRole = "admin"
	RoleModerator  AdminRole = "moderator"
)

// Permission - именованная возможность администратора
type Permission string

const (
	PermManageUsers       Permission = "manage_users"
	PermManageSwaps       Permission = "manage_swaps"
	PermManageFeedback    Permission = "manage_feedback"
	PermViewAnalytics     Permission = "view_analytics"
	PermSendNotifications Permission = "send_notifications"
	PermManageAdmins      Permission = "manage_admins"
	PermViewReports       Permission = "view_reports"
	PermBanUsers          Permission = "ban_users"
	PermDeleteContent     Permission = "delete_content"
)

// AllPermissions - фиксированный словарь прав
var AllPermissions = []Permission{
	PermManageUsers, PermManageSwaps, PermManageFeedback, PermViewAnalytics,
	PermSendNotifications, PermManageAdmins, PermViewReports, PermBanUsers, PermDeleteContent,
}

// ParsePermissions проверяет, что все права из словаря
func ParsePermissions(raw []string) ([]Permission, error) {
	known := make(map[Permission]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		known[p] = true
	}
	perms := make([]Permission, 0, len(raw))
	for _, r := range raw {
		p := Permission(r)
		if !known[p] {
			return nil, NewValidationError("permissions", "Invalid permission: "+r)
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// DefaultPermissions возвращает права роли по умолчанию
func DefaultPermissions(role AdminRole) []Permission {
	switch role {
	case RoleSuperAdmin:
		return append([]Permission(nil), AllPermissions...)
	case RoleAdmin:
		return []Permission{
			PermManageUsers, PermManageSwaps, PermManageFeedback, PermViewAnalytics,
			PermSendNotifications, PermViewReports, PermBanUsers,
		}
	case RoleModerator:
		return []Permission{PermViewAnalytics, PermSendNotifications, PermViewReports}
	}
	return nil
}

// Authority - полномочия администратора: либо супер-админ, либо явный набор прав
type Authority interface {
	Allows(p Permission) bool
	authority()
}

// SuperAdmin обладает всеми правами независимо от сохраненного набора
type SuperAdmin struct{}

func (SuperAdmin) Allows(Permission) bool { return true }
func (SuperAdmin) authority()             {}

// Scoped ограничен явным набором прав
type Scoped struct {
	perms map[Permission]struct{}
}

// NewScoped создает ограниченные полномочия
func NewScoped(perms []Permission) Scoped {
	s := Scoped{perms: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		s.perms[p] = struct{}{}
	}
	return s
}

func (s Scoped) Allows(p Permission) bool {
	_, ok := s.perms[p]
	return ok
}
func (Scoped) authority() {}

const (
	MaxLoginAttempts = 5
	LoginLockPeriod  = 2 * time.Hour
)

// Admin - учетная запись администратора (отдельно от пользователей)
type Admin struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"`
	Role          AdminRole    `json:"role"`
	Permissions   []Permission `json:"permissions"`
	IsActive      bool         `json:"is_active"`
	LoginAttempts int          `json:"-"`
	LockUntil     *time.Time   `json:"-"`
	LastLogin     *time.Time   `json:"last_login,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Authority возвращает полномочия по роли
func (a *Admin) Authority() Authority {
	if a.Role == RoleSuperAdmin {
		return SuperAdmin{}
	}
	return NewScoped(a.Permissions)
}

// Can проверяет право
func (a *Admin) Can(p Permission) bool {
	return a.Authority().Allows(p)
}

// IsLocked сообщает, заблокирован ли вход
func (a *Admin) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// NewAdmin - данные для создания администратора
type NewAdmin struct {
	Name         string
	Email        string
	PasswordHash string
	Role         AdminRole
	Permissions  []Permission
}

// AdminUpdate - изменение администратора
type AdminUpdate struct {
	Name        *string
	Role        *AdminRole
	Permissions *[]Permission
	IsActive    *bool
}
