// Package rbac maps platform roles to permissions.
//
// Permissions are dot-separated strings ("notifications.moderate"). A role
// may grant a wildcard ("notifications.*" or "*") and may inherit every
// permission of other roles. The authorizer flattens inheritance once at
// construction, so checks are map lookups.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxInheritanceDepth bounds role inheritance chains.
const MaxInheritanceDepth = 10

var (
	ErrInvalidRole             = errors.New("rbac.invalid_role")
	ErrInsufficientPermissions = errors.New("rbac.insufficient_permissions")
	ErrRoleNotInContext        = errors.New("rbac.role_not_in_context")
	ErrCircularInheritance     = errors.New("rbac.circular_inheritance")
)

// Role is a named set of permissions.
type Role struct {
	Permissions []string `yaml:"permissions"`
	Inherits    []string `yaml:"inherits"`
}

// RoleSource supplies role definitions.
type RoleSource interface {
	Load(ctx context.Context) (map[string]Role, error)
}

// Authorizer answers permission checks for role names.
type Authorizer struct {
	permissions map[string][]string
}

// NewAuthorizer loads roles from source and flattens inheritance.
func NewAuthorizer(ctx context.Context, source RoleSource) (*Authorizer, error) {
	roles, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	a := &Authorizer{permissions: make(map[string][]string, len(roles))}
	for name := range roles {
		perms, err := collect(name, roles, nil)
		if err != nil {
			return nil, err
		}
		slices.Sort(perms)
		a.permissions[name] = slices.Compact(perms)
	}
	return a, nil
}

// Can returns nil when role holds permission, ErrInvalidRole for unknown
// roles and ErrInsufficientPermissions otherwise.
func (a *Authorizer) Can(role, permission string) error {
	perms, ok := a.permissions[role]
	if !ok {
		return ErrInvalidRole
	}
	for _, p := range perms {
		if matches(p, permission) {
			return nil
		}
	}
	return ErrInsufficientPermissions
}

// CanFromContext checks the role stored by WithRole.
func (a *Authorizer) CanFromContext(ctx context.Context, permission string) error {
	role, ok := RoleFromContext(ctx)
	if !ok {
		return errors.Join(ErrRoleNotInContext, ErrInsufficientPermissions)
	}
	return a.Can(role, permission)
}

// VerifyRole returns ErrInvalidRole if role is not defined.
func (a *Authorizer) VerifyRole(role string) error {
	if _, ok := a.permissions[role]; !ok {
		return ErrInvalidRole
	}
	return nil
}

// Roles returns the defined role names in lexical order.
func (a *Authorizer) Roles() []string {
	out := make([]string, 0, len(a.permissions))
	for name := range a.permissions {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func collect(name string, roles map[string]Role, path []string) ([]string, error) {
	if slices.Contains(path, name) {
		return nil, errors.Join(ErrCircularInheritance,
			fmt.Errorf("circular inheritance: %s -> %s", strings.Join(path, " -> "), name))
	}
	if len(path) > MaxInheritanceDepth {
		return nil, errors.Join(ErrCircularInheritance,
			fmt.Errorf("inheritance depth exceeds %d", MaxInheritanceDepth))
	}
	role, ok := roles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, name)
	}

	out := slices.Clone(role.Permissions)
	for _, parent := range role.Inherits {
		inherited, err := collect(parent, roles, append(path, name))
		if err != nil {
			return nil, err
		}
		out = append(out, inherited...)
	}
	return out, nil
}

// matches reports whether granted covers requested. "*" covers everything;
// "a.*" covers "a" and any "a.<...>".
func matches(granted, requested string) bool {
	if granted == "*" || granted == requested {
		return true
	}
	if prefix, ok := strings.CutSuffix(granted, ".*"); ok {
		return requested == prefix || strings.HasPrefix(requested, prefix+".")
	}
	return false
}

type roleCtxKey struct{}

// WithRole stores the caller's role in ctx.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleCtxKey{}, role)
}

// RoleFromContext returns the role stored by WithRole.
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleCtxKey{}).(string)
	return role, ok
}
