// Package targeting turns the recipient part of a send request into a
// concrete, de-duplicated list of recipient ids.
package targeting

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrMissingTarget = errors.New("either user_ids or role is required")
	ErrUnknownRole   = errors.New("unknown role")
)

// Role names accepted in a Target. RoleAll selects every user.
const (
	RoleDoctor   = "doctor"
	RoleHospital = "hospital"
	RoleAdmin    = "admin"
	RoleAll      = "all"
)

// Roles lists every accepted role name.
var Roles = []string{RoleDoctor, RoleHospital, RoleAdmin, RoleAll}

// Target selects recipients by explicit ids or by role. When both are set
// UserIDs wins and Role is ignored.
type Target struct {
	UserIDs []int64 `json:"user_ids,omitempty"`
	Role    string  `json:"role,omitempty"`
}

// IsEmpty reports whether neither discriminator is present. An empty id list
// counts as absent.
func (t Target) IsEmpty() bool {
	return len(t.UserIDs) == 0 && t.Role == ""
}

// Membership is the external source of user and role data.
type Membership interface {
	// RecipientsByRole returns the ids of users holding role, or every
	// user for RoleAll.
	RecipientsByRole(ctx context.Context, role string) ([]int64, error)

	// Existing returns the subset of ids that belong to real users, in
	// input order.
	Existing(ctx context.Context, ids []int64) ([]int64, error)
}

// Resolver expands targets against a Membership.
type Resolver struct {
	membership Membership
}

// NewResolver creates a resolver over m.
func NewResolver(m Membership) *Resolver {
	return &Resolver{membership: m}
}

// Resolve returns the recipient ids selected by t, first-seen order, no
// duplicates. Explicit ids are returned as given; checking that they exist
// is left to the caller (see Existing).
func (r *Resolver) Resolve(ctx context.Context, t Target) ([]int64, error) {
	switch {
	case len(t.UserIDs) > 0:
		return Dedupe(t.UserIDs), nil
	case t.Role != "":
		if !slices.Contains(Roles, t.Role) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, t.Role)
		}
		ids, err := r.membership.RecipientsByRole(ctx, t.Role)
		if err != nil {
			return nil, fmt.Errorf("resolve role %q: %w", t.Role, err)
		}
		return Dedupe(ids), nil
	default:
		return nil, ErrMissingTarget
	}
}

// Existing filters ids down to known users.
func (r *Resolver) Existing(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}
	found, err := r.membership.Existing(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check recipients: %w", err)
	}
	return found, nil
}

// Dedupe drops repeated ids, keeping the first occurrence.
func Dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
