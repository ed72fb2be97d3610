package adminuser

import (
	"context"
)

// Repository is the baseline contract every identity store must implement.
// Lookups return (nil, nil) when no record matches.
//
// GetUserAuthByUserName matches the username OR the primary email; both
// conflict checks during create go through it, mirroring the auth
// repositories this module was built against.
type Repository interface {
	GetUserAuth(ctx context.Context, id string) (Record, error)
	GetUserAuthByUserName(ctx context.Context, userName string) (Record, error)
	CreateUserAuth(ctx context.Context, user Record, password string) (Record, error)
	UpdateUserAuth(ctx context.Context, existing, updated Record) (Record, error)
	UpdateUserAuthWithPassword(ctx context.Context, existing, updated Record, password string) (Record, error)
	DeleteUserAuth(ctx context.Context, id string) error
}

// QueryRepository is implemented by repositories that support free-text
// search and paginated listing. Take <= 0 means no limit.
type QueryRepository interface {
	SearchUserAuths(ctx context.Context, query, orderBy string, skip, take int) ([]Record, error)
	GetUserAuths(ctx context.Context, orderBy string, skip, take int) ([]Record, error)
}

// CustomUserAuthRepository is implemented by repositories that persist their
// own record types. The returned records are zero values used both as
// persistence targets and for metadata schema reflection.
type CustomUserAuthRepository interface {
	CreateUserAuthRecord() Record
	CreateUserAuthDetailsRecord() interface{}
}

// RoleRepository is implemented by repositories that manage roles and
// permissions outside the record itself.
type RoleRepository interface {
	AssignRoles(ctx context.Context, userID string, roles, permissions []string) error
	UnassignRoles(ctx context.Context, userID string, roles, permissions []string) error
	GetRolesAndPermissions(ctx context.Context, userID string) (roles []string, permissions []string, err error)
}

// Capabilities is the set of optional repository operations available at
// runtime. It is computed once per repository instance at service
// construction and never written afterwards, so unsynchronized concurrent
// reads are safe.
type Capabilities struct {
	// ExactSearchOnly is the fallback mode: only exact username/email
	// lookup, no free-text query or pagination.
	ExactSearchOnly bool
	Query           bool
	Custom          bool
	ManageRoles     bool
}

// Tags returns the capability flags as the string tags published in the
// feature metadata.
func (c Capabilities) Tags() []string {
	enabled := []string{}
	if c.Query {
		enabled = append(enabled, "query")
	}
	if c.Custom {
		enabled = append(enabled, "custom")
	}
	if c.ManageRoles {
		enabled = append(enabled, "manageRoles")
	}
	return enabled
}

// DetectCapabilities inspects a live repository and reports which optional
// interfaces it implements. A repository implementing none of them still
// works in exact-search-only mode.
func DetectCapabilities(repo Repository) Capabilities {
	caps := Capabilities{}
	if _, ok := repo.(QueryRepository); ok {
		caps.Query = true
	}
	if _, ok := repo.(CustomUserAuthRepository); ok {
		caps.Custom = true
	}
	if _, ok := repo.(RoleRepository); ok {
		caps.ManageRoles = true
	}
	caps.ExactSearchOnly = !caps.Query
	return caps
}
