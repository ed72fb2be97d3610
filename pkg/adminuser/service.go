package adminuser

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iancoleman/orderedmap"

	"github.com/tendant/simple-admin/pkg/auth"
	"github.com/tendant/simple-admin/pkg/errors"
)

// AdminUserService provides role-gated administrative CRUD and query
// operations over a user-identity repository. Optional repository
// capabilities are detected once at construction; the capability set and the
// published metadata are immutable afterwards and safe for concurrent reads.
type AdminUserService struct {
	repo    Repository
	feature *Feature
	caps    Capabilities
	info    *Info
}

// NewAdminUserService detects the repository's capabilities and builds the
// published metadata. A nil repository is a configuration error: role-gated
// user administration has no safe degraded mode without an identity store.
func NewAdminUserService(repo Repository, feature *Feature) (*AdminUserService, error) {
	if repo == nil {
		return nil, errors.New(errors.ErrCodeNotConfigured,
			"a user auth repository is required to use the admin user service")
	}
	if feature == nil {
		feature = DefaultFeature()
	}

	caps := DetectCapabilities(repo)
	return &AdminUserService{
		repo:    repo,
		feature: feature,
		caps:    caps,
		info:    buildInfo(feature, repo, caps),
	}, nil
}

// Capabilities returns the detected capability set.
func (s *AdminUserService) Capabilities() Capabilities {
	return s.caps
}

// Info returns the cached feature metadata built at construction.
func (s *AdminUserService) Info() *Info {
	return s.info
}

// validate asserts the caller holds the admin role, normalizes the username
// and email casing when configured, and runs the optional validation hook.
// It operates on the service's local copy of the request; caller input is
// never mutated.
func (s *AdminUserService) validate(ctx context.Context, verb string, req *AdminUserBase) (*UserResponse, error) {
	authUser, ok := auth.FromContext(ctx)
	if !ok {
		return nil, errors.Unauthorized("authentication required")
	}
	if !authUser.HasRole(s.feature.AdminRole) {
		slog.Warn("Caller lacks admin role", "caller", authUser, "requiredRole", s.feature.AdminRole)
		return nil, errors.Forbidden("role " + s.feature.AdminRole + " required")
	}

	if s.feature.SaveUserNamesInLowerCase {
		if req.UserName != "" {
			req.UserName = strings.ToLower(req.UserName)
		}
		if req.Email != "" {
			req.Email = strings.ToLower(req.Email)
		}
	}

	if s.feature.ValidateFn != nil {
		return s.feature.ValidateFn(ctx, verb, req)
	}
	return nil, nil
}

// GetUser fetches a single user by id.
func (s *AdminUserService) GetUser(ctx context.Context, req GetUserRequest) (*UserResponse, error) {
	if req.ID == "" {
		return nil, errors.MissingRequired("Id")
	}

	existing, err := s.repo.GetUserAuth(ctx, req.ID)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to get user")
	}
	return s.createUserResponse(ctx, existing)
}

// QueryUsers searches or lists users. Repositories without query support
// fall back to an exact lookup treating the query as a username, returning
// at most one result. Every returned record is projected and then filtered
// through the configured query include-list.
func (s *AdminUserService) QueryUsers(ctx context.Context, req QueryUsersRequest) (*UsersResponse, error) {
	queryRepo, ok := s.repo.(QueryRepository)
	if !ok {
		user, err := s.repo.GetUserAuthByUserName(ctx, req.Query)
		if err != nil {
			return nil, errors.InternalWrap(err, "failed to look up user")
		}
		if user == nil {
			return s.usersResponse(nil), nil
		}
		return s.usersResponse([]Record{user}), nil
	}

	var (
		users []Record
		err   error
	)
	if req.Query != "" {
		users, err = queryRepo.SearchUserAuths(ctx, req.Query, req.OrderBy, req.Skip, req.Take)
	} else {
		users, err = queryRepo.GetUserAuths(ctx, req.OrderBy, req.Skip, req.Take)
	}
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to query users")
	}

	return s.usersResponse(users), nil
}

// CreateUser validates the request, rejects username/email collisions,
// builds and persists a new record, then assigns any supplied roles and
// permissions as a follow-up call. Role assignment is not transactional with
// creation; a follow-up failure surfaces without rolling back the record.
func (s *AdminUserService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	base := req.AdminUserBase
	if altResponse, err := s.validate(ctx, http.MethodPost, &base); err != nil || altResponse != nil {
		return altResponse, err
	}

	// Both conflict checks go through the username lookup; the repository
	// contract matches username or primary email.
	existing, err := s.repo.GetUserAuthByUserName(ctx, base.UserName)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to check username")
	}
	if existing != nil {
		return nil, errors.AlreadyExists("UserName", base.UserName)
	}
	existing, err = s.repo.GetUserAuthByUserName(ctx, base.Email)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to check email")
	}
	if existing != nil {
		return nil, errors.AlreadyExists("Email", base.Email)
	}

	newUser := s.newUserAuthRecord()
	if err := populateUserAuth(newUser, base); err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUserAuth(ctx, newUser, base.Password)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to create user")
	}

	if len(req.Roles) > 0 || len(req.Permissions) > 0 {
		if err := s.assignRoles(ctx, user, req.Roles, req.Permissions); err != nil {
			slog.Error("User created but role assignment failed",
				"userId", user.UserAuth().ID, "error", err)
			return nil, errors.Wrap(err, errors.ErrCodeInternal,
				"user created but role assignment failed")
		}
	}

	return s.createUserResponse(ctx, user)
}

// UpdateUser overlays non-default request fields onto the existing record,
// applies lock/unlock semantics, persists (with password when one was
// supplied), then applies role/permission additions and removals as separate
// follow-up calls.
func (s *AdminUserService) UpdateUser(ctx context.Context, req UpdateUserRequest) (*UserResponse, error) {
	if req.ID == "" {
		return nil, errors.MissingRequired("Id")
	}

	base := req.AdminUserBase
	if altResponse, err := s.validate(ctx, http.MethodPut, &base); err != nil || altResponse != nil {
		return altResponse, err
	}

	existing, err := s.repo.GetUserAuth(ctx, req.ID)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to get user")
	}
	if existing == nil {
		return nil, errors.New(errors.ErrCodeUserNotFound, "user not found")
	}

	updated := existing
	if err := populateUserAuth(updated, base); err != nil {
		return nil, err
	}

	if req.LockUser != nil && *req.LockUser {
		now := time.Now().UTC()
		updated.UserAuth().LockedDate = &now
	}
	if req.UnlockUser != nil && *req.UnlockUser {
		// Unlocking forgives prior failed attempts.
		updated.UserAuth().LockedDate = nil
		updated.UserAuth().InvalidLoginAttempts = 0
	}

	var user Record
	if base.Password != "" {
		user, err = s.repo.UpdateUserAuthWithPassword(ctx, existing, updated, base.Password)
	} else {
		user, err = s.repo.UpdateUserAuth(ctx, existing, updated)
	}
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to update user")
	}

	if len(req.AddRoles) > 0 || len(req.AddPermissions) > 0 {
		if err := s.assignRoles(ctx, user, req.AddRoles, req.AddPermissions); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal,
				"user updated but role assignment failed")
		}
	}
	if len(req.RemoveRoles) > 0 || len(req.RemovePermissions) > 0 {
		if err := s.unassignRoles(ctx, user, req.RemoveRoles, req.RemovePermissions); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal,
				"user updated but role removal failed")
		}
	}

	return s.createUserResponse(ctx, user)
}

// DeleteUser deletes by id, echoing the id back. Deleting a nonexistent id
// is delegated to the repository.
func (s *AdminUserService) DeleteUser(ctx context.Context, req DeleteUserRequest) (*DeleteUserResponse, error) {
	if req.ID == "" {
		return nil, errors.MissingRequired("Id")
	}

	if err := s.repo.DeleteUserAuth(ctx, req.ID); err != nil {
		return nil, errors.InternalWrap(err, "failed to delete user")
	}
	return &DeleteUserResponse{ID: req.ID}, nil
}

// newUserAuthRecord constructs a fresh record, using the repository's custom
// factory when available.
func (s *AdminUserService) newUserAuthRecord() Record {
	if custom, ok := s.repo.(CustomUserAuthRepository); ok {
		return custom.CreateUserAuthRecord()
	}
	return &UserAuth{}
}

// assignRoles adds roles/permissions through the repository's role
// management when available, else merges them into the record itself and
// persists the record.
func (s *AdminUserService) assignRoles(ctx context.Context, user Record, roles, permissions []string) error {
	if len(roles) == 0 && len(permissions) == 0 {
		return nil
	}
	if roleRepo, ok := s.repo.(RoleRepository); ok {
		return roleRepo.AssignRoles(ctx, user.UserAuth().ID, roles, permissions)
	}

	base := user.UserAuth()
	base.Roles = mergeDistinct(base.Roles, roles)
	base.Permissions = mergeDistinct(base.Permissions, permissions)
	_, err := s.repo.UpdateUserAuth(ctx, user, user)
	return err
}

// unassignRoles is the removal counterpart of assignRoles.
func (s *AdminUserService) unassignRoles(ctx context.Context, user Record, roles, permissions []string) error {
	if len(roles) == 0 && len(permissions) == 0 {
		return nil
	}
	if roleRepo, ok := s.repo.(RoleRepository); ok {
		return roleRepo.UnassignRoles(ctx, user.UserAuth().ID, roles, permissions)
	}

	base := user.UserAuth()
	base.Roles = removeAll(base.Roles, roles)
	base.Permissions = removeAll(base.Permissions, permissions)
	_, err := s.repo.UpdateUserAuth(ctx, user, user)
	return err
}

// createUserResponse enriches the record with live roles/permissions when
// the repository manages them, then projects it.
func (s *AdminUserService) createUserResponse(ctx context.Context, user Record) (*UserResponse, error) {
	if user == nil {
		return nil, errors.New(errors.ErrCodeUserNotFound, "user not found")
	}

	if roleRepo, ok := s.repo.(RoleRepository); ok {
		roles, permissions, err := roleRepo.GetRolesAndPermissions(ctx, user.UserAuth().ID)
		if err != nil {
			return nil, errors.InternalWrap(err, "failed to get roles and permissions")
		}
		user.UserAuth().Roles = roles
		user.UserAuth().Permissions = permissions
	}

	return &UserResponse{
		ID:     user.UserAuth().ID,
		Result: ToUserProps(user),
	}, nil
}

// usersResponse projects each record and applies the query include-list.
func (s *AdminUserService) usersResponse(users []Record) *UsersResponse {
	rows := make([]*orderedmap.OrderedMap, 0, len(users))
	for _, user := range users {
		rows = append(rows, ToUserProps(user))
	}
	return &UsersResponse{Results: FilterResults(rows, s.feature.QueryUserAuthProperties)}
}

func mergeDistinct(existing, add []string) []string {
	for _, item := range add {
		found := false
		for _, have := range existing {
			if have == item {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, item)
		}
	}
	return existing
}

func removeAll(existing, remove []string) []string {
	kept := existing[:0]
	for _, have := range existing {
		drop := false
		for _, item := range remove {
			if have == item {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, have)
		}
	}
	return kept
}
