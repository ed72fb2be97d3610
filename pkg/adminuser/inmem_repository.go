package adminuser

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Common errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// InMemoryRepository implements the full repository contract, including
// query and role management, using in-memory storage. Useful for demos and
// tests; all data is lost on shutdown.
type InMemoryRepository struct {
	mu              sync.RWMutex
	users           map[string]UserAuth
	userRoles       map[string][]string
	userPermissions map[string][]string
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:           make(map[string]UserAuth),
		userRoles:       make(map[string][]string),
		userPermissions: make(map[string][]string),
	}
}

// GetUserAuth gets a user by id, returning (nil, nil) when absent.
func (r *InMemoryRepository) GetUserAuth(ctx context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(user), nil
}

// GetUserAuthByUserName matches the username or the primary email,
// case-insensitively.
func (r *InMemoryRepository) GetUserAuthByUserName(ctx context.Context, userName string) (Record, error) {
	if userName == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.UserName, userName) || strings.EqualFold(user.Email, userName) {
			return copyUser(user), nil
		}
	}
	return nil, nil
}

// CreateUserAuth persists a new record, assigning its id and hashing the
// password.
func (r *InMemoryRepository) CreateUserAuth(ctx context.Context, user Record, password string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := *user.UserAuth()
	now := time.Now().UTC()
	base.ID = uuid.New().String()
	base.CreatedDate = now
	base.ModifiedDate = now

	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		base.PasswordHash = hash
	}

	r.users[base.ID] = base
	r.userRoles[base.ID] = []string{}
	r.userPermissions[base.ID] = []string{}
	return copyUser(base), nil
}

// UpdateUserAuth persists the updated record, keeping the stored password.
func (r *InMemoryRepository) UpdateUserAuth(ctx context.Context, existing, updated Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := *updated.UserAuth()
	stored, ok := r.users[base.ID]
	if !ok {
		return nil, ErrUserNotFound
	}

	base.PasswordHash = stored.PasswordHash
	base.Salt = stored.Salt
	base.CreatedDate = stored.CreatedDate
	base.ModifiedDate = time.Now().UTC()
	r.users[base.ID] = base
	return copyUser(base), nil
}

// UpdateUserAuthWithPassword persists the updated record with a new
// password.
func (r *InMemoryRepository) UpdateUserAuthWithPassword(ctx context.Context, existing, updated Record, password string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := *updated.UserAuth()
	stored, ok := r.users[base.ID]
	if !ok {
		return nil, ErrUserNotFound
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	base.PasswordHash = hash
	base.Salt = ""
	base.CreatedDate = stored.CreatedDate
	base.ModifiedDate = time.Now().UTC()
	r.users[base.ID] = base
	return copyUser(base), nil
}

// DeleteUserAuth deletes a user. Deleting an unknown id is a no-op.
func (r *InMemoryRepository) DeleteUserAuth(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	delete(r.userRoles, id)
	delete(r.userPermissions, id)
	return nil
}

// SearchUserAuths performs a case-insensitive substring search over the
// name-ish fields.
func (r *InMemoryRepository) SearchUserAuths(ctx context.Context, query, orderBy string, skip, take int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(query)
	var matched []UserAuth
	for _, user := range r.users {
		haystack := strings.ToLower(strings.Join([]string{
			user.UserName, user.Email, user.DisplayName, user.FirstName, user.LastName, user.Company,
		}, "\n"))
		if strings.Contains(haystack, needle) {
			matched = append(matched, user)
		}
	}

	sortUsers(matched, orderBy)
	return paginate(matched, skip, take), nil
}

// GetUserAuths returns an ordered, paginated listing of all users.
func (r *InMemoryRepository) GetUserAuths(ctx context.Context, orderBy string, skip, take int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]UserAuth, 0, len(r.users))
	for _, user := range r.users {
		all = append(all, user)
	}

	sortUsers(all, orderBy)
	return paginate(all, skip, take), nil
}

// AssignRoles adds roles and permissions to a user.
func (r *InMemoryRepository) AssignRoles(ctx context.Context, userID string, roles, permissions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return ErrUserNotFound
	}
	r.userRoles[userID] = mergeDistinct(r.userRoles[userID], roles)
	r.userPermissions[userID] = mergeDistinct(r.userPermissions[userID], permissions)
	return nil
}

// UnassignRoles removes roles and permissions from a user.
func (r *InMemoryRepository) UnassignRoles(ctx context.Context, userID string, roles, permissions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return ErrUserNotFound
	}
	r.userRoles[userID] = removeAll(r.userRoles[userID], roles)
	r.userPermissions[userID] = removeAll(r.userPermissions[userID], permissions)
	return nil
}

// GetRolesAndPermissions returns the user's current roles and permissions.
func (r *InMemoryRepository) GetRolesAndPermissions(ctx context.Context, userID string) ([]string, []string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.users[userID]; !ok {
		return nil, nil, ErrUserNotFound
	}
	roles := append([]string{}, r.userRoles[userID]...)
	permissions := append([]string{}, r.userPermissions[userID]...)
	return roles, permissions, nil
}

// SeedUser adds a user directly (for testing/initialization). A missing id
// is assigned.
func (r *InMemoryRepository) SeedUser(user UserAuth) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.ID] = user
	if r.userRoles[user.ID] == nil {
		r.userRoles[user.ID] = []string{}
	}
	if r.userPermissions[user.ID] == nil {
		r.userPermissions[user.ID] = []string{}
	}
	return user.ID
}

func copyUser(user UserAuth) *UserAuth {
	u := user
	if user.Meta != nil {
		u.Meta = make(map[string]string, len(user.Meta))
		for k, v := range user.Meta {
			u.Meta[k] = v
		}
	}
	u.Roles = append([]string(nil), user.Roles...)
	u.Permissions = append([]string(nil), user.Permissions...)
	return &u
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// sortUsers orders by a record field name; a "-" prefix reverses. Unknown
// fields fall back to UserName.
func sortUsers(users []UserAuth, orderBy string) {
	desc := strings.HasPrefix(orderBy, "-")
	field := strings.TrimPrefix(orderBy, "-")

	key := func(u UserAuth) string {
		switch field {
		case "ID":
			return u.ID
		case "Email":
			return u.Email
		case "DisplayName":
			return u.DisplayName
		case "CreatedDate":
			return u.CreatedDate.Format(time.RFC3339Nano)
		case "ModifiedDate":
			return u.ModifiedDate.Format(time.RFC3339Nano)
		default:
			return u.UserName
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		if desc {
			return key(users[i]) > key(users[j])
		}
		return key(users[i]) < key(users[j])
	})
}

func paginate(users []UserAuth, skip, take int) []Record {
	if skip < 0 {
		skip = 0
	}
	if skip > len(users) {
		skip = len(users)
	}
	end := len(users)
	if take > 0 && skip+take < end {
		end = skip + take
	}

	page := make([]Record, 0, end-skip)
	for _, user := range users[skip:end] {
		page = append(page, copyUser(user))
	}
	return page
}
