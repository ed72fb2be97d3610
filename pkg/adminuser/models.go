package adminuser

import (
	"time"

	"github.com/iancoleman/orderedmap"
)

// ProfileUrlKey is the well-known Meta key (and promoted result field) for a
// user's display profile URL when the record type has no first-class field
// for it.
const ProfileUrlKey = "ProfileUrl"

// UserAuth is the canonical user-identity record. PasswordHash and Salt are
// never included in projected output.
type UserAuth struct {
	ID                   string            `json:"id"`
	UserName             string            `json:"user_name"`
	Email                string            `json:"email"`
	DisplayName          string            `json:"display_name,omitempty"`
	FirstName            string            `json:"first_name,omitempty"`
	LastName             string            `json:"last_name,omitempty"`
	Company              string            `json:"company,omitempty"`
	Address              string            `json:"address,omitempty"`
	City                 string            `json:"city,omitempty"`
	State                string            `json:"state,omitempty"`
	PostalCode           string            `json:"postal_code,omitempty"`
	Country              string            `json:"country,omitempty"`
	Language             string            `json:"language,omitempty"`
	PhoneNumber          string            `json:"phone_number,omitempty"`
	PasswordHash         string            `json:"-"`
	Salt                 string            `json:"-"`
	LockedDate           *time.Time        `json:"locked_date,omitempty"`
	InvalidLoginAttempts int               `json:"invalid_login_attempts"`
	Meta                 map[string]string `json:"meta,omitempty"`
	Roles                []string          `json:"roles,omitempty"`
	Permissions          []string          `json:"permissions,omitempty"`
	CreatedDate          time.Time         `json:"created_date"`
	ModifiedDate         time.Time         `json:"modified_date"`
}

// UserAuth implements Record. Custom record types embed UserAuth and get
// this accessor for free.
func (u *UserAuth) UserAuth() *UserAuth { return u }

// UserAuthDetails represents an external/federated credential linked to a
// UserAuth record. Token fields follow the same redaction rules as password
// fields on the parent record.
type UserAuthDetails struct {
	ID             string    `json:"id"`
	UserAuthID     string    `json:"user_auth_id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	UserName       string    `json:"user_name,omitempty"`
	Email          string    `json:"email,omitempty"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	CreatedDate    time.Time `json:"created_date"`
	ModifiedDate   time.Time `json:"modified_date"`
}

// Record is implemented by user-identity records. Repositories that support
// custom record types return their own struct embedding UserAuth; projection
// and metadata reflection operate on the concrete type so extra fields
// surface automatically.
type Record interface {
	UserAuth() *UserAuth
}

// AdminUserBase carries the fields common to create and update requests.
// UserAuthProperties is a string-keyed overlay applied after the typed
// fields, for record fields not modeled first-class on the request.
type AdminUserBase struct {
	UserName           string            `json:"user_name,omitempty"`
	FirstName          string            `json:"first_name,omitempty"`
	LastName           string            `json:"last_name,omitempty"`
	DisplayName        string            `json:"display_name,omitempty"`
	Email              string            `json:"email,omitempty"`
	Password           string            `json:"password,omitempty"`
	ProfileUrl         string            `json:"profile_url,omitempty"`
	UserAuthProperties map[string]string `json:"user_auth_properties,omitempty"`
	Meta               map[string]string `json:"meta,omitempty"`
}

// CreateUserRequest creates a new user record.
type CreateUserRequest struct {
	AdminUserBase
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UpdateUserRequest updates an existing user record. Only non-default fields
// overwrite the stored values. Unlocking a user also resets the invalid
// login attempt counter.
type UpdateUserRequest struct {
	AdminUserBase
	ID                string   `json:"id"`
	LockUser          *bool    `json:"lock_user,omitempty"`
	UnlockUser        *bool    `json:"unlock_user,omitempty"`
	AddRoles          []string `json:"add_roles,omitempty"`
	RemoveRoles       []string `json:"remove_roles,omitempty"`
	AddPermissions    []string `json:"add_permissions,omitempty"`
	RemovePermissions []string `json:"remove_permissions,omitempty"`
}

// GetUserRequest fetches a single user by id.
type GetUserRequest struct {
	ID string `json:"id"`
}

// DeleteUserRequest deletes a user by id.
type DeleteUserRequest struct {
	ID string `json:"id"`
}

// QueryUsersRequest searches or lists users. When the repository has no
// query support, Query is treated as an exact username lookup.
type QueryUsersRequest struct {
	Query   string `json:"query,omitempty"`
	OrderBy string `json:"order_by,omitempty"`
	Skip    int    `json:"skip,omitempty"`
	Take    int    `json:"take,omitempty"`
}

// UserResponse is the reply for get/create/update. Result is an ordered
// field-name-to-value map so default and custom record types share one
// response shape; field order follows the record's declaration order.
type UserResponse struct {
	ID     string                 `json:"id"`
	Result *orderedmap.OrderedMap `json:"result"`
}

// UsersResponse is the reply for queries.
type UsersResponse struct {
	Results []*orderedmap.OrderedMap `json:"results"`
}

// DeleteUserResponse confirms a delete, echoing the id.
type DeleteUserResponse struct {
	ID string `json:"id"`
}
