package adminuser

import (
	"context"
)

// AdminRoleDefault is the role required to call the admin user operations
// unless the feature configuration overrides it.
const AdminRoleDefault = "admin"

// ValidateFn is an optional business-validation hook invoked after the
// built-in authorization and normalization steps. A non-nil response is
// returned to the caller immediately, short-circuiting the handler; a non-nil
// error propagates as a structured failure.
type ValidateFn func(ctx context.Context, verb string, req *AdminUserBase) (*UserResponse, error)

// Feature configures the admin user services. It is read once at service
// construction; the include-lists and role/permission sets are treated as
// immutable afterwards.
type Feature struct {
	// AdminRole is the role a caller must hold to create or update users.
	AdminRole string

	// SaveUserNamesInLowerCase normalizes UserName and Email to lowercase
	// before any further processing.
	SaveUserNamesInLowerCase bool

	// IncludeUserAuthProperties restricts which UserAuth properties are
	// published in the feature metadata. nil disables filtering; names not
	// present on the concrete record type are dropped.
	IncludeUserAuthProperties []string

	// IncludeUserAuthDetailsProperties restricts which UserAuthDetails
	// properties are published in the feature metadata.
	IncludeUserAuthDetailsProperties []string

	// QueryUserAuthProperties restricts which properties appear in query
	// results, in order. Requested names missing on a record yield nil.
	QueryUserAuthProperties []string

	// AllRoles and AllPermissions are the known role and permission names
	// published in the feature metadata for external tooling.
	AllRoles       []string
	AllPermissions []string

	// ValidateFn is the optional custom validation hook.
	ValidateFn ValidateFn
}

// DefaultFeature returns the feature configuration with the stock
// include-lists. ProfileUrl is listed even though the default record stores
// it in Meta; custom record types with a first-class field surface it.
func DefaultFeature() *Feature {
	return &Feature{
		AdminRole: AdminRoleDefault,
		IncludeUserAuthProperties: []string{
			"ID",
			"UserName",
			"Email",
			"DisplayName",
			"FirstName",
			"LastName",
			"Company",
			"Address",
			"City",
			"State",
			"PostalCode",
			"Country",
			"PhoneNumber",
			"LockedDate",
			ProfileUrlKey,
		},
		IncludeUserAuthDetailsProperties: []string{},
		QueryUserAuthProperties: []string{
			"ID",
			"UserName",
			"Email",
			"DisplayName",
			"FirstName",
			"LastName",
			"Company",
			"State",
			"Country",
			"CreatedDate",
			"ModifiedDate",
		},
	}
}
