// Package bootstrap creates the first admin user on a fresh deployment so
// the role-gated admin API has at least one caller able to use it.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tendant/simple-admin/pkg/adminuser"
	"github.com/tendant/simple-admin/pkg/auth"
)

// AdminBootstrapConfig contains configuration for bootstrapping the first
// admin user.
type AdminBootstrapConfig struct {
	// Admin user credentials (from ADMIN_USERNAME, ADMIN_EMAIL,
	// ADMIN_PASSWORD). A missing password is auto-generated.
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	// AccessRole is the role granted to the bootstrapped user. Must match
	// the role the admin services are gated on.
	AccessRole string

	Service *adminuser.AdminUserService
}

// AdminBootstrapResult contains the result of an admin bootstrap operation.
type AdminBootstrapResult struct {
	UserID   string
	Username string
	Email    string

	// Password is only populated when it was auto-generated.
	Password string

	UserCreated     bool
	PasswordFromEnv bool
}

// BootstrapAdminUser creates the first admin user if the store is empty.
// When any user already exists the bootstrap is skipped, so it is safe to run
// on every startup.
func BootstrapAdminUser(ctx context.Context, cfg AdminBootstrapConfig) (*AdminBootstrapResult, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("admin user service is required")
	}
	if cfg.AdminUsername == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if cfg.AccessRole == "" {
		cfg.AccessRole = adminuser.AdminRoleDefault
	}

	// The bootstrap runs in-process with a synthetic caller holding the
	// access role.
	ctx = auth.WithAuthUser(ctx, &auth.AuthUser{
		UserId: "bootstrap",
		Roles:  []string{cfg.AccessRole},
	})

	exists, err := anyUserExists(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to check if users exist: %w", err)
	}
	if exists {
		slog.Info("Users already exist, skipping admin bootstrap")
		return &AdminBootstrapResult{UserCreated: false}, nil
	}

	password := cfg.AdminPassword
	generated := password == ""
	if generated {
		password = uuid.New().String()
	}

	slog.Info("No users exist, creating initial admin user",
		"username", cfg.AdminUsername, "role", cfg.AccessRole)

	created, err := cfg.Service.CreateUser(ctx, adminuser.CreateUserRequest{
		AdminUserBase: adminuser.AdminUserBase{
			UserName: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: password,
		},
		Roles: []string{cfg.AccessRole},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	result := &AdminBootstrapResult{
		UserID:          created.ID,
		Username:        cfg.AdminUsername,
		Email:           cfg.AdminEmail,
		UserCreated:     true,
		PasswordFromEnv: !generated,
	}
	if generated {
		result.Password = password
	}
	return result, nil
}

// anyUserExists checks the store. Repositories without query support can
// only be checked for the admin username itself.
func anyUserExists(ctx context.Context, cfg AdminBootstrapConfig) (bool, error) {
	query := adminuser.QueryUsersRequest{Take: 1}
	if cfg.Service.Capabilities().ExactSearchOnly {
		query.Query = cfg.AdminUsername
	}

	response, err := cfg.Service.QueryUsers(ctx, query)
	if err != nil {
		return false, err
	}
	return len(response.Results) > 0, nil
}
