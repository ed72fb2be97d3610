package adminuser

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("..", "..", "migrations", "admin_db.sql")),
		postgres.WithDatabase("admin_db"),
		postgres.WithUsername("admin"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresCreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	repo := NewPostgresRepository(setupTestDatabase(t))
	ctx := context.Background()

	created, err := repo.CreateUserAuth(ctx, &UserAuth{
		UserName:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		Meta:      map[string]string{ProfileUrlKey: "https://example.com/alice.png"},
	}, "p@ss123")
	require.NoError(t, err)
	require.NotEmpty(t, created.UserAuth().ID)

	got, err := repo.GetUserAuth(ctx, created.UserAuth().ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.UserAuth().UserName)
	assert.Equal(t, "https://example.com/alice.png", got.UserAuth().Meta[ProfileUrlKey])
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(got.UserAuth().PasswordHash), []byte("p@ss123")))

	missing, err := repo.GetUserAuth(ctx, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresLookupByUserNameOrEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	repo := NewPostgresRepository(setupTestDatabase(t))
	ctx := context.Background()

	_, err := repo.CreateUserAuth(ctx, &UserAuth{
		UserName: "alice",
		Email:    "alice@example.com",
	}, "")
	require.NoError(t, err)

	byName, err := repo.GetUserAuthByUserName(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, byName)

	byEmail, err := repo.GetUserAuthByUserName(ctx, "Alice@Example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, byName.UserAuth().ID, byEmail.UserAuth().ID)

	missing, err := repo.GetUserAuthByUserName(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	repo := NewPostgresRepository(setupTestDatabase(t))
	ctx := context.Background()

	created, err := repo.CreateUserAuth(ctx, &UserAuth{
		UserName: "alice",
		Email:    "alice@example.com",
	}, "old-pass")
	require.NoError(t, err)
	id := created.UserAuth().ID

	updated := *created.UserAuth()
	updated.FirstName = "Alice"
	locked := time.Now().UTC()
	updated.LockedDate = &locked
	_, err = repo.UpdateUserAuth(ctx, created, &updated)
	require.NoError(t, err)

	got, err := repo.GetUserAuth(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.UserAuth().FirstName)
	require.NotNil(t, got.UserAuth().LockedDate)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(got.UserAuth().PasswordHash), []byte("old-pass")))

	_, err = repo.UpdateUserAuthWithPassword(ctx, got, got, "new-pass")
	require.NoError(t, err)

	got, err = repo.GetUserAuth(ctx, id)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(got.UserAuth().PasswordHash), []byte("new-pass")))

	_, err = repo.UpdateUserAuth(ctx,
		&UserAuth{ID: "00000000-0000-0000-0000-000000000000"},
		&UserAuth{ID: "00000000-0000-0000-0000-000000000000"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresSearchAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	repo := NewPostgresRepository(setupTestDatabase(t))
	ctx := context.Background()

	seed := []UserAuth{
		{UserName: "alice", Email: "alice@example.com", Company: "Acme"},
		{UserName: "bob", Email: "bob@example.com", Company: "Acme"},
		{UserName: "carol", Email: "carol@other.org", Company: "Globex"},
	}
	for _, user := range seed {
		u := user
		_, err := repo.CreateUserAuth(ctx, &u, "")
		require.NoError(t, err)
	}

	acme, err := repo.SearchUserAuths(ctx, "acme", "UserName", 0, 0)
	require.NoError(t, err)
	require.Len(t, acme, 2)
	assert.Equal(t, "alice", acme[0].UserAuth().UserName)
	assert.Equal(t, "bob", acme[1].UserAuth().UserName)

	page, err := repo.GetUserAuths(ctx, "-UserName", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].UserAuth().UserName)

	// Unknown sort fields fall back to user_name instead of reaching the
	// database as raw SQL.
	all, err := repo.GetUserAuths(ctx, "Company; DROP TABLE user_auth", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPostgresDeleteCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	repo := NewPostgresRepository(setupTestDatabase(t))
	ctx := context.Background()

	created, err := repo.CreateUserAuth(ctx, &UserAuth{UserName: "alice", Email: "alice@example.com"}, "")
	require.NoError(t, err)
	id := created.UserAuth().ID
	require.NoError(t, repo.AssignRoles(ctx, id, []string{"manager"}, []string{"reports:read"}))

	require.NoError(t, repo.DeleteUserAuth(ctx, id))

	gone, err := repo.GetUserAuth(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)

	roles, permissions, err := repo.GetRolesAndPermissions(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.Empty(t, permissions)

	assert.NoError(t, repo.DeleteUserAuth(ctx, id))
}

func TestPostgresRoles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	repo := NewPostgresRepository(setupTestDatabase(t))
	ctx := context.Background()

	created, err := repo.CreateUserAuth(ctx, &UserAuth{UserName: "alice", Email: "alice@example.com"}, "")
	require.NoError(t, err)
	id := created.UserAuth().ID

	require.NoError(t, repo.AssignRoles(ctx, id, []string{"manager", "employee"}, []string{"reports:read"}))
	require.NoError(t, repo.AssignRoles(ctx, id, []string{"manager"}, nil))

	roles, permissions, err := repo.GetRolesAndPermissions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"employee", "manager"}, roles)
	assert.Equal(t, []string{"reports:read"}, permissions)

	require.NoError(t, repo.UnassignRoles(ctx, id, []string{"manager"}, []string{"reports:read"}))
	roles, permissions, err = repo.GetRolesAndPermissions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"employee"}, roles)
	assert.Empty(t, permissions)
}

func TestPostgresServiceEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	repo := NewPostgresRepository(setupTestDatabase(t))
	service, err := NewAdminUserService(repo, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"query", "manageRoles"}, service.Capabilities().Tags())

	created, err := service.CreateUser(adminCtx(), CreateUserRequest{
		AdminUserBase: AdminUserBase{
			UserName:  "alice",
			Email:     "alice@example.com",
			FirstName: "Alice",
			Password:  "p@ss123",
		},
		Roles: []string{"manager"},
	})
	require.NoError(t, err)

	roles, _ := created.Result.Get("Roles")
	assert.Equal(t, []string{"manager"}, roles)

	fetched, err := service.GetUser(adminCtx(), GetUserRequest{ID: created.ID})
	require.NoError(t, err)
	email, _ := fetched.Result.Get("Email")
	assert.Equal(t, "alice@example.com", email)

	_, err = service.DeleteUser(adminCtx(), DeleteUserRequest{ID: created.ID})
	require.NoError(t, err)
}
