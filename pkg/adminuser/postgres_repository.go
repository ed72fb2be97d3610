package adminuser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the full repository contract, including
// query and role management, backed by PostgreSQL. Schema lives in
// migrations/admin_db.sql.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-backed repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const userAuthColumns = `id, user_name, email, display_name, first_name, last_name,
	company, address, city, state, postal_code, country, language, phone_number,
	password_hash, salt, locked_date, invalid_login_attempts, meta,
	created_date, modified_date`

// orderByColumns whitelists the sortable record fields.
var orderByColumns = map[string]string{
	"ID":           "id",
	"UserName":     "user_name",
	"Email":        "email",
	"DisplayName":  "display_name",
	"CreatedDate":  "created_date",
	"ModifiedDate": "modified_date",
}

// GetUserAuth gets a user by id, returning (nil, nil) when absent.
func (r *PostgresRepository) GetUserAuth(ctx context.Context, id string) (Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userAuthColumns+` FROM user_auth WHERE id = $1`, id)
	return scanUserAuth(row)
}

// GetUserAuthByUserName matches the username or the primary email,
// case-insensitively.
func (r *PostgresRepository) GetUserAuthByUserName(ctx context.Context, userName string) (Record, error) {
	if userName == "" {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+userAuthColumns+` FROM user_auth
		 WHERE lower(user_name) = lower($1) OR lower(email) = lower($1)`, userName)
	return scanUserAuth(row)
}

// CreateUserAuth persists a new record, assigning its id and hashing the
// password.
func (r *PostgresRepository) CreateUserAuth(ctx context.Context, user Record, password string) (Record, error) {
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

	meta, err := marshalMeta(base.Meta)
	if err != nil {
		return nil, err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO user_auth (`+userAuthColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15, $16, $17, $18, $19, $20, $21)`,
		base.ID, base.UserName, base.Email, base.DisplayName, base.FirstName, base.LastName,
		base.Company, base.Address, base.City, base.State, base.PostalCode, base.Country,
		base.Language, base.PhoneNumber, base.PasswordHash, base.Salt, base.LockedDate,
		base.InvalidLoginAttempts, meta, base.CreatedDate, base.ModifiedDate)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &base, nil
}

// UpdateUserAuth persists the updated record, keeping the stored password.
func (r *PostgresRepository) UpdateUserAuth(ctx context.Context, existing, updated Record) (Record, error) {
	return r.update(ctx, updated, "")
}

// UpdateUserAuthWithPassword persists the updated record with a new
// password.
func (r *PostgresRepository) UpdateUserAuthWithPassword(ctx context.Context, existing, updated Record, password string) (Record, error) {
	return r.update(ctx, updated, password)
}

func (r *PostgresRepository) update(ctx context.Context, updated Record, password string) (Record, error) {
	base := *updated.UserAuth()
	base.ModifiedDate = time.Now().UTC()

	meta, err := marshalMeta(base.Meta)
	if err != nil {
		return nil, err
	}

	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		base.PasswordHash = hash
		base.Salt = ""

		tag, err := r.pool.Exec(ctx,
			`UPDATE user_auth SET user_name = $2, email = $3, display_name = $4,
			   first_name = $5, last_name = $6, company = $7, address = $8, city = $9,
			   state = $10, postal_code = $11, country = $12, language = $13,
			   phone_number = $14, locked_date = $15, invalid_login_attempts = $16,
			   meta = $17, modified_date = $18, password_hash = $19, salt = $20
			 WHERE id = $1`,
			base.ID, base.UserName, base.Email, base.DisplayName, base.FirstName,
			base.LastName, base.Company, base.Address, base.City, base.State,
			base.PostalCode, base.Country, base.Language, base.PhoneNumber,
			base.LockedDate, base.InvalidLoginAttempts, meta, base.ModifiedDate,
			base.PasswordHash, base.Salt)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrUserNotFound
		}
		return &base, nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE user_auth SET user_name = $2, email = $3, display_name = $4,
		   first_name = $5, last_name = $6, company = $7, address = $8, city = $9,
		   state = $10, postal_code = $11, country = $12, language = $13,
		   phone_number = $14, locked_date = $15, invalid_login_attempts = $16,
		   meta = $17, modified_date = $18
		 WHERE id = $1`,
		base.ID, base.UserName, base.Email, base.DisplayName, base.FirstName,
		base.LastName, base.Company, base.Address, base.City, base.State,
		base.PostalCode, base.Country, base.Language, base.PhoneNumber,
		base.LockedDate, base.InvalidLoginAttempts, meta, base.ModifiedDate)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}
	return &base, nil
}

// DeleteUserAuth deletes a user and its role assignments. Deleting an
// unknown id is a no-op.
func (r *PostgresRepository) DeleteUserAuth(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_auth WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// SearchUserAuths performs a case-insensitive substring search over the
// name-ish fields.
func (r *PostgresRepository) SearchUserAuths(ctx context.Context, query, orderBy string, skip, take int) ([]Record, error) {
	sql := `SELECT ` + userAuthColumns + ` FROM user_auth
		WHERE user_name ILIKE '%' || $1 || '%'
		   OR email ILIKE '%' || $1 || '%'
		   OR display_name ILIKE '%' || $1 || '%'
		   OR first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		   OR company ILIKE '%' || $1 || '%'` +
		orderAndPageClause(orderBy, skip, take)

	rows, err := r.pool.Query(ctx, sql, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()
	return scanUserAuths(rows)
}

// GetUserAuths returns an ordered, paginated listing of all users.
func (r *PostgresRepository) GetUserAuths(ctx context.Context, orderBy string, skip, take int) ([]Record, error) {
	sql := `SELECT ` + userAuthColumns + ` FROM user_auth` +
		orderAndPageClause(orderBy, skip, take)

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	return scanUserAuths(rows)
}

// AssignRoles adds roles and permissions to a user.
func (r *PostgresRepository) AssignRoles(ctx context.Context, userID string, roles, permissions []string) error {
	for _, role := range roles {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO user_auth_role (user_id, role_name) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, userID, role)
		if err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
	}
	for _, permission := range permissions {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO user_auth_permission (user_id, permission_name) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, userID, permission)
		if err != nil {
			return fmt.Errorf("failed to assign permission: %w", err)
		}
	}
	return nil
}

// UnassignRoles removes roles and permissions from a user.
func (r *PostgresRepository) UnassignRoles(ctx context.Context, userID string, roles, permissions []string) error {
	if len(roles) > 0 {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM user_auth_role WHERE user_id = $1 AND role_name = ANY($2)`,
			userID, roles)
		if err != nil {
			return fmt.Errorf("failed to unassign roles: %w", err)
		}
	}
	if len(permissions) > 0 {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM user_auth_permission WHERE user_id = $1 AND permission_name = ANY($2)`,
			userID, permissions)
		if err != nil {
			return fmt.Errorf("failed to unassign permissions: %w", err)
		}
	}
	return nil
}

// GetRolesAndPermissions returns the user's current roles and permissions.
func (r *PostgresRepository) GetRolesAndPermissions(ctx context.Context, userID string) ([]string, []string, error) {
	roles, err := r.selectNames(ctx,
		`SELECT role_name FROM user_auth_role WHERE user_id = $1 ORDER BY role_name`, userID)
	if err != nil {
		return nil, nil, err
	}
	permissions, err := r.selectNames(ctx,
		`SELECT permission_name FROM user_auth_permission WHERE user_id = $1 ORDER BY permission_name`, userID)
	if err != nil {
		return nil, nil, err
	}
	return roles, permissions, nil
}

func (r *PostgresRepository) selectNames(ctx context.Context, sql, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func orderAndPageClause(orderBy string, skip, take int) string {
	desc := false
	if len(orderBy) > 0 && orderBy[0] == '-' {
		desc = true
		orderBy = orderBy[1:]
	}
	column, ok := orderByColumns[orderBy]
	if !ok {
		column = "user_name"
	}

	clause := " ORDER BY " + column
	if desc {
		clause += " DESC"
	}
	if take > 0 {
		clause += fmt.Sprintf(" LIMIT %d", take)
	}
	if skip > 0 {
		clause += fmt.Sprintf(" OFFSET %d", skip)
	}
	return clause
}

func marshalMeta(meta map[string]string) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal meta: %w", err)
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserAuth(row rowScanner) (Record, error) {
	var (
		user UserAuth
		meta []byte
	)
	err := row.Scan(
		&user.ID, &user.UserName, &user.Email, &user.DisplayName, &user.FirstName,
		&user.LastName, &user.Company, &user.Address, &user.City, &user.State,
		&user.PostalCode, &user.Country, &user.Language, &user.PhoneNumber,
		&user.PasswordHash, &user.Salt, &user.LockedDate, &user.InvalidLoginAttempts,
		&meta, &user.CreatedDate, &user.ModifiedDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &user.Meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meta: %w", err)
		}
	}
	return &user, nil
}

func scanUserAuths(rows pgx.Rows) ([]Record, error) {
	users := []Record{}
	for rows.Next() {
		user, err := scanUserAuth(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
