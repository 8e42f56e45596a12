package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/accounthub/user-service/internal/models"
	"go.uber.org/zap"
)

// UpdateUserFields is a sparse set of user attributes to overwrite.
// Nil fields are left untouched. PasswordHash must already be hashed.
type UpdateUserFields struct {
	Email        *string
	Name         *string
	PasswordHash *string
	Role         *models.Role
}

// userRepository implements user data access over MySQL
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// userColumns is the column list shared by all single-row queries
const userColumns = `id, email, name, password_hash, is_active, role`

// scanUser scans one user row
func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.IsActive,
		&user.Role,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, userID int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get user by id", zap.Error(err), zap.Int("userID", userID))
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by exact email match
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get user by email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// ExistsByEmail checks if a user exists with the given email
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT * FROM users WHERE email = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check email existence", zap.Error(err), zap.String("email", email))
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// Create inserts a new user into the database and sets the generated ID
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, is_active, role)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, user.Email, user.Name, user.PasswordHash, user.IsActive, user.Role)
	if err != nil {
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = int(id)
	return nil
}

// Update overwrites the fields present in "fields" on the user with the
// given ID and returns the updated record.
//
// A present email that is already owned by a different user fails with
// models.ErrEmailTaken before anything is written. The check-then-act
// sequence is racy on its own; the unique index on users.email is the
// hard guarantee.
func (r *userRepository) Update(ctx context.Context, userID int, fields UpdateUserFields) (*models.User, error) {
	if fields.Email != nil {
		var ownerID int
		err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ? LIMIT 1`, *fields.Email).Scan(&ownerID)
		if err != nil && err != sql.ErrNoRows {
			r.logger.Error("failed to check email owner", zap.Error(err))
			return nil, fmt.Errorf("failed to check email owner: %w", err)
		}
		if err == nil && ownerID != userID {
			return nil, models.ErrEmailTaken
		}
	}

	setClauses := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if fields.Email != nil {
		setClauses = append(setClauses, "email = ?")
		args = append(args, *fields.Email)
	}
	if fields.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *fields.Name)
	}
	if fields.PasswordHash != nil {
		setClauses = append(setClauses, "password_hash = ?")
		args = append(args, *fields.PasswordHash)
	}
	if fields.Role != nil {
		setClauses = append(setClauses, "role = ?")
		args = append(args, *fields.Role)
	}

	if len(setClauses) > 0 {
		query := `UPDATE users SET ` + strings.Join(setClauses, ", ") + ` WHERE id = ?`
		args = append(args, userID)

		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.Error("failed to update user", zap.Error(err), zap.Int("userID", userID))
			return nil, fmt.Errorf("failed to update user: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			// MySQL also reports 0 when the row exists but nothing changed,
			// so confirm absence before reporting not found.
			if _, err := r.GetByID(ctx, userID); err != nil {
				return nil, err
			}
		}
	}

	return r.GetByID(ctx, userID)
}

// Delete removes a user permanently and returns the deleted snapshot
func (r *userRepository) Delete(ctx context.Context, userID int) (*models.User, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `DELETE FROM users WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		r.logger.Error("failed to delete user", zap.Error(err), zap.Int("userID", userID))
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	return user, nil
}

// List retrieves users ordered by id with offset/limit pagination.
// A non-empty search matches name or email case-insensitively as a
// substring; a non-nil role filters to an exact match. Filters are ANDed.
func (r *userRepository) List(ctx context.Context, skip, limit int, search string, role *models.Role) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	whereClauses := make([]string, 0, 2)
	args := make([]any, 0, 5)

	if search != "" {
		whereClauses = append(whereClauses, `(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)`)
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern)
	}
	if role != nil {
		whereClauses = append(whereClauses, `role = ?`)
		args = append(args, *role)
	}

	if len(whereClauses) > 0 {
		query += ` WHERE ` + strings.Join(whereClauses, " AND ")
	}
	query += ` ORDER BY id LIMIT ?, ?`
	args = append(args, skip, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.PasswordHash,
			&user.IsActive,
			&user.Role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}
