package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/accounthub/user-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupUserTestRepository creates a user repository with a mock database
func setupUserTestRepository(t *testing.T) (*userRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewUserRepository(db, zap.NewNop())

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

// userRows builds the standard result set for the given users
func userRows(users ...models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "is_active", "role"})
	for _, u := range users {
		rows.AddRow(u.ID, u.Email, u.Name, u.PasswordHash, u.IsActive, u.Role)
	}
	return rows
}

func TestUserRepository_GetByID(t *testing.T) {
	tests := []struct {
		name          string
		userID        int
		setupMock     func(sqlmock.Sqlmock)
		expectedUser  *models.User
		expectedError error
	}{
		{
			name:   "success",
			userID: 1,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
					WithArgs(1).
					WillReturnRows(userRows(models.User{
						ID: 1, Email: "a@x.com", Name: "A", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
					}))
			},
			expectedUser: &models.User{
				ID: 1, Email: "a@x.com", Name: "A", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
			},
		},
		{
			name:   "not found",
			userID: 999,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
					WithArgs(999).
					WillReturnRows(userRows())
			},
			expectedError: models.ErrNotFound,
		},
		{
			name:   "database error",
			userID: 1,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
					WithArgs(1).
					WillReturnError(errors.New("database error"))
			},
			expectedError: errors.New("failed to get user by id"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			user, err := repo.GetByID(context.Background(), tt.userID)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.Nil(t, user)
				if errors.Is(tt.expectedError, models.ErrNotFound) {
					assert.ErrorIs(t, err, models.ErrNotFound)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedUser, user)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		setupMock     func(sqlmock.Sqlmock)
		expectedUser  *models.User
		expectedError error
	}{
		{
			name:  "success",
			email: "a@x.com",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE email = \? LIMIT 1`).
					WithArgs("a@x.com").
					WillReturnRows(userRows(models.User{
						ID: 1, Email: "a@x.com", Name: "A", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
					}))
			},
			expectedUser: &models.User{
				ID: 1, Email: "a@x.com", Name: "A", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
			},
		},
		{
			name:  "not found",
			email: "missing@x.com",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE email = \? LIMIT 1`).
					WithArgs("missing@x.com").
					WillReturnRows(userRows())
			},
			expectedError: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			user, err := repo.GetByEmail(context.Background(), tt.email)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedUser, user)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	tests := []struct {
		name           string
		email          string
		setupMock      func(sqlmock.Sqlmock)
		expectedExists bool
		expectedError  bool
	}{
		{
			name:  "exists",
			email: "a@x.com",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS\(SELECT \* FROM users WHERE email = \?\)`).
					WithArgs("a@x.com").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			expectedExists: true,
		},
		{
			name:  "does not exist",
			email: "missing@x.com",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS\(SELECT \* FROM users WHERE email = \?\)`).
					WithArgs("missing@x.com").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			expectedExists: false,
		},
		{
			name:  "database error",
			email: "a@x.com",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS\(SELECT \* FROM users WHERE email = \?\)`).
					WithArgs("a@x.com").
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			exists, err := repo.ExistsByEmail(context.Background(), tt.email)

			if tt.expectedError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedExists, exists)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name          string
		user          *models.User
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedID    int
	}{
		{
			name: "success",
			user: &models.User{
				Email:        "a@x.com",
				Name:         "A",
				PasswordHash: "hashedpassword",
				IsActive:     true,
				Role:         models.RoleUser,
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("a@x.com", "A", "hashedpassword", true, models.RoleUser).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedID: 1,
		},
		{
			name: "duplicate email",
			user: &models.User{
				Email:        "duplicate@x.com",
				Name:         "A",
				PasswordHash: "hashedpassword",
				IsActive:     true,
				Role:         models.RoleUser,
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("duplicate@x.com", "A", "hashedpassword", true, models.RoleUser).
					WillReturnError(errors.New("Error 1062: Duplicate entry 'duplicate@x.com' for key 'uq_users_email'"))
			},
			expectedError: true,
		},
		{
			name: "error getting last insert id",
			user: &models.User{
				Email:        "a@x.com",
				Name:         "A",
				PasswordHash: "hashedpassword",
				IsActive:     true,
				Role:         models.RoleUser,
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("a@x.com", "A", "hashedpassword", true, models.RoleUser).
					WillReturnResult(sqlmock.NewErrorResult(errors.New("last insert id error")))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Create(context.Background(), tt.user)

			if tt.expectedError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedID, tt.user.ID)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Update(t *testing.T) {
	newName := "New Name"
	newEmail := "new@x.com"
	adminRole := models.RoleAdmin

	t.Run("updates only present fields", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`UPDATE users SET name = \? WHERE id = \?`).
			WithArgs("New Name", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
			WithArgs(1).
			WillReturnRows(userRows(models.User{
				ID: 1, Email: "a@x.com", Name: "New Name", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
			}))

		user, err := repo.Update(context.Background(), 1, UpdateUserFields{Name: &newName})

		require.NoError(t, err)
		assert.Equal(t, "New Name", user.Name)
		assert.Equal(t, "a@x.com", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email owned by another user fails with conflict", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id FROM users WHERE email = \? LIMIT 1`).
			WithArgs("new@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		user, err := repo.Update(context.Background(), 1, UpdateUserFields{Email: &newEmail})

		assert.ErrorIs(t, err, models.ErrEmailTaken)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("re-setting own email is not a conflict", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id FROM users WHERE email = \? LIMIT 1`).
			WithArgs("new@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec(`UPDATE users SET email = \? WHERE id = \?`).
			WithArgs("new@x.com", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
			WithArgs(1).
			WillReturnRows(userRows(models.User{
				ID: 1, Email: "new@x.com", Name: "A", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
			}))

		user, err := repo.Update(context.Background(), 1, UpdateUserFields{Email: &newEmail})

		require.NoError(t, err)
		assert.Equal(t, "new@x.com", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row fails with not found", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`UPDATE users SET name = \? WHERE id = \?`).
			WithArgs("New Name", 999).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
			WithArgs(999).
			WillReturnRows(userRows())

		user, err := repo.Update(context.Background(), 999, UpdateUserFields{Name: &newName})

		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all fields present build the full SET clause", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		passwordHash := "newhash"

		mock.ExpectQuery(`SELECT id FROM users WHERE email = \? LIMIT 1`).
			WithArgs("new@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`UPDATE users SET email = \?, name = \?, password_hash = \?, role = \? WHERE id = \?`).
			WithArgs("new@x.com", "New Name", "newhash", models.RoleAdmin, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
			WithArgs(1).
			WillReturnRows(userRows(models.User{
				ID: 1, Email: "new@x.com", Name: "New Name", PasswordHash: "newhash", IsActive: true, Role: models.RoleAdmin,
			}))

		user, err := repo.Update(context.Background(), 1, UpdateUserFields{
			Email:        &newEmail,
			Name:         &newName,
			PasswordHash: &passwordHash,
			Role:         &adminRole,
		})

		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no fields present returns the current record", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
			WithArgs(1).
			WillReturnRows(userRows(models.User{
				ID: 1, Email: "a@x.com", Name: "A", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
			}))

		user, err := repo.Update(context.Background(), 1, UpdateUserFields{})

		require.NoError(t, err)
		assert.Equal(t, 1, user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Delete(t *testing.T) {
	t.Run("returns the deleted snapshot", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
			WithArgs(1).
			WillReturnRows(userRows(models.User{
				ID: 1, Email: "a@x.com", Name: "A", PasswordHash: "hash", IsActive: true, Role: models.RoleUser,
			}))
		mock.ExpectExec(`DELETE FROM users WHERE id = \?`).
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		user, err := repo.Delete(context.Background(), 1)

		require.NoError(t, err)
		assert.Equal(t, "a@x.com", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row fails with not found", func(t *testing.T) {
		repo, mock, cleanup := setupUserTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE id = \?`).
			WithArgs(999).
			WillReturnRows(userRows())

		user, err := repo.Delete(context.Background(), 999)

		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_List(t *testing.T) {
	userRole := models.RoleUser

	tests := []struct {
		name          string
		skip, limit   int
		search        string
		role          *models.Role
		setupMock     func(sqlmock.Sqlmock)
		expectedCount int
	}{
		{
			name:  "no filters",
			skip:  0,
			limit: 10,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users ORDER BY id LIMIT \?, \?`).
					WithArgs(0, 10).
					WillReturnRows(userRows(
						models.User{ID: 1, Email: "a@x.com", Name: "A", PasswordHash: "h", IsActive: true, Role: models.RoleUser},
						models.User{ID: 2, Email: "b@x.com", Name: "B", PasswordHash: "h", IsActive: true, Role: models.RoleAdmin},
					))
			},
			expectedCount: 2,
		},
		{
			name:   "search filter lowercases the pattern",
			skip:   0,
			limit:  10,
			search: "Ann",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE \(LOWER\(name\) LIKE \? OR LOWER\(email\) LIKE \?\) ORDER BY id LIMIT \?, \?`).
					WithArgs("%ann%", "%ann%", 0, 10).
					WillReturnRows(userRows(
						models.User{ID: 3, Email: "ann@x.com", Name: "Ann", PasswordHash: "h", IsActive: true, Role: models.RoleUser},
					))
			},
			expectedCount: 1,
		},
		{
			name:   "search and role filters are ANDed",
			skip:   0,
			limit:  10,
			search: "ann",
			role:   &userRole,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users WHERE \(LOWER\(name\) LIKE \? OR LOWER\(email\) LIKE \?\) AND role = \? ORDER BY id LIMIT \?, \?`).
					WithArgs("%ann%", "%ann%", models.RoleUser, 0, 10).
					WillReturnRows(userRows(
						models.User{ID: 3, Email: "ann@x.com", Name: "Ann", PasswordHash: "h", IsActive: true, Role: models.RoleUser},
					))
			},
			expectedCount: 1,
		},
		{
			name:  "pagination offset",
			skip:  20,
			limit: 10,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, role FROM users ORDER BY id LIMIT \?, \?`).
					WithArgs(20, 10).
					WillReturnRows(userRows())
			},
			expectedCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			users, err := repo.List(context.Background(), tt.skip, tt.limit, tt.search, tt.role)

			require.NoError(t, err)
			assert.Len(t, users, tt.expectedCount)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
