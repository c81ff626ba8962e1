package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/identity/internal/database"
)

// mysqlDuplicateEntry is the MariaDB error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// UserRepository defines the data access contract for the user directory.
// All SQL lives in the concrete implementation -- no SQL leaks out.
// Mutations return false instead of an error when no row matched.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindBySubject(ctx context.Context, subject string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// Activate marks the account active and consumes its activation token.
	Activate(ctx context.Context, email, token string) (bool, error)

	// AssignResetToken stores a fresh password-reset token.
	AssignResetToken(ctx context.Context, email, token string) (bool, error)

	// AssignPassword replaces the password hash and consumes the reset
	// token, but only while token is still the stored one.
	AssignPassword(ctx context.Context, email, token, passwordHash string) (bool, error)

	// UpdateDetails replaces the profile fields, and the password hash when
	// passwordHash is non-empty.
	UpdateDetails(ctx context.Context, subject string, details DetailsInput, passwordHash string) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
// Every mutation runs inside database.WithTx.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, subject, email, password, name, company, phone,
	active, disabled, activate_token, reset_password_token, created_at`

// Create inserts a new user row and sets user.ID. A duplicate e-mail or
// subject returns ErrEmailTaken.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (subject, email, password, name, company, phone, active, disabled, activate_token, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.Subject,
			user.Email,
			user.PasswordHash,
			user.Name,
			user.Company,
			user.Phone,
			user.Active,
			user.Disabled,
			user.ActivateToken,
			user.CreatedAt,
		)
		if isDuplicateEntry(err) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading user id: %w", err)
		}
		user.ID = id
		return nil
	})
}

// FindByEmail retrieves a user by normalized e-mail address.
// Returns ErrNotFound if no user exists with this e-mail.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "email", email)
}

// FindBySubject retrieves a user by backend subject.
// Returns ErrNotFound if no user exists with this subject.
func (r *userRepository) FindBySubject(ctx context.Context, subject string) (*User, error) {
	return r.findOne(ctx, "subject", subject)
}

func (r *userRepository) findOne(ctx context.Context, column, value string) (*User, error) {
	// column is one of two fixed identifiers, never user input.
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Subject,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Company,
		&user.Phone,
		&user.Active,
		&user.Disabled,
		&user.ActivateToken,
		&user.ResetPasswordToken,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by %s: %w", column, err)
	}
	return user, nil
}

// EmailExists checks whether an e-mail address is already registered.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email exists: %w", err)
	}
	return exists, nil
}

func (r *userRepository) Activate(ctx context.Context, email, token string) (bool, error) {
	return r.execMatched(ctx, "activating user",
		`UPDATE users SET active = 1, activate_token = NULL
		 WHERE email = ? AND activate_token = ?`,
		email, token,
	)
}

func (r *userRepository) AssignResetToken(ctx context.Context, email, token string) (bool, error) {
	return r.execMatched(ctx, "assigning reset token",
		`UPDATE users SET reset_password_token = ? WHERE email = ?`,
		token, email,
	)
}

func (r *userRepository) AssignPassword(ctx context.Context, email, token, passwordHash string) (bool, error) {
	return r.execMatched(ctx, "assigning password",
		`UPDATE users SET password = ?, reset_password_token = NULL
		 WHERE email = ? AND reset_password_token = ?`,
		passwordHash, email, token,
	)
}

func (r *userRepository) UpdateDetails(ctx context.Context, subject string, details DetailsInput, passwordHash string) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		query := `UPDATE users SET name = ?, company = ?, phone = ? WHERE subject = ?`
		args := []any{details.Name, details.Company, details.Phone, subject}
		if passwordHash != "" {
			query = `UPDATE users SET name = ?, company = ?, phone = ?, password = ? WHERE subject = ?`
			args = []any{details.Name, details.Company, details.Phone, passwordHash, subject}
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("updating user details: %w", err)
		}
		return nil
	})
}

// execMatched runs a single-statement mutation in a transaction and reports
// whether it matched a row.
func (r *userRepository) execMatched(ctx context.Context, what, query string, args ...any) (bool, error) {
	var matched bool
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		matched = n > 0
		return nil
	})
	return matched, err
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
