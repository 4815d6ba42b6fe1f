package ledger

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
)

const userColumns = "id, name, email, password_hash, role, company_id, active"

func scanUser(s rowScanner) (User, error) {
	var u User
	var companyID sql.NullInt64
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &companyID, &u.Active); err != nil {
		return u, err
	}
	if companyID.Valid {
		id := companyID.Int64
		u.CompanyID = &id
	}
	return u, nil
}

func (c *Core) activeUserByEmail(ctx context.Context, email string) (User, error) {
	row := c.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? AND active = 1", email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NewError(ErrCodeNotFound, "usuario no encontrado")
		}
		return User{}, WrapError(ErrCodeDatabase, "query execution failed", err)
	}
	// Case-insensitive collations may match a differently cased address.
	if u.Email != email {
		return User{}, NewError(ErrCodeNotFound, "usuario no encontrado")
	}
	return u, nil
}

// GetUser returns a user by id regardless of its active flag.
func (c *Core) GetUser(ctx context.Context, id int64) (User, error) {
	row := c.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NewError(ErrCodeNotFound, "usuario no encontrado")
		}
		return User{}, WrapError(ErrCodeDatabase, "query execution failed", err)
	}
	return u, nil
}

// CreateUser provisions an account.
func (c *Core) CreateUser(ctx context.Context, in NewUser) (User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	role := strings.TrimSpace(in.Role)
	if name == "" {
		return User{}, validationError("nombre es requerido")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return User{}, validationError("email inválido")
	}
	if role == "" {
		role = "usuario"
	}
	if in.CompanyID != nil {
		exists, err := c.companyExists(ctx, *in.CompanyID)
		if err != nil {
			return User{}, err
		}
		if !exists {
			return User{}, validationError("empresa inexistente")
		}
	}

	hash := TemporaryPasswordHash
	if !in.Temporary {
		if len(in.Password) < 6 {
			return User{}, validationError("la contraseña debe tener al menos 6 caracteres")
		}
		var err error
		hash, err = hashPassword(in.Password)
		if err != nil {
			return User{}, err
		}
	}

	var existing int64
	if err := scanRow(c.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email), "", &existing); err != nil {
		return User{}, err
	}
	if existing > 0 {
		return User{}, NewError(ErrCodeDuplicate, "el email ya está registrado")
	}

	result, err := c.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, company_id, active) VALUES (?, ?, ?, ?, ?, 1)",
		name, email, hash, role, in.CompanyID)
	if err != nil {
		return User{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return User{}, WrapError(ErrCodeDatabase, "read inserted id", err)
	}
	c.logger.Info("user created", "user_id", id, "email", email, "temporary", in.Temporary)
	return c.GetUser(ctx, id)
}

// SetPassword stores a new hash for the user, replacing any previous one.
func (c *Core) SetPassword(ctx context.Context, userID int64, password string) error {
	if len(password) < 6 {
		return validationError("la contraseña debe tener al menos 6 caracteres")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	result, err := c.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return WrapError(ErrCodeDatabase, "read affected rows", err)
	}
	if affected == 0 {
		return NewError(ErrCodeNotFound, "usuario no encontrado")
	}
	c.logger.Info("password rotated", "user_id", userID)
	return nil
}

// SetUserActive enables or disables login for a user.
func (c *Core) SetUserActive(ctx context.Context, userID int64, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	result, err := c.ExecContext(ctx, "UPDATE users SET active = ? WHERE id = ?", flag, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return WrapError(ErrCodeDatabase, "read affected rows", err)
	}
	if affected == 0 {
		return NewError(ErrCodeNotFound, "usuario no encontrado")
	}
	return nil
}
