package ledger

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TemporaryPasswordHash marks accounts provisioned without a real hash.
	// Such accounts accept only BootstrapPassword, once, after which a real
	// hash replaces the marker.
	TemporaryPasswordHash = "$2b$10$TEMP_HASH_TO_UPDATE"
	// BootstrapPassword is the only password accepted against TemporaryPasswordHash.
	BootstrapPassword = "admin123"

	passwordCost = 10
)

const msgInvalidCredentials = "Credenciales inválidas"

// Authenticate verifies email and password against an active account and
// returns its session projection. Unknown emails and wrong passwords produce
// the same error.
func (c *Core) Authenticate(ctx context.Context, email, password string) (SessionUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return SessionUser{}, validationError("Email y contraseña son requeridos")
	}

	user, err := c.activeUserByEmail(ctx, email)
	if err != nil {
		if IsErrorCode(err, ErrCodeNotFound) {
			c.logger.Info("login rejected", "reason", "unknown_email")
			return SessionUser{}, NewError(ErrCodeInvalidCredentials, msgInvalidCredentials)
		}
		return SessionUser{}, err
	}

	if user.PasswordHash == TemporaryPasswordHash {
		if password != BootstrapPassword {
			c.logger.Info("login rejected", "reason", "bad_bootstrap_password", "user_id", user.ID)
			return SessionUser{}, NewError(ErrCodeInvalidCredentials, msgInvalidCredentials)
		}
		if err := c.replaceTemporaryHash(ctx, user.ID, password); err != nil {
			return SessionUser{}, err
		}
		c.logger.Info("temporary password hash replaced", "user_id", user.ID)
		return user.Projection(), nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		c.logger.Info("login rejected", "reason", "password_mismatch", "user_id", user.ID)
		return SessionUser{}, NewError(ErrCodeInvalidCredentials, msgInvalidCredentials)
	}
	return user.Projection(), nil
}

// replaceTemporaryHash persists a real hash for password. The marker is part
// of the predicate so a concurrent rotation is never overwritten; when no row
// still carries the marker the login is rejected.
func (c *Core) replaceTemporaryHash(ctx context.Context, userID int64, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	result, err := c.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ? AND password_hash = ?",
		hash, userID, TemporaryPasswordHash)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return WrapError(ErrCodeDatabase, "read affected rows", err)
	}
	if n == 0 {
		c.logger.Info("login rejected", "reason", "temporary_hash_rotated", "user_id", userID)
		return NewError(ErrCodeInvalidCredentials, msgInvalidCredentials)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", WrapError(ErrCodeInternal, "hash password", err)
	}
	return string(hash), nil
}
