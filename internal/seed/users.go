package seed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"joyeria/pos/domain"
)

// EnsureAdmin creates the bootstrap administrator when no user with that
// username exists. An existing account is left untouched.
func EnsureAdmin(db *sqlx.DB, username, password string, log *zap.Logger) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("admin username and password are required")
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(1) FROM users WHERE username = $1`, username); err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}
	if n > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO users (username, password, role) VALUES ($1, $2, $3)`, username, string(hashed), domain.RoleAdmin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("created bootstrap admin", zap.String("username", username))
	return nil
}
