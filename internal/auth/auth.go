// Package auth is the account store: registration, credential checks,
// and the persisted single-row session pointer.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"smartadl/internal/db"
)

type Service struct {
	queries *db.Queries
}

func New(queries *db.Queries) *Service {
	return &Service{queries: queries}
}

// Register creates an account with a bcrypt digest of the password.
// Returns false when the username is already taken.
func (s *Service) Register(username, password string) (bool, error) {
	if _, err := s.queries.GetUser(username); err == nil {
		return false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.queries.CreateUser(username, string(digest)); err != nil {
		// Lost the race against a concurrent registration of the same name.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Verify reports whether the credentials match a stored account. Unknown
// user and wrong password are indistinguishable to the caller.
func (s *Service) Verify(username, password string) (bool, error) {
	u, err := s.queries.GetUser(username)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if strings.HasPrefix(u.Password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil, nil
	}
	// Databases written by the original tool store an unsalted hex
	// SHA-256 digest; keep verifying those.
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(u.Password)) == 1, nil
}

// SaveSession makes username the active session pointer.
func (s *Service) SaveSession(username string) error {
	return s.queries.ReplaceSession(username)
}

// ClearSession logs out: the pointer table is emptied.
func (s *Service) ClearSession() error {
	return s.queries.ClearSession()
}

// LoadSession returns the persisted pointer, if any.
func (s *Service) LoadSession() (string, bool, error) {
	return s.queries.CurrentSession()
}
