// Package auth checks the admin password and manages admin sessions.
//
// Sessions are opaque random tokens. Only their SHA-256 digest is stored, so
// a copy of the database does not grant access.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DevPassword is accepted in development mode when no password is configured.
const DevPassword = "admin123"

var (
	// ErrInvalidCredentials is returned for a wrong or disabled password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession is returned for an unknown or expired token.
	ErrInvalidSession = errors.New("invalid session")
)

// Options configures the admin credential and session lifetime.
type Options struct {
	// Password is compared in constant time. Ignored when PasswordHash is set.
	Password string
	// PasswordHash is a bcrypt hash.
	PasswordHash string
	TTL          time.Duration
	Development  bool
}

// Session is an issued admin login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service issues and validates admin sessions.
type Service struct {
	db       *sql.DB
	password []byte
	hash     []byte
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService returns a Service storing sessions in db.
func NewService(db *sql.DB, opts Options, logger *zap.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}

	s := &Service{
		db:     db,
		ttl:    opts.TTL,
		logger: logger.Named("auth"),
		now:    time.Now,
	}

	switch {
	case opts.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(opts.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		s.hash = []byte(opts.PasswordHash)
	case opts.Password != "":
		s.password = []byte(opts.Password)
	case opts.Development:
		s.logger.Warn("using default admin password, set ADMIN_PASSWORD or ADMIN_PASSWORD_HASH")
		s.password = []byte(DevPassword)
	default:
		s.logger.Warn("no admin password configured, admin login is disabled")
	}

	return s, nil
}

// Enabled reports whether any credential is configured.
func (s *Service) Enabled() bool {
	return len(s.hash) > 0 || len(s.password) > 0
}

// Login checks password and issues a new session.
func (s *Service) Login(ctx context.Context, password string) (Session, error) {
	if !s.checkPassword(password) {
		return Session{}, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	expires := now.Add(s.ttl)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, created_at, expires_at) VALUES (?, ?, ?)`,
		hashToken(token), now.Unix(), expires.Unix())
	if err != nil {
		return Session{}, fmt.Errorf("failed to store session: %w", err)
	}

	return Session{Token: token, ExpiresAt: expires.Truncate(time.Second)}, nil
}

// Validate returns nil when token names a live session.
func (s *Service) Validate(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidSession
	}

	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM sessions WHERE token_hash = ?`, hashToken(token)).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.purgeQuietly(ctx)
		return ErrInvalidSession
	}
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}

	if s.now().Unix() >= expiresAt {
		s.purgeQuietly(ctx)
		return ErrInvalidSession
	}
	return nil
}

// purgeQuietly runs PurgeExpired after a failed lookup, logging any error.
func (s *Service) purgeQuietly(ctx context.Context) {
	if _, err := s.PurgeExpired(ctx); err != nil {
		s.logger.Warn("failed to purge expired sessions", zap.Error(err))
	}
}

// Logout revokes token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hashToken(token)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions past their expiry and returns how many.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		s.logger.Info("purged expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

// TTL returns the session lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) checkPassword(password string) bool {
	if len(s.hash) > 0 {
		return bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	}
	if len(s.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), s.password) == 1
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
