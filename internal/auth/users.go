package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"papertrade.org/internal/ids"
)

var (
	// ErrEmailTaken indicates a registration conflict.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a failed login. Deliberately the same
	// for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is a registered trader. AccountID points at the ledger account the
// user trades with; the ledger itself only ever sees that id.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`

	passwordHash string
}

// Registry is an in-memory user store, race-safe for concurrent
// registration and login.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by lower-cased email
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*User)}
}

// Register creates a user with a fresh ledger account id.
func (r *Registry) Register(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, errors.New("valid email is required")
	}
	if len(password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[email]; ok {
		return User{}, ErrEmailTaken
	}
	u := &User{
		ID:           ids.New(),
		Email:        email,
		AccountID:    ids.New(),
		CreatedAt:    time.Now().UTC(),
		passwordHash: string(hash),
	}
	r.users[email] = u
	return *u, nil
}

// Authenticate verifies the email/password pair.
func (r *Registry) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)

	r.mu.RLock()
	u, ok := r.users[email]
	r.mu.RUnlock()
	if !ok {
		// Burn comparable time so missing users aren't distinguishable.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return *u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
