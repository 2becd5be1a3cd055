package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/remote"
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const tokenIssuer = "pulsetrack"

// TokenStore persists the session token between runs
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}

// Claims carried by a session token
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Auth is password auth over the users table with JWT sessions
type Auth struct {
	store  *Store
	secret []byte
	tokens TokenStore
	ttl    time.Duration
	cost   int
	now    func() time.Time

	mu        sync.Mutex
	listeners map[int]func(*remote.Session)
	nextID    int
}

// AuthOption configures Auth
type AuthOption func(*Auth)

// WithTokenTTL sets how long issued sessions stay valid.
func WithTokenTTL(ttl time.Duration) AuthOption {
	return func(a *Auth) { a.ttl = ttl }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(a *Auth) { a.cost = cost }
}

// WithAuthClock replaces time.Now for token issue and validation.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(a *Auth) { a.now = now }
}

// NewAuth creates an auth provider. The secret signs session tokens.
func NewAuth(store *Store, secret string, tokens TokenStore, opts ...AuthOption) (*Auth, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret not set")
	}
	a := &Auth{
		store:     store,
		secret:    []byte(secret),
		tokens:    tokens,
		ttl:       30 * 24 * time.Hour,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
		listeners: make(map[int]func(*remote.Session)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new account and signs it in
func (a *Auth) SignUp(ctx context.Context, name, email, password string) (*remote.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var existing string
	err := a.store.db.QueryRowContext(ctx, a.store.rebind("SELECT id FROM users WHERE email = ?"), email).Scan(&existing)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := domain.NewID()
	_, err = a.store.db.ExecContext(ctx,
		a.store.rebind("INSERT INTO users (id, email, name, password_hash) VALUES (?, ?, ?, ?)"),
		id, email, name, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	profile := remote.Row{"id": id, "user_id": id, "name": name, "email": email}
	if err := a.store.Upsert(ctx, remote.TableProfiles, profile); err != nil {
		return nil, err
	}

	return a.startSession(id, email, name)
}

// SignIn checks credentials and starts a session
func (a *Auth) SignIn(ctx context.Context, email, password string) (*remote.Session, error) {
	email = normalizeEmail(email)

	var id, name, hash string
	err := a.store.db.QueryRowContext(ctx,
		a.store.rebind("SELECT id, name, password_hash FROM users WHERE email = ?"), email,
	).Scan(&id, &name, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.startSession(id, email, name)
}

// SignOut forgets the stored session
func (a *Auth) SignOut(ctx context.Context) error {
	if err := a.tokens.SetToken(""); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	a.notify(nil)
	return nil
}

// GetSession returns the stored session, or nil when there is none or the
// token is no longer valid
func (a *Auth) GetSession(ctx context.Context) (*remote.Session, error) {
	token, err := a.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("read session token: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	sess, err := a.parse(token)
	if err != nil {
		return nil, nil
	}
	return sess, nil
}

// OnAuthStateChange registers fn for sign-in and sign-out events.
func (a *Auth) OnAuthStateChange(fn func(*remote.Session)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

func (a *Auth) notify(sess *remote.Session) {
	a.mu.Lock()
	fns := make([]func(*remote.Session), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}

func (a *Auth) startSession(userID, email, name string) (*remote.Session, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	if err := a.tokens.SetToken(token); err != nil {
		return nil, fmt.Errorf("store session token: %w", err)
	}

	sess := &remote.Session{
		AccessToken: token,
		UserID:      userID,
		Email:       email,
		Name:        name,
		ExpiresAt:   expires.Truncate(time.Second),
	}
	a.notify(sess)
	return sess, nil
}

// ParseToken validates a session token, for callers that receive one over
// the wire.
func (a *Auth) ParseToken(token string) (*remote.Session, error) {
	return a.parse(token)
}

func (a *Auth) parse(tokenString string) (*remote.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &remote.Session{
		AccessToken: tokenString,
		UserID:      claims.UserID,
		Email:       claims.Email,
		Name:        claims.Name,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
