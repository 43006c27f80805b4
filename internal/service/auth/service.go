package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zhouzirui/companionbot/backend/internal/model/user"
	"github.com/zhouzirui/companionbot/backend/internal/repository"
)

var (
	ErrCredentialsRequired = errors.New("username and password required")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidToken        = errors.New("invalid token")
)

// Config holds token signing settings.
type Config struct {
	Secret     string
	Expiration time.Duration
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Service registers users and issues HS256 tokens carrying the username.
type Service struct {
	users  repository.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(users repository.UserStore, cfg Config) *Service {
	ttl := cfg.Expiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Register creates an account and returns a session for it.
func (s *Service) Register(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrCredentialsRequired
	}

	u := user.User{Username: username, CreatedAt: s.now().UTC()}
	if err := u.SetPassword(password); err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return Session{}, ErrUsernameTaken
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	log.Printf("[auth] registered user=%s", username)
	return s.session(username)
}

// Login checks credentials and returns a fresh session.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrCredentialsRequired
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !u.CheckPassword(password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(username)
}

func (s *Service) session(username string) (Session, error) {
	token, err := s.IssueToken(username)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Username: username}, nil
}

// IssueToken signs a token for username.
func (s *Service) IssueToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"username": username,
		"exp":      s.now().Add(s.ttl).Unix(),
		"jti":      uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates tokenStr and returns the username it was issued for.
func (s *Service) VerifyToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// only accept HMAC signing
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", ErrInvalidToken
	}
	return username, nil
}
