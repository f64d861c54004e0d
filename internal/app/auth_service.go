package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"quizbot-service/internal/domain"
)

const tokenIssuer = "quizbot"

// UserStore persists accounts. CreateUser returns domain.ErrEmailTaken on a duplicate email.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// Claims carried by access tokens.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService signs users up, checks passwords and issues HS256 tokens.
type AuthService struct {
	users    UserStore
	hmac     []byte
	tokenTTL time.Duration
	cost     int
	now      func() time.Time
}

func NewAuthService(users UserStore, secret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:    users,
		hmac:     []byte(secret),
		tokenTTL: tokenTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// WithHashCost lowers the bcrypt cost, for tests.
func (a *AuthService) WithHashCost(cost int) *AuthService {
	a.cost = cost
	return a
}

// Signup registers a new account.
func (a *AuthService) Signup(ctx context.Context, email, username, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := a.users.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           domain.NewID(domain.PrefixUser),
		Email:        email,
		Username:     strings.TrimSpace(username),
		PasswordHash: string(hash),
		CreatedAt:    a.now(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login checks credentials and returns the user with a fresh token.
func (a *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := a.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := a.IssueToken(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// IssueToken signs an access token whose subject is the user id.
func (a *AuthService) IssueToken(user domain.User) (string, error) {
	now := a.now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.hmac)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns the user id it was issued for.
func (a *AuthService) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidCredentials
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", domain.ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// User resolves a user id.
func (a *AuthService) User(ctx context.Context, userID string) (domain.User, error) {
	return a.users.GetUser(ctx, userID)
}
