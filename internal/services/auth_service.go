package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"academy/internal/apperrors"
	"academy/internal/models"
	"academy/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 24 * time.Hour

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// Session is a freshly issued token and the account it belongs to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// AuthService registers learners and issues and checks session tokens.
type AuthService struct {
	userRepo repositories.UserRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		secret:   []byte(jwtSecret),
		ttl:      sessionTTL,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser stores a new account with a bcrypt hash in place of the
// plain password. Emails are unique case-insensitively.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if _, err := s.userRepo.GetByEmail(ctx, user.Email); err == nil {
		return apperrors.Conflict(fmt.Sprintf("email '%s' already registered", user.Email))
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("hashing password", err)
	}
	user.Password = string(hash)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return err
	}
	slog.Info("user registered", "user_id", user.ID)
	return nil
}

// LoginUser checks the credentials and opens a session. Unknown emails
// and wrong passwords get the same error.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}

	issued := s.now()
	expires := issued.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Email:  user.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  issued.Unix(),
			ExpiresAt: expires.Unix(),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Internal("signing token", err)
	}

	user.Password = ""
	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}

// ValidateToken parses an HS256 token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		slog.Debug("token rejected", "error", err)
		return nil, apperrors.Unauthenticated("invalid token")
	}
	if claims.UserID == "" {
		return nil, apperrors.Unauthenticated("invalid token")
	}
	return claims, nil
}

// CurrentUser loads the account behind a session, without its hash.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// Deleted after the token was issued.
		return nil, apperrors.Unauthenticated("account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}
