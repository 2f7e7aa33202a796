package auth

import (
	"context"
	"errors"
	"strings"

	"estates-backend/internal/domain"
	"estates-backend/internal/infrastructure/store"
	"estates-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Actor turns the session user into the explicit actor passed to the workflows.
func (s *SessionUserShape) Actor() (*domain.Actor, error) {
	id, err := uuid.Parse(s.UserID)
	if err != nil || id == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	if !constants.IsValidRole(s.Role) {
		return nil, ErrNotAuthenticated
	}
	return &domain.Actor{UserID: id, Role: s.Role, Email: s.Email, Fullname: s.Fullname}, nil
}

// UserFinder abstracts user lookup by email+password (for production GORM or test doubles).
type UserFinder interface {
	FindByEmailAndPassword(ctx context.Context, email, password string) (*domain.User, error)
}

// UserLookup is the read side of the user store.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// StoreUserFinder implements UserFinder on the user store and bcrypt.
type StoreUserFinder struct {
	Users UserLookup
}

func (f *StoreUserFinder) FindByEmailAndPassword(ctx context.Context, email, password string) (*domain.User, error) {
	return LoginUser(ctx, f.Users, LoginInput{Email: email, Password: password})
}

// LoginUser finds user by email and verifies password.
func LoginUser(ctx context.Context, users UserLookup, input LoginInput) (*domain.User, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	u, err := users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	return u, nil
}

// HashPassword returns the bcrypt hash stored in Users.password_hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyUser validates the session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return &SessionUserShape{
		UserID:   userID,
		Fullname: str(m["fullname"]),
		Email:    str(m["email"]),
		Role:     str(m["role"]),
	}, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
