package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserStore looks up accounts for login and notification recipients.
type GormUserStore struct {
	DB *gorm.DB
}

func (s *GormUserStore) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	email = strings.TrimSpace(strings.ToLower(email))
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
