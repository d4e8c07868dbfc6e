package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository interface for user operations
type UserRepository interface {
	// Create returns ErrDuplicateKey when the email is taken.
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
	// Update applies column updates and returns gorm.ErrRecordNotFound when no user matched.
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
}
