package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushRegistrationRepository stores the single push token of each user
type PushRegistrationRepository interface {
	SaveRegistration(ctx context.Context, reg *models.PushRegistration) error
	GetRegistration(ctx context.Context, userID string) (*models.PushRegistration, error)
	DeleteRegistration(ctx context.Context, userID string) error
}

type postgresPushRegistrationRepository struct {
	db *gorm.DB
}

func NewPostgresPushRegistrationRepository(db *gorm.DB) PushRegistrationRepository {
	return &postgresPushRegistrationRepository{db: db}
}

// SaveRegistration upserts on user_id; the latest token replaces any earlier one
func (r *postgresPushRegistrationRepository) SaveRegistration(ctx context.Context, reg *models.PushRegistration) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "platform", "updated_at"}),
	}).Create(reg).Error
}

func (r *postgresPushRegistrationRepository) GetRegistration(ctx context.Context, userID string) (*models.PushRegistration, error) {
	var reg models.PushRegistration
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&reg).Error; err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (r *postgresPushRegistrationRepository) DeleteRegistration(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PushRegistration{}).Error
}
