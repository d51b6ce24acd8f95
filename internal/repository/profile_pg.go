package repository

import (
	"context"

	"github.com/supportdesk/supportgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresProfileRepo struct {
	db *gorm.DB
}

func NewPostgresProfileRepo(db *gorm.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

func (r *PostgresProfileRepo) GetByUserID(ctx context.Context, userID uint) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *PostgresProfileRepo) Upsert(ctx context.Context, p *model.Profile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bio", "avatar_url"}),
	}).Create(p).Error
	if err != nil {
		return translate(err)
	}
	// ON CONFLICT leaves the id unset on update
	if p.ID == 0 {
		current, err := r.GetByUserID(ctx, p.UserID)
		if err != nil {
			return err
		}
		p.ID = current.ID
	}
	return nil
}
