package db

import (
	"context"
	"errors"
	"time"

	"mentora/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IntegrationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewIntegrationRepository(db *gorm.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db, now: time.Now}
}

// HasValidIntegration answers from a single row read; a missing row is not an
// error.
func (r *IntegrationRepository) HasValidIntegration(ctx context.Context, userID string) (bool, error) {
	grant, err := r.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return grant.Valid(r.now()), nil
}

func (r *IntegrationRepository) Get(ctx context.Context, userID string) (*domain.GoogleIntegration, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if !domain.IsUUID(userID) {
		return nil, domain.ErrNotFound
	}
	var model GoogleIntegrationModel
	err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.GoogleIntegration{
		UserID:       model.UserID,
		Email:        model.Email,
		AccessToken:  model.AccessToken,
		RefreshToken: model.RefreshToken,
		TokenType:    model.TokenType,
		Expiry:       timeValue(model.Expiry),
		Scopes:       splitScopes(model.Scopes),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}, nil
}

// Upsert inserts or replaces the grant keyed by user id. created_at is kept
// from the first insert.
func (r *IntegrationRepository) Upsert(ctx context.Context, grant domain.GoogleIntegration) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if !domain.IsUUID(grant.UserID) {
		return domain.ErrInvalidArgument
	}
	now := r.now().UTC()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = now
	}
	model := GoogleIntegrationModel{
		UserID:       grant.UserID,
		Email:        grant.Email,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		Expiry:       timePtr(grant.Expiry),
		Scopes:       joinScopes(grant.Scopes),
		CreatedAt:    grant.CreatedAt.UTC(),
		UpdatedAt:    grant.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "access_token", "refresh_token", "token_type", "expiry", "scopes", "updated_at",
		}),
	}).Create(&model).Error
}

func (r *IntegrationRepository) Delete(ctx context.Context, userID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if !domain.IsUUID(userID) {
		return domain.ErrNotFound
	}
	res := r.db.WithContext(ctx).Delete(&GoogleIntegrationModel{}, "user_id = ?", userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
