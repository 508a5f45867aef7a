package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"clink-api/internal/apperr"
	"clink-api/internal/model"
)

// ListPlans returns all plans ordered by price.
func (s *Store) ListPlans(ctx context.Context) ([]model.Plan, error) {
	var plans []model.Plan
	err := s.db.WithContext(ctx).Order("price ASC").Find(&plans).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing plans", err)
	}
	return plans, nil
}

// GetPlan loads one plan by id.
func (s *Store) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	var plan model.Plan
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "plan not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading plan", err)
	}
	return &plan, nil
}

// CreatePlan persists a new plan.
func (s *Store) CreatePlan(ctx context.Context, plan *model.Plan) error {
	if err := s.db.WithContext(ctx).Create(plan).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "creating plan", err)
	}
	return nil
}

// UpdatePlan saves the full plan row, last-write-wins.
func (s *Store) UpdatePlan(ctx context.Context, plan *model.Plan) error {
	if err := s.db.WithContext(ctx).Save(plan).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "updating plan", err)
	}
	return nil
}

// DeletePlan removes a plan.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Plan{})
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "deleting plan", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "plan not found")
	}
	return nil
}

// SelectPlanForCompany replaces the company's active plan selection.
// There is at most one selection per company; changing plans is a
// replace, never an add.
func (s *Store) SelectPlanForCompany(ctx context.Context, companyID, planID string) error {
	res := s.db.WithContext(ctx).Model(&model.Company{}).Where("id = ?", companyID).Update("plan_id", planID)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "selecting plan", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "company not found")
	}
	return nil
}
