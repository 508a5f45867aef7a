package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"clink-api/internal/apperr"
	"clink-api/internal/model"
)

// FindUserByEmail loads a user row for credential checks. Associations
// are not preloaded here; the gate reloads the principal aggregate by
// id after the password check.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading user", err)
	}
	return &user, nil
}

// FindUserByID loads a bare user row.
func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading user", err)
	}
	return &user, nil
}

// CreateRegistration bootstraps a company and its admin user in one
// transaction: company row, admin user with the company as billing
// company, owner membership, and the given system role attached.
func (s *Store) CreateRegistration(ctx context.Context, company *model.Company, user *model.User, membershipRole, roleID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return err
		}
		user.BillingCompanyID = &company.ID
		user.JoinedAt = time.Now()
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		uc := model.UserCompany{UserID: user.ID, CompanyID: company.ID, Role: membershipRole}
		if err := tx.Create(&uc).Error; err != nil {
			return err
		}
		ur := model.UserRole{UserID: user.ID, RoleID: roleID}
		if err := tx.Create(&ur).Error; err != nil {
			return err
		}
		return tx.Model(company).Update("owner_id", user.ID).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "registering company", err)
	}
	return nil
}

// UpdateBillingCompany switches the user's billing company. Membership
// verification is the caller's responsibility.
func (s *Store) UpdateBillingCompany(ctx context.Context, userID, companyID string) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("billing_company_id", companyID)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "updating billing company", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password", hash)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "updating password", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// GetMembership returns the membership row for (user, company), or
// (nil, nil) when the user is not a member.
func (s *Store) GetMembership(ctx context.Context, userID, companyID string) (*model.UserCompany, error) {
	var uc model.UserCompany
	err := s.db.WithContext(ctx).Where("user_id = ? AND company_id = ?", userID, companyID).First(&uc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading membership", err)
	}
	return &uc, nil
}

// ListCompaniesForUser returns the user's memberships with company rows
// in insertion order.
func (s *Store) ListCompaniesForUser(ctx context.Context, userID string) ([]model.UserCompany, error) {
	var rows []model.UserCompany
	err := s.db.WithContext(ctx).Preload("Company").Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing companies", err)
	}
	return rows, nil
}

// GetCompany loads one company.
func (s *Store) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var company model.Company
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "company not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading company", err)
	}
	return &company, nil
}

// CreateCompanyWithOwner creates a company and the creator's owner
// membership in one transaction.
func (s *Store) CreateCompanyWithOwner(ctx context.Context, company *model.Company, ownerID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company.OwnerID = ownerID
		if err := tx.Create(company).Error; err != nil {
			return err
		}
		uc := model.UserCompany{UserID: ownerID, CompanyID: company.ID, Role: "owner"}
		return tx.Create(&uc).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "creating company", err)
	}
	return nil
}

// CountUsersForCompany counts memberships of a company, the basis for
// the plan maxUsers check.
func (s *Store) CountUsersForCompany(ctx context.Context, companyID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.UserCompany{}).Where("company_id = ?", companyID).Count(&n).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "counting company users", err)
	}
	return n, nil
}

// CountCompaniesForUser counts the companies a user belongs to, the
// basis for the plan maxCompanies check.
func (s *Store) CountCompaniesForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.UserCompany{}).Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "counting user companies", err)
	}
	return n, nil
}
