// Package store is the data-access collaborator. The core components
// receive it through their constructors; nothing in this service holds
// a process-wide database singleton.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"clink-api/internal/apperr"
	"clink-api/internal/model"
	"clink-api/internal/rbac"
)

// Store wraps the gorm connection with the queries the engine needs.
type Store struct {
	db *gorm.DB
}

// New wires a store to an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for transactional handler flows.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// FindPrincipalByID loads the full principal aggregate: roles with
// their permission codes in assignment order, memberships in insertion
// order, and the billing company reference. Returns (nil, nil) when no
// such user exists; the gate merges that into Unauthenticated.
func (s *Store) FindPrincipalByID(ctx context.Context, id string) (*rbac.Principal, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Preload("Roles", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_roles.assigned_at ASC")
		}).
		Preload("Roles.Role.Permissions").
		Preload("Companies", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_companies.created_at ASC")
		}).
		Where("id = ?", id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading principal", err)
	}
	p := toPrincipal(&user)
	return &p, nil
}

// FindActivePlanForCompany returns the company's currently selected
// plan, or (nil, nil) when the company has none or the selected plan is
// no longer active. The absence of a plan is not an error.
func (s *Store) FindActivePlanForCompany(ctx context.Context, companyID string) (*model.Plan, error) {
	var company model.Company
	err := s.db.WithContext(ctx).Select("id", "plan_id").Where("id = ?", companyID).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading company plan reference", err)
	}
	if company.PlanID == nil {
		return nil, nil
	}

	var plan model.Plan
	err = s.db.WithContext(ctx).Where("id = ? AND status = ?", *company.PlanID, "Active").First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading active plan", err)
	}
	return &plan, nil
}

// FindRolesByIDs loads roles with their permission codes.
func (s *Store) FindRolesByIDs(ctx context.Context, ids []string) ([]rbac.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.Role
	err := s.db.WithContext(ctx).Preload("Permissions").Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading roles", err)
	}
	roles := make([]rbac.Role, len(rows))
	for i := range rows {
		roles[i] = toRole(&rows[i])
	}
	return roles, nil
}

func toPrincipal(u *model.User) rbac.Principal {
	p := rbac.Principal{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		BillingCompanyID: u.BillingCompanyID,
	}
	for i := range u.Roles {
		p.Roles = append(p.Roles, toRole(&u.Roles[i].Role))
	}
	for _, uc := range u.Companies {
		p.Memberships = append(p.Memberships, rbac.Membership{
			CompanyID: uc.CompanyID,
			Role:      uc.Role,
		})
	}
	return p
}

func toRole(r *model.Role) rbac.Role {
	return rbac.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Scope:       rbac.Scope(r.Scope),
		Status:      rbac.RoleStatus(r.Status),
		IsSystem:    r.IsSystem,
		IsCustom:    r.IsCustom,
		Permissions: r.PermissionCodes(),
	}
}
