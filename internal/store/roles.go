package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"clink-api/internal/apperr"
	"clink-api/internal/model"
)

// ListRoles returns every role with its permission codes.
func (s *Store) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := s.db.WithContext(ctx).Preload("Permissions").Order("created_at ASC").Find(&roles).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing roles", err)
	}
	return roles, nil
}

// GetRole loads one role by id.
func (s *Store) GetRole(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	err := s.db.WithContext(ctx).Preload("Permissions").Where("id = ?", id).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "role not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading role", err)
	}
	return &role, nil
}

// GetRoleByName loads one role by its unique name.
func (s *Store) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := s.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "role not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading role", err)
	}
	return &role, nil
}

// CreateRole persists a role and its permission code rows in one
// transaction.
func (s *Store) CreateRole(ctx context.Context, role *model.Role, codes []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(role).Error; err != nil {
			return err
		}
		for _, code := range codes {
			rp := model.RolePermission{RoleID: role.ID, PermissionCode: code}
			if err := tx.Create(&rp).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "creating role", err)
	}
	return nil
}

// UpdateRole replaces the role row and its permission set. Record-level
// last-write-wins; the permission rows are rewritten wholesale.
func (s *Store) UpdateRole(ctx context.Context, role *model.Role, codes []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Model(role).Updates(map[string]interface{}{
			"name":        role.Name,
			"description": role.Description,
			"scope":       role.Scope,
			"status":      role.Status,
			"is_custom":   role.IsCustom,
			"updated_at":  time.Now(),
		}).Error; err != nil {
			return err
		}
		for _, code := range codes {
			rp := model.RolePermission{RoleID: role.ID, PermissionCode: code}
			if err := tx.Create(&rp).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "updating role", err)
	}
	return nil
}

// DeleteRole removes the role and its permission rows. Invariant checks
// (system role, still assigned) are the caller's job via rbac.CanDelete.
func (s *Store) DeleteRole(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Role{}).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "deleting role", err)
	}
	return nil
}

// CountRoleAssignments counts users currently referencing the role.
func (s *Store) CountRoleAssignments(ctx context.Context, roleID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.UserRole{}).Where("role_id = ?", roleID).Count(&n).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "counting role assignments", err)
	}
	return n, nil
}

// AssignRole attaches a role to a user.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	ur := model.UserRole{UserID: userID, RoleID: roleID}
	if err := s.db.WithContext(ctx).Create(&ur).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "assigning role", err)
	}
	return nil
}

// UnassignRole removes a role attachment.
func (s *Store) UnassignRole(ctx context.Context, userID, roleID string) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&model.UserRole{})
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "unassigning role", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "role assignment not found")
	}
	return nil
}
