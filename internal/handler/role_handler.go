package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clink-api/internal/catalog"
	"clink-api/internal/middleware"
	"clink-api/internal/model"
	"clink-api/internal/rbac"
	"clink-api/internal/store"
	"clink-api/pkg/logger"
	"clink-api/prometheus"
)

// RoleHandler owns role administration: the catalog listing, role CRUD
// with the system-role invariants, template materialization and
// assignments.
type RoleHandler struct {
	store *store.Store
}

// NewRoleHandler wires the handler to the store.
func NewRoleHandler(s *store.Store) *RoleHandler {
	return &RoleHandler{store: s}
}

type permissionResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Module      string `json:"module"`
	AccessLevel string `json:"access_level"`
}

func toPermissionResponse(p catalog.Permission) permissionResponse {
	return permissionResponse{
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Module:      string(p.Module),
		AccessLevel: p.AccessLevel.String(),
	}
}

type roleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Scope       string               `json:"scope"`
	Status      string               `json:"status"`
	IsSystem    bool                 `json:"is_system"`
	IsCustom    bool                 `json:"is_custom"`
	Permissions []permissionResponse `json:"permissions"`
	UserCount   int64                `json:"user_count"`
}

func (h *RoleHandler) toRoleResponse(c echo.Context, role *model.Role) roleResponse {
	resp := roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Scope:       role.Scope,
		Status:      role.Status,
		IsSystem:    role.IsSystem,
		IsCustom:    role.IsCustom,
		Permissions: []permissionResponse{},
	}
	for _, code := range role.PermissionCodes() {
		if p, ok := catalog.ByCode(code); ok {
			resp.Permissions = append(resp.Permissions, toPermissionResponse(p))
		}
	}
	if n, err := h.store.CountRoleAssignments(c.Request().Context(), role.ID); err == nil {
		resp.UserCount = n
	}
	return resp
}

// ListPermissions returns the static permission catalog.
func (h *RoleHandler) ListPermissions(c echo.Context) error {
	defs := catalog.Definitions()
	out := make([]permissionResponse, len(defs))
	for i, p := range defs {
		out[i] = toPermissionResponse(p)
	}
	return c.JSON(http.StatusOK, out)
}

// ListRoles returns all roles with expanded permissions and user counts.
func (h *RoleHandler) ListRoles(c echo.Context) error {
	prometheus.RecordRoleOperation("list")
	defer prometheus.TrackDBOperation("query")(time.Now())

	roles, err := h.store.ListRoles(c.Request().Context())
	if err != nil {
		return middleware.RespondError(c, err)
	}
	out := make([]roleResponse, len(roles))
	for i := range roles {
		out[i] = h.toRoleResponse(c, &roles[i])
	}
	return c.JSON(http.StatusOK, out)
}

// GetRole returns one role by id.
func (h *RoleHandler) GetRole(c echo.Context) error {
	prometheus.RecordRoleOperation("get")

	role, err := h.store.GetRole(c.Request().Context(), c.Param("id"))
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, h.toRoleResponse(c, role))
}

type roleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scope       string   `json:"scope"`
	Status      string   `json:"status"`
	Permissions []string `json:"permissions"`
}

// CreateRole creates a custom role from scratch.
func (h *RoleHandler) CreateRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRoleOperation("create")

	var req roleRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if err := rbac.ValidateCodes(req.Permissions); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	scope := req.Scope
	if scope == "" {
		scope = string(rbac.ScopeCompany)
	}
	status := req.Status
	if status == "" {
		status = string(rbac.StatusActive)
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		Scope:       scope,
		Status:      status,
		IsSystem:    false,
		IsCustom:    true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateRole(c.Request().Context(), &role, req.Permissions); err != nil {
		log.Error("Failed to create role", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	log.Info("Role created", zap.String("name", role.Name), zap.String("id", role.ID))
	created, err := h.store.GetRole(c.Request().Context(), role.ID)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, h.toRoleResponse(c, created))
}

// UpdateRole edits a custom role. System roles are immutable.
func (h *RoleHandler) UpdateRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRoleOperation("update")

	ctx := c.Request().Context()
	existing, err := h.store.GetRole(ctx, c.Param("id"))
	if err != nil {
		return middleware.RespondError(c, err)
	}

	if err := rbac.CanModify(rbac.Role{IsSystem: existing.IsSystem}); err != nil {
		log.Warn("Attempted to modify system role", zap.String("id", existing.ID))
		return middleware.RespondError(c, err)
	}

	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := rbac.ValidateCodes(req.Permissions); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Scope != "" {
		existing.Scope = req.Scope
	}
	if req.Status != "" {
		existing.Status = req.Status
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.store.UpdateRole(ctx, existing, req.Permissions); err != nil {
		log.Error("Failed to update role", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	updated, err := h.store.GetRole(ctx, existing.ID)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, h.toRoleResponse(c, updated))
}

// DeleteRole removes a custom role that no user references.
func (h *RoleHandler) DeleteRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRoleOperation("delete")

	ctx := c.Request().Context()
	existing, err := h.store.GetRole(ctx, c.Param("id"))
	if err != nil {
		return middleware.RespondError(c, err)
	}

	assigned, err := h.store.CountRoleAssignments(ctx, existing.ID)
	if err != nil {
		return middleware.RespondError(c, err)
	}

	err = rbac.CanDelete(rbac.Role{IsSystem: existing.IsSystem, IsCustom: existing.IsCustom}, assigned)
	if errors.Is(err, rbac.ErrRoleInUse) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err != nil {
		log.Warn("Role delete rejected", zap.String("id", existing.ID), zap.Error(err))
		return middleware.RespondError(c, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.store.DeleteRole(ctx, existing.ID); err != nil {
		return middleware.RespondError(c, err)
	}

	log.Info("Role deleted", zap.String("id", existing.ID), zap.String("name", existing.Name))
	return c.NoContent(http.StatusNoContent)
}

// ListTemplates returns the built-in role templates.
func (h *RoleHandler) ListTemplates(c echo.Context) error {
	type templateResponse struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Permissions []string `json:"permissions"`
	}
	tpls := rbac.Templates()
	out := make([]templateResponse, len(tpls))
	for i, t := range tpls {
		out[i] = templateResponse{ID: t.ID, Name: t.Name, Description: t.Description, Permissions: t.Permissions}
	}
	return c.JSON(http.StatusOK, out)
}

// CreateFromTemplate materializes a built-in template into a new role.
func (h *RoleHandler) CreateFromTemplate(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordRoleOperation("materialize")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tpl, ok := rbac.TemplateByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "template not found"})
	}

	materialized := rbac.Materialize(tpl)
	if req.Name != "" {
		materialized.Name = req.Name
	}

	role := model.Role{
		Name:        materialized.Name,
		Description: materialized.Description,
		Scope:       string(materialized.Scope),
		Status:      string(materialized.Status),
		IsSystem:    materialized.IsSystem,
		IsCustom:    materialized.IsCustom,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateRole(c.Request().Context(), &role, materialized.Permissions); err != nil {
		log.Error("Failed to materialize template", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	log.Info("Role created from template",
		zap.String("template_id", tpl.ID),
		zap.String("role_id", role.ID))
	created, err := h.store.GetRole(c.Request().Context(), role.ID)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, h.toRoleResponse(c, created))
}

// AssignRole attaches a role to a user.
func (h *RoleHandler) AssignRole(c echo.Context) error {
	prometheus.RecordRoleOperation("assign")

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	if err := h.store.AssignRole(c.Request().Context(), req.UserID, c.Param("id")); err != nil {
		return middleware.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnassignRole removes a role attachment.
func (h *RoleHandler) UnassignRole(c echo.Context) error {
	prometheus.RecordRoleOperation("unassign")

	if err := h.store.UnassignRole(c.Request().Context(), c.Param("user_id"), c.Param("id")); err != nil {
		return middleware.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ValidateRole reports whether the role currently holds every permission
// code in the request.
func (h *RoleHandler) ValidateRole(c echo.Context) error {
	var req struct {
		Permissions []string `json:"permissions"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	role, err := h.store.GetRole(c.Request().Context(), c.Param("id"))
	if err != nil {
		return middleware.RespondError(c, err)
	}

	set := rbac.NewPermissionSet(role.PermissionCodes()...)
	for _, code := range req.Permissions {
		if !set.Has(code) {
			return c.JSON(http.StatusOK, echo.Map{"valid": false, "missing": code})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true})
}
