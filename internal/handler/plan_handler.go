package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clink-api/internal/apperr"
	"clink-api/internal/entitlement"
	"clink-api/internal/middleware"
	"clink-api/internal/model"
	"clink-api/internal/store"
	"clink-api/internal/tenant"
	"clink-api/pkg/logger"
	"clink-api/prometheus"
)

// PlanHandler owns plan administration and the plan selection flow for
// billing companies.
type PlanHandler struct {
	store        *store.Store
	entitlements *entitlement.Resolver
}

// NewPlanHandler wires the handler to the store and the entitlement
// resolver.
func NewPlanHandler(s *store.Store, e *entitlement.Resolver) *PlanHandler {
	return &PlanHandler{store: s, entitlements: e}
}

// ListPlans returns all plans ordered by price.
func (h *PlanHandler) ListPlans(c echo.Context) error {
	prometheus.RecordPlanOperation("list")
	defer prometheus.TrackDBOperation("query")(time.Now())

	plans, err := h.store.ListPlans(c.Request().Context())
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, plans)
}

// GetPlan returns one plan by id.
func (h *PlanHandler) GetPlan(c echo.Context) error {
	prometheus.RecordPlanOperation("get")

	plan, err := h.store.GetPlan(c.Request().Context(), c.Param("id"))
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

type planRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	BillingCycle string   `json:"billing_cycle"`
	Features     []string `json:"features"`
	MaxUsers     *int     `json:"max_users"`
	MaxCompanies *int     `json:"max_companies"`
	Status       string   `json:"status"`
	IsCustom     bool     `json:"is_custom"`
}

// CreatePlan creates a new plan.
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPlanOperation("create")

	var req planRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if !validLimit(req.MaxUsers) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_users must be -1 or a non-negative integer"})
	}
	if !validLimit(req.MaxCompanies) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_companies must be -1 or a non-negative integer"})
	}

	plan := model.Plan{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		BillingCycle: defaultString(req.BillingCycle, "monthly"),
		Features:     req.Features,
		Status:       defaultString(req.Status, "Active"),
		IsCustom:     req.IsCustom,
	}
	if req.MaxUsers != nil {
		plan.MaxUsers = *req.MaxUsers
	}
	if req.MaxCompanies != nil {
		plan.MaxCompanies = *req.MaxCompanies
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreatePlan(c.Request().Context(), &plan); err != nil {
		log.Error("Failed to create plan", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	log.Info("Plan created", zap.String("name", plan.Name), zap.String("id", plan.ID))
	return c.JSON(http.StatusCreated, plan)
}

// UpdatePlan edits a plan, last-write-wins.
func (h *PlanHandler) UpdatePlan(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPlanOperation("update")

	ctx := c.Request().Context()
	plan, err := h.store.GetPlan(ctx, c.Param("id"))
	if err != nil {
		return middleware.RespondError(c, err)
	}

	var req planRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if !validLimit(req.MaxUsers) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_users must be -1 or a non-negative integer"})
	}
	if !validLimit(req.MaxCompanies) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_companies must be -1 or a non-negative integer"})
	}

	if req.Name != "" {
		plan.Name = req.Name
	}
	if req.Description != "" {
		plan.Description = req.Description
	}
	if req.Price != 0 {
		plan.Price = req.Price
	}
	if req.BillingCycle != "" {
		plan.BillingCycle = req.BillingCycle
	}
	if req.Features != nil {
		plan.Features = req.Features
	}
	if req.MaxUsers != nil {
		plan.MaxUsers = *req.MaxUsers
	}
	if req.MaxCompanies != nil {
		plan.MaxCompanies = *req.MaxCompanies
	}
	if req.Status != "" {
		plan.Status = req.Status
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.store.UpdatePlan(ctx, plan); err != nil {
		log.Error("Failed to update plan", zap.Error(err))
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// DeletePlan removes a plan.
func (h *PlanHandler) DeletePlan(c echo.Context) error {
	prometheus.RecordPlanOperation("delete")
	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := h.store.DeletePlan(c.Request().Context(), c.Param("id")); err != nil {
		return middleware.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type planSelection struct {
	PlanID           string `json:"plan_id"`
	BillingCompanyID string `json:"billing_company_id"`
}

// checkSelection runs the shared validation for validate and select:
// plan exists and is active, the caller is a member of the billing
// company, and the company is within the plan's user limit.
func (h *PlanHandler) checkSelection(c echo.Context, req planSelection) (string, bool, error) {
	ctx := c.Request().Context()

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return "", false, apperr.New(apperr.Unauthenticated, "authentication required")
	}

	plan, err := h.store.GetPlan(ctx, req.PlanID)
	if apperr.Is(err, apperr.NotFound) {
		return "plan not found", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if plan.Status != "Active" {
		return "this plan is no longer available", false, nil
	}

	membership, err := h.store.GetMembership(ctx, actx.UserID, req.BillingCompanyID)
	if err != nil {
		return "", false, err
	}
	if membership == nil {
		return "invalid billing company selection", false, nil
	}

	if plan.MaxUsers != entitlement.Unlimited {
		count, err := h.store.CountUsersForCompany(ctx, req.BillingCompanyID)
		if err != nil {
			return "", false, err
		}
		if count > int64(plan.MaxUsers) {
			return "this plan does not cover the company's current users", false, nil
		}
	}

	return "plan can be selected", true, nil
}

// ValidateSelection checks a plan selection without applying it.
func (h *PlanHandler) ValidateSelection(c echo.Context) error {
	prometheus.RecordPlanOperation("validate")

	var req planSelection
	if err := c.Bind(&req); err != nil || req.PlanID == "" || req.BillingCompanyID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan_id and billing_company_id are required"})
	}

	message, valid, err := h.checkSelection(c, req)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": valid, "message": message})
}

// SelectPlan applies a plan selection to a billing company. Changing
// plans replaces the previous selection.
func (h *PlanHandler) SelectPlan(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPlanOperation("select")

	var req planSelection
	if err := c.Bind(&req); err != nil || req.PlanID == "" || req.BillingCompanyID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan_id and billing_company_id are required"})
	}

	message, valid, err := h.checkSelection(c, req)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": message})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.store.SelectPlanForCompany(c.Request().Context(), req.BillingCompanyID, req.PlanID); err != nil {
		log.Error("Failed to select plan", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	log.Info("Plan selected",
		zap.String("plan_id", req.PlanID),
		zap.String("company_id", req.BillingCompanyID))

	plan, err := h.store.GetPlan(c.Request().Context(), req.PlanID)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"plan": plan, "billing_company_id": req.BillingCompanyID})
}

// CurrentEntitlements returns the resolved feature/limit set for the
// request's company context.
func (h *PlanHandler) CurrentEntitlements(c echo.Context) error {
	prometheus.RecordPlanOperation("entitlements")

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	companyID, err := tenant.Require(actx.CompanyID)
	if err != nil {
		return middleware.RespondError(c, err)
	}

	ent, err := h.entitlements.Resolve(c.Request().Context(), companyID)
	if err != nil {
		return middleware.RespondError(c, err)
	}

	features := make([]string, 0, len(ent.Features))
	for f := range ent.Features {
		features = append(features, f)
	}
	sort.Strings(features)

	return c.JSON(http.StatusOK, echo.Map{
		"company_id":    companyID,
		"features":      features,
		"max_users":     ent.MaxUsers,
		"max_companies": ent.MaxCompanies,
	})
}

func validLimit(v *int) bool {
	return v == nil || *v >= entitlement.Unlimited
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
