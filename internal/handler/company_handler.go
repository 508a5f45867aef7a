package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clink-api/internal/apperr"
	"clink-api/internal/entitlement"
	"clink-api/internal/middleware"
	"clink-api/internal/model"
	"clink-api/internal/store"
	"clink-api/pkg/logger"
	"clink-api/prometheus"
)

// CompanyHandler exposes the caller's company memberships and company
// creation under plan limits.
type CompanyHandler struct {
	store        *store.Store
	entitlements *entitlement.Resolver
}

func NewCompanyHandler(s *store.Store, e *entitlement.Resolver) *CompanyHandler {
	return &CompanyHandler{store: s, entitlements: e}
}

// ListMyCompanies returns the companies the caller belongs to, oldest
// membership first.
func (h *CompanyHandler) ListMyCompanies(c echo.Context) error {
	prometheus.RecordCompanyOperation("list")

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	memberships, err := h.store.ListCompaniesForUser(c.Request().Context(), actx.UserID)
	if err != nil {
		return middleware.RespondError(c, err)
	}

	out := make([]echo.Map, 0, len(memberships))
	for _, m := range memberships {
		if m.Company == nil {
			continue
		}
		out = append(out, echo.Map{
			"id":              m.Company.ID,
			"name":            m.Company.Name,
			"legal_name":      m.Company.LegalName,
			"status":          m.Company.Status,
			"membership_role": m.Role,
			"joined_at":       m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"companies": out})
}

type createCompanyRequest struct {
	Name               string `json:"name"`
	LegalName          string `json:"legal_name"`
	RegistrationNumber string `json:"registration_number"`
	VatNumber          string `json:"vat_number"`
}

// CreateCompany creates a company owned by the caller, subject to the
// caller's plan company limit.
func (h *CompanyHandler) CreateCompany(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCompanyOperation("create")

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	var req createCompanyRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "company name is required"})
	}

	ctx := c.Request().Context()

	// The limit follows the billing company's plan; without a billing
	// company the zero-value entitlements apply.
	if actx.Principal.BillingCompanyID != nil {
		ent, err := h.entitlements.Resolve(ctx, *actx.Principal.BillingCompanyID)
		if err != nil {
			return middleware.RespondError(c, err)
		}
		count, err := h.store.CountCompaniesForUser(ctx, actx.UserID)
		if err != nil {
			return middleware.RespondError(c, err)
		}
		if !ent.CanAddCompany(int(count)) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "company limit reached for your plan"})
		}
	}

	company := model.Company{
		Name:               req.Name,
		LegalName:          req.LegalName,
		RegistrationNumber: req.RegistrationNumber,
		VatNumber:          req.VatNumber,
		Status:             "Active",
		OwnerID:            actx.UserID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateCompanyWithOwner(ctx, &company, actx.UserID); err != nil {
		log.Error("Failed to create company", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	log.Info("Company created",
		zap.String("company_id", company.ID),
		zap.String("owner_id", actx.UserID))
	return c.JSON(http.StatusCreated, company)
}

// GetCompany returns a company the caller can see: members always,
// global-scope principals for any company.
func (h *CompanyHandler) GetCompany(c echo.Context) error {
	prometheus.RecordCompanyOperation("get")

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	ctx := c.Request().Context()
	companyID := c.Param("id")

	if !actx.Principal.HasGlobalScope() {
		membership, err := h.store.GetMembership(ctx, actx.UserID, companyID)
		if err != nil {
			return middleware.RespondError(c, err)
		}
		if membership == nil {
			return middleware.RespondError(c, apperr.New(apperr.ForbiddenCompany, "not a member of this company"))
		}
	}

	company, err := h.store.GetCompany(ctx, companyID)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, company)
}
