package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clink-api/internal/apperr"
	"clink-api/internal/middleware"
	"clink-api/internal/model"
	"clink-api/internal/rbac"
	"clink-api/internal/store"
	"clink-api/internal/tenant"
	"clink-api/pkg/jwtutil"
	"clink-api/pkg/logger"
	"clink-api/prometheus"
)

// AuthHandler owns the credential flows: login, registration, token
// refresh, billing company switching and password changes.
type AuthHandler struct {
	store *store.Store
}

// NewAuthHandler wires the handler to the store.
func NewAuthHandler(s *store.Store) *AuthHandler {
	return &AuthHandler{store: s}
}

// userResponse is the common user payload: identity plus role names and
// the resolved default company.
func (h *AuthHandler) userResponse(p rbac.Principal, companyID *string) echo.Map {
	roleNames := make([]string, len(p.Roles))
	for i, r := range p.Roles {
		roleNames[i] = r.Name
	}
	return echo.Map{
		"id":         p.ID,
		"email":      p.Email,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"roles":      roleNames,
		"company_id": companyID,
	}
}

// Login authenticates email/password credentials and issues a token.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	ctx := c.Request().Context()

	user, err := h.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		log.Error("Login lookup failed", zap.Error(err))
		return middleware.RespondError(c, err)
	}
	if user == nil {
		// Same response as a wrong password: no account enumeration.
		log.Warn("Login for unknown email", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	principal, err := h.store.FindPrincipalByID(ctx, user.ID)
	if err != nil || principal == nil {
		log.Error("Loading principal after login failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	// The default company for the response follows the same precedence
	// as request-time resolution with no header override.
	companyID, err := tenant.Resolve(*principal, "")
	if err != nil {
		return middleware.RespondError(c, err)
	}

	token, err := jwtutil.GenerateToken(user.ID, user.Email)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  h.userResponse(*principal, companyID),
	})
}

// Register bootstraps a company and its admin user, then issues a token.
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Company struct {
			Name               string `json:"name"`
			LegalName          string `json:"legal_name"`
			RegistrationNumber string `json:"registration_number"`
			VatNumber          string `json:"vat_number"`
		} `json:"company"`
		Admin struct {
			Email     string `json:"email"`
			Password  string `json:"password"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"admin"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Company.Name == "" || req.Admin.Email == "" || req.Admin.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "company name, email and password are required"})
	}

	ctx := c.Request().Context()

	existing, err := h.store.FindUserByEmail(ctx, req.Admin.Email)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	if existing != nil {
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	adminRole, err := h.store.GetRoleByName(ctx, "Company Administrator")
	if err != nil {
		log.Error("Admin role missing", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	company := model.Company{
		Name:               req.Company.Name,
		LegalName:          req.Company.LegalName,
		RegistrationNumber: req.Company.RegistrationNumber,
		VatNumber:          req.Company.VatNumber,
		Status:             "Active",
	}
	user := model.User{
		Email:     req.Admin.Email,
		Password:  string(hashed),
		FirstName: req.Admin.FirstName,
		LastName:  req.Admin.LastName,
		Status:    "Active",
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateRegistration(ctx, &company, &user, "owner", adminRole.ID); err != nil {
		log.Error("Registration failed", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	token, err := jwtutil.GenerateToken(user.ID, user.Email)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	principal, err := h.store.FindPrincipalByID(ctx, user.ID)
	if err != nil || principal == nil {
		log.Error("Loading principal after registration failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("Company registered",
		zap.String("company", company.Name),
		zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"token": token,
		"user":  h.userResponse(*principal, &company.ID),
	})
}

// RefreshToken reissues a token for the authenticated principal.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	log := logger.FromContext(c)

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	token, err := jwtutil.GenerateToken(actx.UserID, actx.Email)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  h.userResponse(actx.Principal, actx.CompanyID),
	})
}

// UpdateCompany switches the principal's billing company after a
// membership check.
func (h *AuthHandler) UpdateCompany(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCompanyOperation("switch_billing")

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	var req struct {
		CompanyID string `json:"company_id"`
	}
	if err := c.Bind(&req); err != nil || req.CompanyID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "company_id is required"})
	}

	ctx := c.Request().Context()
	membership, err := h.store.GetMembership(ctx, actx.UserID, req.CompanyID)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	if membership == nil {
		log.Warn("Billing company switch denied",
			zap.String("user_id", actx.UserID),
			zap.String("company_id", req.CompanyID))
		return middleware.RespondError(c, apperr.New(apperr.ForbiddenCompany, "access denied to this company"))
	}

	if err := h.store.UpdateBillingCompany(ctx, actx.UserID, req.CompanyID); err != nil {
		return middleware.RespondError(c, err)
	}

	token, err := jwtutil.GenerateToken(actx.UserID, actx.Email)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Billing company switched",
		zap.String("user_id", actx.UserID),
		zap.String("company_id", req.CompanyID))
	companyID := req.CompanyID
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  h.userResponse(actx.Principal, &companyID),
	})
}

// ChangePassword verifies the current password and stores a new hash.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	log := logger.FromContext(c)

	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password and new_password are required"})
	}

	ctx := c.Request().Context()
	user, err := h.store.FindUserByID(ctx, actx.UserID)
	if err != nil || user == nil {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password change failed"})
	}

	if err := h.store.UpdatePassword(ctx, actx.UserID, string(hashed)); err != nil {
		return middleware.RespondError(c, err)
	}

	log.Info("Password changed", zap.String("user_id", actx.UserID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed successfully"})
}

// Profile returns the authenticated principal's identity, resolved
// company and effective permission codes.
func (h *AuthHandler) Profile(c echo.Context) error {
	actx, ok := middleware.AuthFromContext(c)
	if !ok {
		return middleware.RespondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":           actx.UserID,
		"email":        actx.Email,
		"display_name": actx.DisplayName,
		"company_id":   actx.CompanyID,
		"permissions":  actx.Permissions.Codes(),
	})
}
