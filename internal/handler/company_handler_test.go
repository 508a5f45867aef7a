package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clink-api/internal/auth"
	"clink-api/internal/entitlement"
	"clink-api/internal/middleware"
	"clink-api/internal/store"
)

func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return store.New(db), mock
}

func newAuthedContext(t *testing.T, method, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.WithAuthContext(c, &auth.AuthContext{UserID: "u1", Email: "u1@example.com"})
	return c, rec
}

func TestListMyCompanies_SkipsMembershipWithoutCompany(t *testing.T) {
	st, mock := newMockStore(t)
	h := NewCompanyHandler(st, entitlement.NewResolver(st))

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "user_companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company_id", "role", "created_at"}).
			AddRow("m1", "u1", "c1", "owner", now).
			AddRow("m2", "u1", "c2", "member", now))
	// The preload finds a row for c1 only; c2's company is gone.
	mock.ExpectQuery(`SELECT .* FROM "companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "legal_name", "status"}).
			AddRow("c1", "Acme", "Acme Ltd", "Active"))

	c, rec := newAuthedContext(t, http.MethodGet, "/api/companies")
	require.NoError(t, h.ListMyCompanies(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Companies []struct {
			ID             string `json:"id"`
			Name           string `json:"name"`
			MembershipRole string `json:"membership_role"`
		} `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Companies, 1)
	assert.Equal(t, "c1", body.Companies[0].ID)
	assert.Equal(t, "Acme", body.Companies[0].Name)
	assert.Equal(t, "owner", body.Companies[0].MembershipRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}
