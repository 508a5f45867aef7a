package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clink-api/internal/apperr"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
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

	return New(db), mock
}

func TestFindActivePlanForCompany(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM "companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id"}).
			AddRow("c1", "p1"))
	mock.ExpectQuery(`SELECT .* FROM "plans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "max_users", "max_companies"}).
			AddRow("p1", "Professional", "Active", 25, 3))

	plan, err := st.FindActivePlanForCompany(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "Professional", plan.Name)
	assert.Equal(t, 25, plan.MaxUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActivePlanForCompany_NoSelection(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id"}).
			AddRow("c1", nil))

	plan, err := st.FindActivePlanForCompany(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActivePlanForCompany_InactivePlanResolvesToNone(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id"}).
			AddRow("c1", "p-old"))
	// The status filter excludes the retired plan.
	mock.ExpectQuery(`SELECT .* FROM "plans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	plan, err := st.FindActivePlanForCompany(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestFindActivePlanForCompany_UnknownCompany(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id"}))

	plan, err := st.FindActivePlanForCompany(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestFindPrincipalByID_Absent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := st.FindPrincipalByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFindUserByEmail_Absent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := st.FindUserByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestGetMembership(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "user_companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company_id", "role"}).
			AddRow("m1", "u1", "c1", "owner"))

	m, err := st.GetMembership(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "owner", m.Role)
}

func TestGetMembership_Absent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "user_companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	m, err := st.GetMembership(context.Background(), "u1", "c9")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestGetRole_NotFoundKind(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.GetRole(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestFindRolesByIDs(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "scope", "status", "is_system", "is_custom"}).
			AddRow("r1", "Viewer", "Company", "Active", true, false))
	mock.ExpectQuery(`SELECT .* FROM "role_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id", "permission_code"}).
			AddRow("rp1", "r1", "users:view"))

	roles, err := st.FindRolesByIDs(context.Background(), []string{"r1"})
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "Viewer", roles[0].Name)
	assert.Equal(t, []string{"users:view"}, roles[0].Permissions)

	// Empty input never touches the database.
	roles, err = st.FindRolesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, roles)
}

func TestCountUsersForCompany(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := st.CountUsersForCompany(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
