package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clink-api/internal/model"
)

type fakePlanSource struct {
	plan *model.Plan
	err  error
}

func (f *fakePlanSource) FindActivePlanForCompany(_ context.Context, _ string) (*model.Plan, error) {
	return f.plan, f.err
}

func TestResolve_ActivePlan(t *testing.T) {
	src := &fakePlanSource{plan: &model.Plan{
		Name:         "Professional",
		Features:     []string{"reports", "api_access", "custom_roles"},
		MaxUsers:     25,
		MaxCompanies: 3,
		Status:       "Active",
	}}
	r := NewResolver(src)

	ent, err := r.Resolve(context.Background(), "c1")
	require.NoError(t, err)

	assert.True(t, ent.HasFeature("reports"))
	assert.True(t, ent.HasFeature("api_access"))
	assert.False(t, ent.HasFeature("sso"))
	assert.Equal(t, 25, ent.MaxUsers)
	assert.Equal(t, 3, ent.MaxCompanies)
}

func TestResolve_NoPlanYieldsZeroEntitlements(t *testing.T) {
	r := NewResolver(&fakePlanSource{})

	ent, err := r.Resolve(context.Background(), "c1")
	require.NoError(t, err)

	assert.NotNil(t, ent.Features)
	assert.Empty(t, ent.Features)
	assert.Equal(t, 0, ent.MaxUsers)
	assert.Equal(t, 0, ent.MaxCompanies)
	assert.False(t, ent.CanAddUser(0))
	assert.False(t, ent.CanAddCompany(0))
}

func TestResolve_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(&fakePlanSource{err: boom})

	_, err := r.Resolve(context.Background(), "c1")
	assert.ErrorIs(t, err, boom)
}

func TestFeatureNamesAreVerbatim(t *testing.T) {
	src := &fakePlanSource{plan: &model.Plan{Features: []string{"Reports"}}}
	r := NewResolver(src)

	ent, err := r.Resolve(context.Background(), "c1")
	require.NoError(t, err)

	assert.True(t, ent.HasFeature("Reports"))
	assert.False(t, ent.HasFeature("reports"))
}

func TestLimits(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		current int
		want    bool
	}{
		{"under the limit", 5, 4, true},
		{"at the limit", 5, 5, false},
		{"over the limit", 5, 9, false},
		{"unlimited", Unlimited, 100000, true},
		{"zero limit blocks everything", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entitlements{MaxUsers: tt.max, MaxCompanies: tt.max}
			assert.Equal(t, tt.want, e.CanAddUser(tt.current))
			assert.Equal(t, tt.want, e.CanAddCompany(tt.current))
		})
	}
}
