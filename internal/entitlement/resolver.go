// Package entitlement maps a company's active plan to the effective
// feature flags and numeric limits downstream handlers gate on.
package entitlement

import (
	"context"

	"clink-api/internal/model"
)

// Unlimited is the sentinel for limits with no upper bound.
const Unlimited = -1

// PlanSource is the slice of the data-access collaborator this resolver
// needs. A nil plan with a nil error means the company has no active plan.
type PlanSource interface {
	FindActivePlanForCompany(ctx context.Context, companyID string) (*model.Plan, error)
}

// Entitlements is the resolved feature/limit set for one company.
type Entitlements struct {
	Features     map[string]struct{}
	MaxUsers     int
	MaxCompanies int
}

// HasFeature tests verbatim string membership; there is no hierarchy
// between features.
func (e Entitlements) HasFeature(name string) bool {
	_, ok := e.Features[name]
	return ok
}

// CanAddUser reports whether the plan allows one more user on top of
// the current count. Unlimited always passes.
func (e Entitlements) CanAddUser(currentUsers int) bool {
	return e.MaxUsers == Unlimited || currentUsers < e.MaxUsers
}

// CanAddCompany reports whether the plan allows one more company.
func (e Entitlements) CanAddCompany(currentCompanies int) bool {
	return e.MaxCompanies == Unlimited || currentCompanies < e.MaxCompanies
}

// Resolver loads entitlements from the active plan of a company.
type Resolver struct {
	plans PlanSource
}

// NewResolver wires the resolver to its plan source.
func NewResolver(plans PlanSource) *Resolver {
	return &Resolver{plans: plans}
}

// Resolve returns the entitlements for companyID. A company without an
// active plan resolves to the zero entitlement (no features, zero
// limits); that is an expected state, not a failure.
func (r *Resolver) Resolve(ctx context.Context, companyID string) (Entitlements, error) {
	plan, err := r.plans.FindActivePlanForCompany(ctx, companyID)
	if err != nil {
		return Entitlements{}, err
	}
	if plan == nil {
		return Entitlements{Features: map[string]struct{}{}}, nil
	}

	features := make(map[string]struct{}, len(plan.Features))
	for _, f := range plan.Features {
		features[f] = struct{}{}
	}
	return Entitlements{
		Features:     features,
		MaxUsers:     plan.MaxUsers,
		MaxCompanies: plan.MaxCompanies,
	}, nil
}
