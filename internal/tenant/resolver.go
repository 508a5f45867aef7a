// Package tenant resolves the single company context for a request.
// Every business row elsewhere in the system carries a company id; this
// package guarantees the request context carries exactly one trusted
// company id (or deliberately none) before any such row is touched.
package tenant

import (
	"clink-api/internal/apperr"
	"clink-api/internal/rbac"
)

// Resolve picks the company context for a principal. Precedence, first
// match wins:
//
//  1. Global-scope principals: the header verbatim when present (no
//     membership check, global scope is cross-company), otherwise nil
//     for a company-agnostic context.
//  2. Header present: must be in the membership list, else the request
//     is rejected outright.
//  3. The principal's billing company.
//  4. The first membership, in stored order.
//  5. nil; callers that need a company turn this into CompanyRequired
//     via Require.
func Resolve(p rbac.Principal, headerCompanyID string) (*string, error) {
	if p.HasGlobalScope() {
		if headerCompanyID != "" {
			id := headerCompanyID
			return &id, nil
		}
		return nil, nil
	}

	if headerCompanyID != "" {
		if !p.IsMemberOf(headerCompanyID) {
			return nil, apperr.New(apperr.ForbiddenCompany, "access denied to the requested company")
		}
		id := headerCompanyID
		return &id, nil
	}

	if p.BillingCompanyID != nil && *p.BillingCompanyID != "" {
		id := *p.BillingCompanyID
		return &id, nil
	}

	if len(p.Memberships) > 0 {
		id := p.Memberships[0].CompanyID
		return &id, nil
	}

	return nil, nil
}

// Require turns an absent company context into CompanyRequired for
// operations that cannot run company-agnostically.
func Require(companyID *string) (string, error) {
	if companyID == nil || *companyID == "" {
		return "", apperr.New(apperr.CompanyRequired, "a company context is required for this operation")
	}
	return *companyID, nil
}
