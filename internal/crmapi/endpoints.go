package crmapi

import (
	"net/url"
	"strings"
)

// Endpoints maps each backend operation to its fully-qualified URL.
type Endpoints struct {
	base string
}

// NewEndpoints normalizes the base URL so paths can be appended directly.
func NewEndpoints(baseURL string) Endpoints {
	base := strings.TrimSpace(baseURL)
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return Endpoints{base: base}
}

// Base returns the normalized base URL.
func (e Endpoints) Base() string { return e.base }

func (e Endpoints) path(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return e.base + strings.Join(escaped, "/")
}

// Auth and organizations

func (e Endpoints) Login() string             { return e.base + "auth/login" }
func (e Endpoints) UserOrganizations() string { return e.base + "organizations/user-organizations" }
func (e Endpoints) InviteUser() string        { return e.base + "auth/invite-user" }
func (e Endpoints) UsersByOrganization() string {
	return e.base + "auth/get-users-by-organization"
}
func (e Endpoints) DeleteMember(memberID string) string {
	return e.base + "auth/delete-user/" + url.PathEscape(memberID)
}

// Leads

func (e Endpoints) LeadsByOrganization() string { return e.base + "leads/get-leads-by-organization" }
func (e Endpoints) UserLeads(userID string) string {
	return e.base + "leads/leads/user/" + url.PathEscape(userID)
}
func (e Endpoints) Lead(leadID string) string { return e.base + "leads/get-lead/" + url.PathEscape(leadID) }
func (e Endpoints) CreateLead() string        { return e.base + "leads/create-lead" }
func (e Endpoints) UpdateLead(leadID string) string {
	return e.base + "leads/update-lead/" + url.PathEscape(leadID)
}
func (e Endpoints) DeleteLead(leadID string) string {
	return e.base + "leads/delete-lead/" + url.PathEscape(leadID)
}

// Products and sales

func (e Endpoints) ProductsByOrganization() string { return e.base + "products/organization-products" }
func (e Endpoints) Product(productID string) string {
	return e.base + "products/product/" + url.PathEscape(productID)
}
func (e Endpoints) CreateProduct() string { return e.base + "products/create-product" }
func (e Endpoints) DeleteProduct(productID string) string {
	return e.base + "products/delete-product/" + url.PathEscape(productID)
}
func (e Endpoints) CreateSale(leadID string) string {
	return e.base + "sales/create-sale/" + url.PathEscape(leadID)
}

// Proposals and visits

func (e Endpoints) AllProposals() string  { return e.base + "proposals/get-all-proposals" }
func (e Endpoints) UserProposals() string { return e.base + "proposals/user-proposals" }
func (e Endpoints) Proposal(proposalID string) string {
	return e.base + "proposals/get-proposal/" + url.PathEscape(proposalID)
}
func (e Endpoints) CreateProposal() string { return e.base + "proposals/create-proposal" }
func (e Endpoints) AllVisits() string      { return e.base + "visits/get-all-visits" }
func (e Endpoints) UserVisits() string     { return e.base + "visits/user-visits" }
func (e Endpoints) Visit(visitID string) string {
	return e.base + "visits/get-visit/" + url.PathEscape(visitID)
}
func (e Endpoints) CreateVisit() string { return e.base + "visits/create-visit" }

// Departments

func (e Endpoints) DepartmentsByOrganization() string {
	return e.base + "departments/get-departments-by-organization"
}
func (e Endpoints) Department(departmentID string) string {
	return e.path("departments", "get-department", departmentID)
}
func (e Endpoints) CreateDepartment() string { return e.base + "departments/create-department" }
func (e Endpoints) UpdateDepartment(departmentID string) string {
	return e.path("departments", "update-department", departmentID)
}
func (e Endpoints) DeleteDepartment(departmentID string) string {
	return e.path("departments", "delete-department", departmentID)
}
func (e Endpoints) AssignDepartment(userID string) string {
	return e.path("departments", "add-user", userID)
}

// Dashboard, reports and targets

func (e Endpoints) AdminDashboard() string { return e.base + "dashboard/sales-admin" }
func (e Endpoints) UserDashboard() string  { return e.base + "dashboard/sales-user" }
func (e Endpoints) SetTargets() string     { return e.base + "targets/set-targets" }

// UserReport keeps the selected date as a query parameter.
func (e Endpoints) UserReport(userID, selectedDate string) string {
	q := url.Values{}
	q.Set("selectedDate", selectedDate)
	return e.path("reports", "user", userID, "sales") + "?" + q.Encode()
}

// SalesSummary uses the backend's "selectdDate" spelling.
func (e Endpoints) SalesSummary(selectedDate string) string {
	q := url.Values{}
	q.Set("selectdDate", selectedDate)
	return e.base + "reports/sales/summary?" + q.Encode()
}
