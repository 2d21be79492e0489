package listing

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

// Source is the part of the backend client the list pages read from.
type Source interface {
	OrganizationLeads(ctx context.Context) ([]crmapi.Lead, error)
	UserLeads(ctx context.Context, userID string) ([]crmapi.Lead, error)
	Products(ctx context.Context) ([]crmapi.Product, error)
	AllProposals(ctx context.Context) ([]crmapi.Proposal, error)
	UserProposals(ctx context.Context) ([]crmapi.Proposal, error)
	AllVisits(ctx context.Context) ([]crmapi.Visit, error)
	UserVisits(ctx context.Context) ([]crmapi.Visit, error)
	Users(ctx context.Context) ([]crmapi.Member, error)
	Departments(ctx context.Context) ([]crmapi.Department, error)
}

const (
	UnknownLead    = "Unknown Lead"
	UnknownProduct = "Unknown Product"
)

// ProposalRow is a proposal joined with its lead and product names.
type ProposalRow struct {
	crmapi.Proposal
	LeadName    string `json:"leadName"`
	ProductName string `json:"productName"`
}

// EmployeeRow is an organization member other than the owner.
type EmployeeRow struct {
	crmapi.Member
	Role        string   `json:"role"`
	Departments []string `json:"departments"`
}

// DepartmentRow is a department with its member count.
type DepartmentRow struct {
	crmapi.Department
	MemberCount int `json:"memberCount"`
}

func roleLeads(src Source) func(context.Context, tenancy.Identity) ([]crmapi.Lead, error) {
	return func(ctx context.Context, id tenancy.Identity) ([]crmapi.Lead, error) {
		if id.Role.Elevated() {
			return src.OrganizationLeads(ctx)
		}
		return src.UserLeads(ctx, id.UserID)
	}
}

func statusIn(statuses ...crmapi.LeadStatus) func(crmapi.Lead) bool {
	return func(l crmapi.Lead) bool {
		for _, s := range statuses {
			if l.LeadStatus == s {
				return true
			}
		}
		return false
	}
}

func leadNames(l crmapi.Lead) []string {
	return []string{l.FirstName, l.BusinessName}
}

func businessTypeContains(l crmapi.Lead, category string) bool {
	return ContainsFold(string(l.BusinessType), category)
}

// ProspectsVariant lists PROSPECT leads.
func ProspectsVariant(src Source) Variant[crmapi.Lead] {
	return Variant[crmapi.Lead]{
		Kind:         KindProspects,
		Fetch:        roleLeads(src),
		Baseline:     statusIn(crmapi.StatusProspect),
		Category:     businessTypeContains,
		Searchable:   leadNames,
		Actions:      Actions{View: true, Delete: true, ChangeStatus: true},
		Columns:      []string{"name", "businessType", "phoneNumber", "leadEmail", "location"},
		EmptyMessage: "No prospects found",
	}
}

// LeadsVariant lists LEAD and QUALIFIED leads.
func LeadsVariant(src Source) Variant[crmapi.Lead] {
	return Variant[crmapi.Lead]{
		Kind:         KindLeads,
		Fetch:        roleLeads(src),
		Baseline:     statusIn(crmapi.StatusLead, crmapi.StatusQualified),
		Category:     businessTypeContains,
		Searchable:   leadNames,
		Actions:      Actions{View: true, Delete: true, ChangeStatus: true},
		Columns:      []string{"name", "businessType", "leadStatus", "phoneNumber", "leadEmail", "location"},
		EmptyMessage: "No leads found",
	}
}

// ClientsVariant lists CLOSED leads. The category is a business-type tab
// where "all" matches every client.
func ClientsVariant(src Source) Variant[crmapi.Lead] {
	return Variant[crmapi.Lead]{
		Kind:     KindClients,
		Fetch:    roleLeads(src),
		Baseline: statusIn(crmapi.StatusClosed),
		Category: func(l crmapi.Lead, tab string) bool {
			return EqualFold(tab, "all") || EqualFold(string(l.BusinessType), tab)
		},
		Searchable:   leadNames,
		Actions:      Actions{View: true, Delete: true},
		Columns:      []string{"name", "businessType", "phoneNumber", "leadEmail", "location"},
		EmptyMessage: "No clients found",
	}
}

// ProductsVariant lists the organization catalog.
func ProductsVariant(src Source) Variant[crmapi.Product] {
	return Variant[crmapi.Product]{
		Kind: KindProducts,
		Fetch: func(ctx context.Context, _ tenancy.Identity) ([]crmapi.Product, error) {
			return src.Products(ctx)
		},
		Category: func(p crmapi.Product, category string) bool {
			return ContainsFold(string(p.Category), category)
		},
		Searchable:   func(p crmapi.Product) []string { return []string{p.Name} },
		Actions:      Actions{View: true, Delete: true},
		Columns:      []string{"name", "category", "unitPrice", "description"},
		EmptyMessage: "No products found",
	}
}

// ProposalsVariant joins proposals with the organization's leads and
// products. All three collections are fetched concurrently and must succeed.
func ProposalsVariant(src Source) Variant[ProposalRow] {
	return Variant[ProposalRow]{
		Kind: KindProposals,
		Fetch: func(ctx context.Context, id tenancy.Identity) ([]ProposalRow, error) {
			var (
				proposals []crmapi.Proposal
				leads     []crmapi.Lead
				products  []crmapi.Product
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				if id.Role.Elevated() {
					proposals, err = src.AllProposals(gctx)
				} else {
					proposals, err = src.UserProposals(gctx)
				}
				return err
			})
			g.Go(func() error {
				var err error
				leads, err = src.OrganizationLeads(gctx)
				return err
			})
			g.Go(func() error {
				var err error
				products, err = src.Products(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return nil, err
			}
			return JoinProposals(proposals, leads, products), nil
		},
		Searchable: func(r ProposalRow) []string {
			return []string{r.LeadName, r.ProductName, r.ProposalTarget, r.AdditionalInformation}
		},
		Actions:      Actions{View: true},
		Columns:      []string{"leadName", "productName", "proposedPrice", "installationPrice", "proposalDate"},
		EmptyMessage: "No proposals found",
	}
}

// JoinProposals annotates proposals with lead and product names.
func JoinProposals(proposals []crmapi.Proposal, leads []crmapi.Lead, products []crmapi.Product) []ProposalRow {
	leadNames := make(map[string]string, len(leads))
	for _, l := range leads {
		name := l.FirstName
		if name == "" {
			name = l.BusinessName
		}
		leadNames[l.ID] = name
	}
	productNames := make(map[string]string, len(products))
	for _, p := range products {
		productNames[p.ID] = p.Name
	}
	rows := make([]ProposalRow, 0, len(proposals))
	for _, p := range proposals {
		row := ProposalRow{Proposal: p, LeadName: leadNames[p.LeadID], ProductName: productNames[p.ProductID]}
		if row.LeadName == "" {
			row.LeadName = UnknownLead
		}
		if row.ProductName == "" {
			row.ProductName = UnknownProduct
		}
		rows = append(rows, row)
	}
	return rows
}

// VisitsVariant lists role-scoped visits.
func VisitsVariant(src Source) Variant[crmapi.Visit] {
	return Variant[crmapi.Visit]{
		Kind: KindVisits,
		Fetch: func(ctx context.Context, id tenancy.Identity) ([]crmapi.Visit, error) {
			if id.Role.Elevated() {
				return src.AllVisits(ctx)
			}
			return src.UserVisits(ctx)
		},
		Searchable: func(v crmapi.Visit) []string {
			return []string{v.VisitName(), v.Location, v.VisitType}
		},
		Actions:      Actions{View: true, Delete: true},
		Columns:      []string{"name", "location", "visitType", "visitDate"},
		EmptyMessage: "No visits found",
	}
}

// EmployeesVariant lists members of the organization, excluding owners.
func EmployeesVariant(src Source) Variant[EmployeeRow] {
	return Variant[EmployeeRow]{
		Kind: KindEmployees,
		Fetch: func(ctx context.Context, id tenancy.Identity) ([]EmployeeRow, error) {
			members, err := src.Users(ctx)
			if err != nil {
				return nil, err
			}
			rows := make([]EmployeeRow, 0, len(members))
			for _, m := range members {
				role := m.RoleIn(id.OrganizationID)
				if tenancy.ParseRole(role) == tenancy.RoleOwner {
					continue
				}
				depts := make([]string, 0, len(m.UserDepartments))
				for _, ud := range m.UserDepartments {
					if ud.Department != nil {
						depts = append(depts, ud.Department.Name)
					}
				}
				rows = append(rows, EmployeeRow{Member: m, Role: role, Departments: depts})
			}
			return rows, nil
		},
		Searchable: func(e EmployeeRow) []string {
			return []string{e.FirstName, e.LastName, e.Email}
		},
		Actions:      Actions{Delete: true},
		Columns:      []string{"name", "email", "role", "departments"},
		EmptyMessage: "No employees found",
	}
}

// DepartmentsVariant lists departments with owner-excluded member counts.
func DepartmentsVariant(src Source) Variant[DepartmentRow] {
	return Variant[DepartmentRow]{
		Kind: KindDepartments,
		Fetch: func(ctx context.Context, _ tenancy.Identity) ([]DepartmentRow, error) {
			depts, err := src.Departments(ctx)
			if err != nil {
				return nil, err
			}
			rows := make([]DepartmentRow, 0, len(depts))
			for _, d := range depts {
				count := 0
				for _, ud := range d.UserDepartments {
					if tenancy.ParseRole(ud.RoleType) != tenancy.RoleOwner {
						count++
					}
				}
				rows = append(rows, DepartmentRow{Department: d, MemberCount: count})
			}
			return rows, nil
		},
		Searchable:   func(d DepartmentRow) []string { return []string{d.Name} },
		Actions:      Actions{View: true, Delete: true},
		Columns:      []string{"name", "description", "memberCount"},
		EmptyMessage: "No departments found",
	}
}

// NewListers builds the service of every page kind.
func NewListers(src Source, cache *Cache, pageSize int) map[Kind]Lister {
	listers := []Lister{
		NewService(ProspectsVariant(src), cache, pageSize),
		NewService(LeadsVariant(src), cache, pageSize),
		NewService(ClientsVariant(src), cache, pageSize),
		NewService(ProductsVariant(src), cache, pageSize),
		NewService(ProposalsVariant(src), cache, pageSize),
		NewService(VisitsVariant(src), cache, pageSize),
		NewService(EmployeesVariant(src), cache, pageSize),
		NewService(DepartmentsVariant(src), cache, pageSize),
	}
	out := make(map[Kind]Lister, len(listers))
	for _, l := range listers {
		out[l.Kind()] = l
	}
	return out
}

// ParsePage parses a 1-based page number; invalid input yields 1.
func ParsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (k Kind) String() string { return string(k) }

// ParseKind validates a page kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindProspects, KindLeads, KindClients, KindProducts, KindProposals, KindVisits, KindEmployees, KindDepartments:
		return k, nil
	default:
		return "", fmt.Errorf("listing: unknown page kind %q", s)
	}
}
