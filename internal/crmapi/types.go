package crmapi

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LeadStatus is a stage of the sales funnel.
type LeadStatus string

const (
	StatusProspect  LeadStatus = "PROSPECT"
	StatusLead      LeadStatus = "LEAD"
	StatusQualified LeadStatus = "QUALIFIED"
	StatusClosed    LeadStatus = "CLOSED"
)

// BusinessType classifies a lead and the product categories offered to it.
type BusinessType string

const (
	BusinessHome       BusinessType = "HOME"
	BusinessEnterprise BusinessType = "ENTERPRISE"
	BusinessSolutions  BusinessType = "SOLUTIONS"
)

// ParseBusinessType normalizes user input; unknown values yield "".
func ParseBusinessType(s string) BusinessType {
	switch BusinessType(strings.ToUpper(strings.TrimSpace(s))) {
	case BusinessHome:
		return BusinessHome
	case BusinessEnterprise:
		return BusinessEnterprise
	case BusinessSolutions:
		return BusinessSolutions
	default:
		return ""
	}
}

// Money is a decimal amount that travels as a JSON number.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a float amount.
func NewMoney(v float64) Money {
	return Money{Decimal: decimal.NewFromFloat(v)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// Lead is a customer record as stored by the backend.
type Lead struct {
	ID                     string        `json:"id"`
	FirstName              string        `json:"firstName"`
	MiddleName             string        `json:"middleName,omitempty"`
	LastName               string        `json:"lastName"`
	Title                  string        `json:"title,omitempty"`
	BusinessName           string        `json:"businessName,omitempty"`
	ContactPerson          string        `json:"contactPerson,omitempty"`
	SecondaryContactPerson string        `json:"secondaryContactPerson,omitempty"`
	SecondaryContactNumber string        `json:"secondaryContactNumber,omitempty"`
	SecondaryContactEmail  string        `json:"secondaryContactEmail,omitempty"`
	LeadEmail              string        `json:"leadEmail"`
	PhoneNumber            string        `json:"phoneNumber"`
	Coordinates            []float64     `json:"coordinates,omitempty"`
	PreferredContactMethod string        `json:"preferredContactMethod,omitempty"`
	NumberOfBranches       *int          `json:"numberOfBranches,omitempty"`
	LeadStatus             LeadStatus    `json:"leadStatus"`
	BusinessType           BusinessType  `json:"businessType"`
	Location               string        `json:"location"`
	Description            string        `json:"description"`
	UserID                 string        `json:"userId"`
	OrganizationID         string        `json:"organizationId"`
	Products               []LeadProduct `json:"products"`
	CreatedAt              time.Time     `json:"createdAt"`
	UpdatedAt              time.Time     `json:"updatedAt"`
}

// DisplayName prefers the business name over the individual's first name.
func (l Lead) DisplayName() string {
	if strings.TrimSpace(l.BusinessName) != "" {
		return l.BusinessName
	}
	return l.FirstName
}

// LeadProduct links a lead to a catalog product by id only.
type LeadProduct struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"leadId"`
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is an entry of the organization catalog.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    BusinessType `json:"category"`
	UnitPrice   Money        `json:"unitPrice"`
	Description string       `json:"description,omitempty"`
}

// CreateLeadRequest is the body of leads/create-lead.
type CreateLeadRequest struct {
	FirstName              string       `json:"firstName,omitempty"`
	MiddleName             string       `json:"middleName,omitempty"`
	LastName               string       `json:"lastName,omitempty"`
	Title                  string       `json:"title,omitempty"`
	BusinessType           BusinessType `json:"businessType"`
	BusinessName           string       `json:"businessName,omitempty"`
	LeadStatus             LeadStatus   `json:"leadStatus"`
	ContactPerson          string       `json:"contactPerson,omitempty"`
	SecondaryContactPerson string       `json:"secondaryContactPerson,omitempty"`
	SecondaryContactNumber string       `json:"secondaryContactNumber,omitempty"`
	SecondaryContactEmail  string       `json:"secondaryContactEmail,omitempty"`
	PreferredContactMethod string       `json:"preferredContactMethod,omitempty"`
	LeadEmail              string       `json:"leadEmail,omitempty"`
	NumberOfBranches       *int         `json:"numberOfBranches,omitempty"`
	PhoneNumber            string       `json:"phoneNumber,omitempty"`
	Location               string       `json:"location,omitempty"`
	Products               []string     `json:"products,omitempty"`
	Description            string       `json:"description,omitempty"`
}

// StatusUpdate is the body of leads/update-lead/{id}.
type StatusUpdate struct {
	Description string     `json:"description"`
	LeadStatus  LeadStatus `json:"leadStatus"`
}

// SaleRequest is the body of sales/create-sale/{leadId}.
type SaleRequest struct {
	Description string `json:"description"`
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
}

// CreateProductRequest is the body of products/create-product.
type CreateProductRequest struct {
	Name        string       `json:"name"`
	UnitPrice   Money        `json:"unitPrice"`
	Category    BusinessType `json:"category"`
	Description string       `json:"description"`
}

// Proposal is a priced offer made to a lead.
type Proposal struct {
	ID                    string    `json:"id"`
	LeadID                string    `json:"leadId"`
	ProductID             string    `json:"productId"`
	ProposedPrice         *Money    `json:"proposedPrice"`
	InstallationPrice     Money     `json:"installationPrice"`
	UserID                string    `json:"userId"`
	OrganizationID        string    `json:"organizationId"`
	ProposalTarget        string    `json:"proposalTarget,omitempty"`
	AdditionalInformation string    `json:"additionalInformation"`
	ProposalDate          time.Time `json:"proposalDate"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// CreateProposalRequest is the body of proposals/create-proposal.
type CreateProposalRequest struct {
	LeadID            string `json:"lead"`
	ProductID         string `json:"service"`
	ProposedPrice     *Money `json:"proposedPrice,omitempty"`
	InstallationPrice Money  `json:"installationPrice"`
	DateSent          string `json:"dateSent"`
	AdditionalInfo    string `json:"additionalInfo,omitempty"`
}

// Visit is a recorded sales visit to a lead.
type Visit struct {
	ID                    string    `json:"id"`
	LeadID                string    `json:"leadId"`
	UserID                string    `json:"userId"`
	OrganizationID        string    `json:"organizationId"`
	FirstName             string    `json:"firstName,omitempty"`
	BusinessName          string    `json:"businessName,omitempty"`
	Location              string    `json:"location"`
	VisitType             string    `json:"visitType"`
	VisitDate             time.Time `json:"visitDate"`
	AdditionalInformation string    `json:"additionalInformation,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

// VisitName prefers the individual's first name, as the visits table does.
func (v Visit) VisitName() string {
	if strings.TrimSpace(v.FirstName) != "" {
		return v.FirstName
	}
	return v.BusinessName
}

// CreateVisitRequest is the body of visits/create-visit.
type CreateVisitRequest struct {
	LeadID                string       `json:"leadId"`
	VisitDate             string       `json:"visitDate"`
	VisitType             string       `json:"visitType"`
	Location              string       `json:"location"`
	FirstName             string       `json:"firstName,omitempty"`
	LeadEmail             string       `json:"leadEmail,omitempty"`
	PhoneNumber           string       `json:"phoneNumber,omitempty"`
	BusinessType          BusinessType `json:"businessType,omitempty"`
	AdditionalInformation string       `json:"additionalInformation,omitempty"`
}

// Department groups organization members.
type Department struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	OrganizationID  string           `json:"organizationId"`
	UserDepartments []UserDepartment `json:"userDepartments"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// UserDepartment is a membership of a user in a department.
type UserDepartment struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	DepartmentID string `json:"departmentId"`
	RoleType     string `json:"roleType"`
	Department   *struct {
		Name string `json:"name"`
	} `json:"department,omitempty"`
}

// DepartmentRequest is the body of department create/update.
type DepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Member is an organization user.
type Member struct {
	ID                string             `json:"id"`
	FirstName         string             `json:"firstName"`
	LastName          string             `json:"lastName"`
	Email             string             `json:"email"`
	PhoneNumber       string             `json:"phoneNumber,omitempty"`
	UserOrganizations []UserOrganization `json:"userOrganizations"`
	UserDepartments   []UserDepartment   `json:"userDepartments,omitempty"`
}

// RoleIn returns the member's user type in orgID, or "" when not a member.
func (m Member) RoleIn(orgID string) string {
	for _, uo := range m.UserOrganizations {
		if uo.OrganizationID == orgID {
			return uo.UserType
		}
	}
	return ""
}

// UserOrganization is a user's membership (and role) in an organization.
type UserOrganization struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	UserType       string `json:"userType"`
}

// Organization is a tenant the signed-in user belongs to.
type Organization struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	OrganizationEmail string             `json:"organizationEmail,omitempty"`
	UserOrganizations []UserOrganization `json:"userOrganizations"`
}

// MembershipOf returns the membership held by userID, if any.
func (o Organization) MembershipOf(userID string) (UserOrganization, bool) {
	for _, uo := range o.UserOrganizations {
		if uo.UserID == userID {
			return uo, true
		}
	}
	return UserOrganization{}, false
}

// InviteRequest is the body of auth/invite-user.
type InviteRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Credentials is the body of auth/login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is what auth/login returns for valid credentials.
type LoginResult struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// LoginUser is the user part of a login result.
type LoginUser struct {
	ID                string             `json:"id"`
	Email             string             `json:"email"`
	OrganizationID    string             `json:"organizationId"`
	UserOrganizations []UserOrganization `json:"userOrganizations"`
}

// MonthlySales is a sales total for one calendar month.
type MonthlySales struct {
	Month      int     `json:"month"`
	Year       int     `json:"year"`
	TotalSales float64 `json:"totalSales"`
}

// YearlySales is a sales total for one year.
type YearlySales struct {
	Year       int     `json:"year"`
	TotalSales float64 `json:"totalSales"`
}

// TopProduct is a best selling product entry.
type TopProduct struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	TotalPrice  float64 `json:"totalPrice"`
}

// LeadSegmentation counts leads per funnel stage.
type LeadSegmentation struct {
	Leads     int `json:"leads"`
	Qualified int `json:"qualified"`
	Prospects int `json:"prospects"`
	Closed    int `json:"closed"`
}

// Dashboard is the server-computed sales aggregate.
type Dashboard struct {
	TotalSales        float64          `json:"totalSales"`
	TotalSalesCount   int              `json:"totalSalesCount"`
	TopProducts       []TopProduct     `json:"topProducts,omitempty"`
	SalesByMonth      []MonthlySales   `json:"salesByMonth"`
	CurrentMonthSales MonthlySales     `json:"currentMonthSales"`
	SalesByYear       []YearlySales    `json:"salesByYear"`
	LeadSegmentation  LeadSegmentation `json:"leadSegmentation"`
	ConversionRate    struct {
		ConversionRate float64 `json:"conversionRate"`
	} `json:"conversionRate"`
}

// Targets are the monthly goals set for a sales user.
type Targets struct {
	Sales          float64 `json:"sales"`
	QualifiedLeads int     `json:"qualifiedLeads"`
	Visits         int     `json:"visits"`
	Proposals      int     `json:"proposals"`
}

// PercentageCompletion is achievement against each target.
type PercentageCompletion struct {
	Proposals      float64 `json:"proposals"`
	Sales          float64 `json:"sales"`
	QualifiedLeads float64 `json:"qualifiedLeads"`
	Visits         float64 `json:"visits"`
}

// Report is a user's sales report for a month.
type Report struct {
	Proposals            int                  `json:"proposals"`
	Visits               int                  `json:"visits"`
	QualifiedLeads       int                  `json:"qualifiedLeads"`
	PercentageCompletion PercentageCompletion `json:"percentageCompletion"`
	Targets              Targets              `json:"targets"`
	Sales                MonthlySales         `json:"sales"`
}

// SetTargetsRequest is the body of targets/set-targets.
type SetTargetsRequest struct {
	UserID string `json:"userId"`
	Targets
}
