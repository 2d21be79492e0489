package records

import (
	"strings"
	"time"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
)

// dateLayout is how the console submits calendar dates.
const dateLayout = "2006-01-02"

type ProductForm struct {
	Name        string              `json:"name" validate:"required,min=2"`
	UnitPrice   crmapi.Money        `json:"unitPrice" validate:"min=1"`
	Category    crmapi.BusinessType `json:"category" validate:"required,oneof=HOME ENTERPRISE SOLUTIONS"`
	Description string              `json:"description" validate:"required,min=2"`
}

var productMessages = map[string]string{
	"name":        "Name must be at least 2 characters",
	"unitPrice":   "Unit price must be at least 1",
	"category":    "Choose HOME, ENTERPRISE or SOLUTIONS",
	"description": "Description must be at least 2 characters",
}

func (f ProductForm) request() crmapi.CreateProductRequest {
	return crmapi.CreateProductRequest{
		Name:        strings.TrimSpace(f.Name),
		UnitPrice:   f.UnitPrice,
		Category:    f.Category,
		Description: strings.TrimSpace(f.Description),
	}
}

type ProposalForm struct {
	LeadID            string        `json:"lead" validate:"required"`
	ProductID         string        `json:"service" validate:"required"`
	ProposedPrice     *crmapi.Money `json:"proposedPrice" validate:"omitempty,min=0"`
	InstallationPrice crmapi.Money  `json:"installationPrice" validate:"min=0"`
	DateSent          string        `json:"dateSent" validate:"required"`
	AdditionalInfo    string        `json:"additionalInfo"`
}

var proposalMessages = map[string]string{
	"lead":              "Lead is required",
	"service":           "Service is required",
	"proposedPrice":     "Monthly cost must be 0 or greater",
	"installationPrice": "Installation fees must be 0 or greater",
	"dateSent":          "Date sent is required",
}

func (f ProposalForm) request() (crmapi.CreateProposalRequest, error) {
	sent, err := parseDate("dateSent", f.DateSent)
	if err != nil {
		return crmapi.CreateProposalRequest{}, err
	}
	return crmapi.CreateProposalRequest{
		LeadID:            f.LeadID,
		ProductID:         f.ProductID,
		ProposedPrice:     f.ProposedPrice,
		InstallationPrice: f.InstallationPrice,
		DateSent:          sent,
		AdditionalInfo:    strings.TrimSpace(f.AdditionalInfo),
	}, nil
}

type VisitForm struct {
	LeadID                string              `json:"leadId" validate:"required"`
	VisitDate             string              `json:"visitDate" validate:"required"`
	VisitType             string              `json:"visitType" validate:"required,min=2"`
	Location              string              `json:"location"`
	FirstName             string              `json:"firstName"`
	LeadEmail             string              `json:"leadEmail" validate:"omitempty,email"`
	PhoneNumber           string              `json:"phoneNumber"`
	BusinessType          crmapi.BusinessType `json:"businessType" validate:"omitempty,oneof=HOME ENTERPRISE SOLUTIONS"`
	AdditionalInformation string              `json:"additionalInformation" validate:"required,min=2"`
}

var visitMessages = map[string]string{
	"leadId":                "Lead is required",
	"visitDate":             "Visit date is required",
	"visitType":             "Visit type is required",
	"leadEmail":             "Enter a valid email",
	"businessType":          "Choose HOME, ENTERPRISE or SOLUTIONS",
	"additionalInformation": "Additional information must be at least 2 characters",
}

// normalize trims the text fields and upper-cases the business type so
// "Home" and "HOME" validate alike.
func (f *VisitForm) normalize() {
	f.LeadID = strings.TrimSpace(f.LeadID)
	f.VisitType = strings.TrimSpace(f.VisitType)
	f.LeadEmail = strings.ToLower(strings.TrimSpace(f.LeadEmail))
	f.BusinessType = crmapi.BusinessType(strings.ToUpper(strings.TrimSpace(string(f.BusinessType))))
	f.AdditionalInformation = strings.TrimSpace(f.AdditionalInformation)
}

func (f VisitForm) request() (crmapi.CreateVisitRequest, error) {
	day, err := parseDate("visitDate", f.VisitDate)
	if err != nil {
		return crmapi.CreateVisitRequest{}, err
	}
	return crmapi.CreateVisitRequest{
		LeadID:                f.LeadID,
		VisitDate:             day,
		VisitType:             strings.TrimSpace(f.VisitType),
		Location:              strings.TrimSpace(f.Location),
		FirstName:             strings.TrimSpace(f.FirstName),
		LeadEmail:             f.LeadEmail,
		PhoneNumber:           strings.TrimSpace(f.PhoneNumber),
		BusinessType:          f.BusinessType,
		AdditionalInformation: f.AdditionalInformation,
	}, nil
}

type DepartmentForm struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

var departmentMessages = map[string]string{
	"name":        "Department name is required",
	"description": "Description is required",
}

func (f DepartmentForm) request() crmapi.DepartmentRequest {
	return crmapi.DepartmentRequest{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
	}
}

type AssignForm struct {
	UserID string `json:"userId" validate:"required"`
}

var assignMessages = map[string]string{
	"userId": "Choose a member",
}

type InviteForm struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName" validate:"required,min=2"`
}

func (f *InviteForm) normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
}

var inviteMessages = map[string]string{
	"email":     "Enter a valid email",
	"firstName": "First name must be at least 2 characters",
	"lastName":  "Last name must be at least 2 characters",
}

// parseDate accepts a calendar date or an RFC 3339 timestamp and returns
// the ISO timestamp the backend stores.
func parseDate(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return "", &ValidationError{Fields: map[string]string{field: "Dates look like 2024-07-19"}}
	}
	return t.UTC().Format(time.RFC3339), nil
}
