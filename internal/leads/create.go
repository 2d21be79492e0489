package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/forms"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

// CreateForm adds a prospect, or a client when AsClient is set. HOME leads
// are individuals; ENTERPRISE and SOLUTIONS leads are businesses with a
// contact person.
type CreateForm struct {
	BusinessType           crmapi.BusinessType `json:"businessType" validate:"required,oneof=HOME ENTERPRISE SOLUTIONS"`
	AsClient               bool                `json:"asClient"`
	FirstName              string              `json:"firstName" validate:"required_if=BusinessType HOME"`
	MiddleName             string              `json:"middleName"`
	LastName               string              `json:"lastName" validate:"required_if=BusinessType HOME"`
	Title                  string              `json:"title"`
	BusinessName           string              `json:"businessName" validate:"required_unless=BusinessType HOME"`
	ContactPerson          string              `json:"contactPerson" validate:"required_unless=BusinessType HOME"`
	SecondaryContactPerson string              `json:"secondaryContactPerson"`
	SecondaryContactNumber string              `json:"secondaryContactNumber"`
	SecondaryContactEmail  string              `json:"secondaryContactEmail" validate:"omitempty,email"`
	PreferredContactMethod string              `json:"preferredContactMethod"`
	LeadEmail              string              `json:"leadEmail" validate:"omitempty,email"`
	NumberOfBranches       *int                `json:"numberOfBranches" validate:"omitempty,min=1"`
	PhoneNumber            string              `json:"phoneNumber"`
	Location               string              `json:"location"`
	Products               []string            `json:"products"`
	Description            string              `json:"description"`
}

var createMessages = map[string]string{
	"businessType":          "Choose HOME, ENTERPRISE or SOLUTIONS",
	"firstName":             "First name is required",
	"lastName":              "Last name is required",
	"businessName":          "Business name is required",
	"contactPerson":         "Contact person is required",
	"secondaryContactEmail": "Enter a valid email",
	"leadEmail":             "Enter a valid email",
	"numberOfBranches":      "Must be at least 1",
}

// Status is the initial funnel stage of the created lead.
func (f CreateForm) Status() crmapi.LeadStatus {
	if f.AsClient {
		return crmapi.StatusClosed
	}
	return crmapi.StatusProspect
}

func (f CreateForm) request() crmapi.CreateLeadRequest {
	req := crmapi.CreateLeadRequest{
		Title:                  strings.TrimSpace(f.Title),
		BusinessType:           f.BusinessType,
		LeadStatus:             f.Status(),
		SecondaryContactPerson: f.SecondaryContactPerson,
		SecondaryContactNumber: f.SecondaryContactNumber,
		SecondaryContactEmail:  f.SecondaryContactEmail,
		PreferredContactMethod: f.PreferredContactMethod,
		LeadEmail:              strings.TrimSpace(f.LeadEmail),
		PhoneNumber:            strings.TrimSpace(f.PhoneNumber),
		Location:               f.Location,
		Products:               f.Products,
		Description:            f.Description,
	}
	if f.BusinessType == crmapi.BusinessHome {
		req.FirstName = strings.TrimSpace(f.FirstName)
		req.MiddleName = strings.TrimSpace(f.MiddleName)
		req.LastName = strings.TrimSpace(f.LastName)
	} else {
		req.BusinessName = strings.TrimSpace(f.BusinessName)
		req.ContactPerson = strings.TrimSpace(f.ContactPerson)
		req.NumberOfBranches = f.NumberOfBranches
	}
	return req
}

// Create validates the form and asks the backend to store the lead.
func (s *Service) Create(ctx context.Context, id tenancy.Identity, f CreateForm) error {
	f.BusinessType = crmapi.ParseBusinessType(string(f.BusinessType))
	if err := s.validate.Struct(f); err != nil {
		fields := forms.Fields(err, createMessages)
		if fields == nil {
			return fieldError("form", err.Error())
		}
		return &ValidationError{Fields: fields}
	}

	req := f.request()
	if err := s.backend.CreateLead(ctx, req); err != nil {
		return err
	}
	name := req.BusinessName
	if name == "" {
		name = req.FirstName
	}
	// The backend does not echo the new id, so the event carries none.
	s.publish(ctx, events.TypeLeadCreated, id.OrganizationID, "", id.UserID, events.LeadCreatedV1{
		Status:       string(req.LeadStatus),
		BusinessType: string(req.BusinessType),
		DisplayName:  name,
	})
	s.logger.Info("lead created", "org_id", id.OrganizationID, "status", req.LeadStatus, "business_type", req.BusinessType)
	return nil
}

// Delete removes a lead for good. Only owners and admins may delete, and
// confirm must repeat the lead id.
func (s *Service) Delete(ctx context.Context, id tenancy.Identity, leadID, confirm string) error {
	if !id.Role.Elevated() {
		return ErrForbidden
	}
	if confirm != leadID {
		return ErrConfirmationMissing
	}
	lead, err := s.backend.Lead(ctx, leadID)
	if err != nil {
		if errors.Is(err, crmapi.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
		}
		return err
	}
	if err := s.backend.DeleteLead(ctx, leadID); err != nil {
		return err
	}
	s.publish(ctx, events.TypeLeadDeleted, id.OrganizationID, leadID, id.UserID, events.LeadDeletedV1{
		Status:      string(lead.LeadStatus),
		DisplayName: lead.DisplayName(),
	})
	s.logger.Info("lead deleted", "lead_id", leadID, "org_id", id.OrganizationID)
	return nil
}
