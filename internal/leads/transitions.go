package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/forms"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

// Submission is the body of a status change. Target selects exactly one of
// LeadForm, QualifiedForm or ClosedForm; the sale fields belong to
// ClosedForm only.
type Submission struct {
	Target      crmapi.LeadStatus `json:"target"`
	Description string            `json:"description"`
	ProductID   *string           `json:"productId,omitempty"`
	Quantity    *int              `json:"quantity,omitempty"`
	UnitPrice   *crmapi.Money     `json:"unitPrice,omitempty"`
}

// LeadForm moves a prospect to LEAD.
type LeadForm struct {
	Description string `json:"description" validate:"required,min=2"`
}

// QualifiedForm moves a lead to QUALIFIED.
type QualifiedForm struct {
	Description string `json:"description" validate:"required,min=2"`
}

// ClosedForm records a sale, which closes the lead.
type ClosedForm struct {
	Description string       `json:"description" validate:"required,min=2"`
	ProductID   string       `json:"productId" validate:"required"`
	Quantity    int          `json:"quantity" validate:"min=1"`
	UnitPrice   crmapi.Money `json:"unitPrice" validate:"min=1"`
}

var fieldMessages = map[string]string{
	"description": "Required",
	"productId":   "Please select a product",
	"quantity":    "Quantity must be at least 1",
	"unitPrice":   "Unit price must be at least 1",
}

// TransitionResult describes a completed status change.
type TransitionResult struct {
	LeadID string              `json:"leadId"`
	From   crmapi.LeadStatus   `json:"from"`
	To     crmapi.LeadStatus   `json:"to"`
	View   View                `json:"view"`
	Next   []crmapi.LeadStatus `json:"transitions"`
}

// form resolves the submission into the selected form, rejecting fields
// that belong to a different one.
func (sub Submission) form() (any, *ValidationError) {
	foreign := map[string]string{}
	if sub.Target != crmapi.StatusClosed {
		if sub.ProductID != nil {
			foreign["productId"] = "Not part of this form"
		}
		if sub.Quantity != nil {
			foreign["quantity"] = "Not part of this form"
		}
		if sub.UnitPrice != nil {
			foreign["unitPrice"] = "Not part of this form"
		}
	}

	var f any
	switch sub.Target {
	case crmapi.StatusLead:
		f = LeadForm{Description: sub.Description}
	case crmapi.StatusQualified:
		f = QualifiedForm{Description: sub.Description}
	case crmapi.StatusClosed:
		cf := ClosedForm{Description: sub.Description}
		if sub.ProductID != nil {
			cf.ProductID = *sub.ProductID
		}
		if sub.Quantity != nil {
			cf.Quantity = *sub.Quantity
		}
		if sub.UnitPrice != nil {
			cf.UnitPrice = *sub.UnitPrice
		}
		f = cf
	default:
		foreign["target"] = "Choose LEAD, QUALIFIED or CLOSED"
	}
	if len(foreign) > 0 {
		return nil, &ValidationError{Fields: foreign}
	}
	return f, nil
}

func (s *Service) check(f any) *ValidationError {
	err := s.validate.Struct(f)
	if err == nil {
		return nil
	}
	fields := forms.Fields(err, fieldMessages)
	if fields == nil {
		return fieldError("form", err.Error())
	}
	return &ValidationError{Fields: fields}
}

// Validate checks a submission without touching the backend.
func (s *Service) Validate(sub Submission) (any, error) {
	f, verr := sub.form()
	if verr != nil {
		return nil, verr
	}
	if verr := s.check(f); verr != nil {
		return nil, verr
	}
	return f, nil
}

// Transition validates the submission, then moves the lead forward. A
// failure leaves the lead as the backend has it; nothing is rolled back.
func (s *Service) Transition(ctx context.Context, id tenancy.Identity, leadID string, sub Submission) (*TransitionResult, error) {
	target := string(sub.Target)
	f, err := s.Validate(sub)
	if err != nil {
		s.metrics.ObserveTransition(target, "invalid")
		return nil, err
	}

	lead, err := s.backend.Lead(ctx, leadID)
	if err != nil {
		s.metrics.ObserveTransition(target, "failed")
		if errors.Is(err, crmapi.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
		}
		return nil, err
	}
	from := lead.LeadStatus
	if !CanTransition(from, sub.Target) {
		s.metrics.ObserveTransition(target, "rejected")
		return nil, fmt.Errorf("%w: %s to %s", ErrNotForward, from, sub.Target)
	}

	switch form := f.(type) {
	case LeadForm:
		err = s.updateStatus(ctx, id, lead, sub.Target, form.Description)
	case QualifiedForm:
		err = s.updateStatus(ctx, id, lead, sub.Target, form.Description)
	case ClosedForm:
		err = s.recordSale(ctx, id, lead, form)
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.metrics.ObserveTransition(target, "invalid")
		} else {
			s.metrics.ObserveTransition(target, "failed")
		}
		return nil, err
	}

	s.metrics.ObserveTransition(target, "ok")
	s.logger.Info("lead transitioned", "lead_id", leadID, "from", from, "to", sub.Target, "org_id", id.OrganizationID)
	return &TransitionResult{
		LeadID: leadID,
		From:   from,
		To:     sub.Target,
		View:   ViewFor(sub.Target),
		Next:   Targets(sub.Target),
	}, nil
}

func (s *Service) updateStatus(ctx context.Context, id tenancy.Identity, lead *crmapi.Lead, to crmapi.LeadStatus, description string) error {
	if err := s.backend.UpdateLeadStatus(ctx, lead.ID, crmapi.StatusUpdate{Description: description, LeadStatus: to}); err != nil {
		return err
	}
	s.publish(ctx, events.TypeLeadStatusChanged, id.OrganizationID, lead.ID, id.UserID, events.LeadStatusChangedV1{
		From:        string(lead.LeadStatus),
		To:          string(to),
		Description: description,
	})
	return nil
}

// recordSale requires the product to belong to the lead's business type
// category before posting the sale.
func (s *Service) recordSale(ctx context.Context, id tenancy.Identity, lead *crmapi.Lead, form ClosedForm) error {
	product, err := s.backend.Product(ctx, form.ProductID)
	if errors.Is(err, crmapi.ErrNotFound) {
		return fieldError("productId", "Please select a product")
	}
	if err != nil {
		return err
	}
	if product.Category != lead.BusinessType {
		return fieldError("productId", fmt.Sprintf("Choose a %s product", lead.BusinessType))
	}

	sale := crmapi.SaleRequest{
		Description: form.Description,
		ProductID:   form.ProductID,
		Quantity:    form.Quantity,
		UnitPrice:   form.UnitPrice,
	}
	if err := s.backend.CreateSale(ctx, lead.ID, sale); err != nil {
		return err
	}

	total := form.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(form.Quantity)))
	s.publish(ctx, events.TypeSaleRecorded, id.OrganizationID, lead.ID, id.UserID, events.SaleRecordedV1{
		LeadName:     lead.DisplayName(),
		BusinessType: string(lead.BusinessType),
		From:         string(lead.LeadStatus),
		ProductID:    product.ID,
		ProductName:  product.Name,
		Quantity:     form.Quantity,
		UnitPrice:    form.UnitPrice.StringFixed(2),
		Total:        total.StringFixed(2),
		Description:  form.Description,
	})
	return nil
}
