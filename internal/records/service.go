// Package records manages the catalog, proposals, visits, departments and
// members of an organization.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/forms"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

var ErrNotFound = errors.New("record not found")

// ValidationError carries per-field messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid form: %d field(s)", len(e.Fields))
}

// Backend is the part of the CRM client used for record management.
type Backend interface {
	Product(ctx context.Context, productID string) (*crmapi.Product, error)
	CreateProduct(ctx context.Context, in crmapi.CreateProductRequest) error
	DeleteProduct(ctx context.Context, productID string) error
	Proposal(ctx context.Context, proposalID string) (*crmapi.Proposal, error)
	CreateProposal(ctx context.Context, in crmapi.CreateProposalRequest) error
	Visit(ctx context.Context, visitID string) (*crmapi.Visit, error)
	CreateVisit(ctx context.Context, in crmapi.CreateVisitRequest) error
	Department(ctx context.Context, departmentID string) (*crmapi.Department, error)
	CreateDepartment(ctx context.Context, in crmapi.DepartmentRequest) error
	UpdateDepartment(ctx context.Context, departmentID string, in crmapi.DepartmentRequest) error
	DeleteDepartment(ctx context.Context, departmentID string) error
	AssignDepartment(ctx context.Context, userID, departmentID string) error
	InviteUser(ctx context.Context, in crmapi.InviteRequest) error
	DeleteMember(ctx context.Context, memberID string) error
}

// Invalidator drops the cached list snapshots of an organization.
type Invalidator interface {
	InvalidateOrg(ctx context.Context, orgID string) error
}

type Service struct {
	backend     Backend
	invalidator Invalidator
	validate    *validator.Validate
	logger      *logging.Logger
}

func NewService(backend Backend, invalidator Invalidator, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		backend:     backend,
		invalidator: invalidator,
		validate:    forms.New(),
		logger:      logger,
	}
}

func (s *Service) check(form any, messages map[string]string) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	fields := forms.Fields(err, messages)
	if fields == nil {
		return &ValidationError{Fields: map[string]string{"form": err.Error()}}
	}
	return &ValidationError{Fields: fields}
}

// mutated drops the organization's list snapshots after a write.
func (s *Service) mutated(ctx context.Context, id tenancy.Identity, op string) {
	s.logger.Info("record changed", "op", op, "org_id", id.OrganizationID, "user_id", id.UserID)
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateOrg(ctx, id.OrganizationID); err != nil {
		s.logger.Warn("failed to invalidate list snapshots", "op", op, "org_id", id.OrganizationID, "error", err)
	}
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, crmapi.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return err
}

func (s *Service) Product(ctx context.Context, productID string) (*crmapi.Product, error) {
	p, err := s.backend.Product(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID)
	}
	return p, nil
}

func (s *Service) Proposal(ctx context.Context, proposalID string) (*crmapi.Proposal, error) {
	p, err := s.backend.Proposal(ctx, proposalID)
	if err != nil {
		return nil, notFound(err, "proposal", proposalID)
	}
	return p, nil
}

func (s *Service) Visit(ctx context.Context, visitID string) (*crmapi.Visit, error) {
	v, err := s.backend.Visit(ctx, visitID)
	if err != nil {
		return nil, notFound(err, "visit", visitID)
	}
	return v, nil
}

func (s *Service) Department(ctx context.Context, departmentID string) (*crmapi.Department, error) {
	d, err := s.backend.Department(ctx, departmentID)
	if err != nil {
		return nil, notFound(err, "department", departmentID)
	}
	return d, nil
}

// CreateProduct adds a catalog entry.
func (s *Service) CreateProduct(ctx context.Context, id tenancy.Identity, f ProductForm) error {
	f.Category = crmapi.ParseBusinessType(string(f.Category))
	if err := s.check(f, productMessages); err != nil {
		return err
	}
	if err := s.backend.CreateProduct(ctx, f.request()); err != nil {
		return err
	}
	s.mutated(ctx, id, "products.create")
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id tenancy.Identity, productID string) error {
	if err := s.backend.DeleteProduct(ctx, productID); err != nil {
		return notFound(err, "product", productID)
	}
	s.mutated(ctx, id, "products.delete")
	return nil
}

// CreateProposal records a priced offer to a lead.
func (s *Service) CreateProposal(ctx context.Context, id tenancy.Identity, f ProposalForm) error {
	if err := s.check(f, proposalMessages); err != nil {
		return err
	}
	req, err := f.request()
	if err != nil {
		return err
	}
	if err := s.backend.CreateProposal(ctx, req); err != nil {
		return err
	}
	s.mutated(ctx, id, "proposals.create")
	return nil
}

// CreateVisit records a visit to a lead.
func (s *Service) CreateVisit(ctx context.Context, id tenancy.Identity, f VisitForm) error {
	f.normalize()
	if err := s.check(f, visitMessages); err != nil {
		return err
	}
	req, err := f.request()
	if err != nil {
		return err
	}
	if err := s.backend.CreateVisit(ctx, req); err != nil {
		return err
	}
	s.mutated(ctx, id, "visits.create")
	return nil
}

func (s *Service) CreateDepartment(ctx context.Context, id tenancy.Identity, f DepartmentForm) error {
	if err := s.check(f, departmentMessages); err != nil {
		return err
	}
	if err := s.backend.CreateDepartment(ctx, f.request()); err != nil {
		return err
	}
	s.mutated(ctx, id, "departments.create")
	return nil
}

func (s *Service) UpdateDepartment(ctx context.Context, id tenancy.Identity, departmentID string, f DepartmentForm) error {
	if err := s.check(f, departmentMessages); err != nil {
		return err
	}
	if err := s.backend.UpdateDepartment(ctx, departmentID, f.request()); err != nil {
		return notFound(err, "department", departmentID)
	}
	s.mutated(ctx, id, "departments.update")
	return nil
}

func (s *Service) DeleteDepartment(ctx context.Context, id tenancy.Identity, departmentID string) error {
	if err := s.backend.DeleteDepartment(ctx, departmentID); err != nil {
		return notFound(err, "department", departmentID)
	}
	s.mutated(ctx, id, "departments.delete")
	return nil
}

// AssignDepartment adds a member to a department.
func (s *Service) AssignDepartment(ctx context.Context, id tenancy.Identity, departmentID string, f AssignForm) error {
	if err := s.check(f, assignMessages); err != nil {
		return err
	}
	if err := s.backend.AssignDepartment(ctx, f.UserID, departmentID); err != nil {
		return notFound(err, "department", departmentID)
	}
	s.mutated(ctx, id, "departments.assign")
	return nil
}

// InviteMember asks the backend to email an invitation to join the
// organization.
func (s *Service) InviteMember(ctx context.Context, id tenancy.Identity, f InviteForm) error {
	f.normalize()
	if err := s.check(f, inviteMessages); err != nil {
		return err
	}
	req := crmapi.InviteRequest{Email: f.Email, FirstName: f.FirstName, LastName: f.LastName}
	if err := s.backend.InviteUser(ctx, req); err != nil {
		return err
	}
	s.mutated(ctx, id, "members.invite")
	return nil
}

// DeleteMember removes a member. Nobody removes themselves.
func (s *Service) DeleteMember(ctx context.Context, id tenancy.Identity, memberID string) error {
	if memberID == id.UserID {
		return &ValidationError{Fields: map[string]string{"memberId": "You cannot remove yourself"}}
	}
	if err := s.backend.DeleteMember(ctx, memberID); err != nil {
		return notFound(err, "member", memberID)
	}
	s.mutated(ctx, id, "members.delete")
	return nil
}
