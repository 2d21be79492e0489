// Package leads routes lead details to their status view and carries leads
// through the funnel.
package leads

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/forms"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/observability/metrics"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// Backend is the part of the CRM client used for lead operations.
type Backend interface {
	Lead(ctx context.Context, leadID string) (*crmapi.Lead, error)
	Products(ctx context.Context) ([]crmapi.Product, error)
	Product(ctx context.Context, productID string) (*crmapi.Product, error)
	CreateLead(ctx context.Context, in crmapi.CreateLeadRequest) error
	UpdateLeadStatus(ctx context.Context, leadID string, in crmapi.StatusUpdate) error
	CreateSale(ctx context.Context, leadID string, in crmapi.SaleRequest) error
	DeleteLead(ctx context.Context, leadID string) error
}

// Publisher announces lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Service implements lead details, transitions, creation and deletion.
type Service struct {
	backend   Backend
	publisher Publisher
	journal   events.Journal
	validate  *validator.Validate
	metrics   *metrics.TransitionMetrics
	logger    *logging.Logger
}

func NewService(backend Backend, publisher Publisher, journal events.Journal, m *metrics.TransitionMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		backend:   backend,
		publisher: publisher,
		journal:   journal,
		validate:  forms.New(),
		metrics:   m,
		logger:    logger,
	}
}

// publish logs rather than returns failures; the backend change already
// happened and cannot be undone.
func (s *Service) publish(ctx context.Context, eventType, orgID, leadID, actorID string, payload any) {
	if s.publisher == nil {
		return
	}
	e, err := events.New(eventType, orgID, leadID, actorID, payload)
	if err != nil {
		s.logger.Error("failed to build lifecycle event", "event_type", eventType, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("lifecycle event delivery incomplete", "event_type", eventType, "lead_id", leadID, "error", err)
	}
}

// History returns the journaled status changes of a lead.
func (s *Service) History(ctx context.Context, orgID, leadID string) ([]events.Transition, error) {
	if orgID == "" {
		return nil, ErrNoOrganization
	}
	if s.journal == nil {
		return []events.Transition{}, nil
	}
	return s.journal.History(ctx, orgID, leadID)
}
