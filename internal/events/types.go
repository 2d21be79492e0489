package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeLeadCreated       = "lead.created.v1"
	TypeLeadStatusChanged = "lead.status_changed.v1"
	TypeLeadDeleted       = "lead.deleted.v1"
	TypeSaleRecorded      = "sale.recorded.v1"
)

// Event is a lifecycle notification scoped to one organization.
type Event struct {
	ID         uuid.UUID       `json:"event_id"`
	Type       string          `json:"event_type"`
	OrgID      string          `json:"org_id"`
	LeadID     string          `json:"lead_id"`
	ActorID    string          `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with a fresh id and the encoded payload.
func New(eventType, orgID, leadID, actorID string, payload any) (Event, error) {
	e := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OrgID:      orgID,
		LeadID:     leadID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("events: marshal payload: %w", err)
		}
		e.Payload = data
	}
	return e, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("events: %s has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("events: decode %s: %w", e.Type, err)
	}
	return nil
}

type LeadCreatedV1 struct {
	Status       string `json:"status"`
	BusinessType string `json:"business_type"`
	DisplayName  string `json:"display_name"`
}

type LeadStatusChangedV1 struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description"`
}

type LeadDeletedV1 struct {
	Status      string `json:"status"`
	DisplayName string `json:"display_name"`
}

type SaleRecordedV1 struct {
	LeadName     string `json:"lead_name"`
	BusinessType string `json:"business_type"`
	From         string `json:"from"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Total        string `json:"total"`
	Description  string `json:"description"`
}
