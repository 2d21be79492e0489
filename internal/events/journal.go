package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Transition is one journaled lifecycle change of a lead.
type Transition struct {
	ID          uuid.UUID `json:"id"`
	OrgID       string    `json:"orgId"`
	LeadID      string    `json:"leadId"`
	EventType   string    `json:"eventType"`
	FromStatus  string    `json:"fromStatus,omitempty"`
	ToStatus    string    `json:"toStatus,omitempty"`
	Description string    `json:"description,omitempty"`
	ActorID     string    `json:"actorId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Journal persists the status history of leads.
type Journal interface {
	Record(ctx context.Context, t Transition) error
	History(ctx context.Context, orgID, leadID string) ([]Transition, error)
}

// TransitionFrom maps a lifecycle event to its journal entry.
func TransitionFrom(e Event) (Transition, error) {
	t := Transition{
		ID:         e.ID,
		OrgID:      e.OrgID,
		LeadID:     e.LeadID,
		EventType:  e.Type,
		ActorID:    e.ActorID,
		OccurredAt: e.OccurredAt,
	}
	switch e.Type {
	case TypeLeadStatusChanged:
		var p LeadStatusChangedV1
		if err := e.Decode(&p); err != nil {
			return Transition{}, err
		}
		t.FromStatus, t.ToStatus, t.Description = p.From, p.To, p.Description
	case TypeSaleRecorded:
		var p SaleRecordedV1
		if err := e.Decode(&p); err != nil {
			return Transition{}, err
		}
		t.FromStatus, t.ToStatus, t.Description = p.From, "CLOSED", p.Description
	case TypeLeadCreated:
		var p LeadCreatedV1
		if err := e.Decode(&p); err != nil {
			return Transition{}, err
		}
		t.ToStatus = p.Status
	case TypeLeadDeleted:
		var p LeadDeletedV1
		if err := e.Decode(&p); err != nil {
			return Transition{}, err
		}
		t.FromStatus = p.Status
	default:
		return Transition{}, fmt.Errorf("events: %s is not journaled", e.Type)
	}
	return t, nil
}

// JournalSubscriber records every lifecycle event in j.
func JournalSubscriber(j Journal) Handler {
	return func(ctx context.Context, e Event) error {
		t, err := TransitionFrom(e)
		if err != nil {
			return err
		}
		return j.Record(ctx, t)
	}
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresJournal stores transitions in the lead_transitions table.
type PostgresJournal struct {
	pool rowQuerier
}

func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &PostgresJournal{pool: pool}
}

func newPostgresJournalWithExec(exec rowQuerier) *PostgresJournal {
	if exec == nil {
		panic("events: exec required")
	}
	return &PostgresJournal{pool: exec}
}

func (j *PostgresJournal) Record(ctx context.Context, t Transition) error {
	query := `
		INSERT INTO lead_transitions (id, org_id, lead_id, event_type, from_status, to_status, description, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := j.pool.Exec(ctx, query, t.ID, t.OrgID, t.LeadID, t.EventType, t.FromStatus, t.ToStatus, t.Description, t.ActorID, t.OccurredAt); err != nil {
		return fmt.Errorf("events: record transition: %w", err)
	}
	return nil
}

func (j *PostgresJournal) History(ctx context.Context, orgID, leadID string) ([]Transition, error) {
	query := `
		SELECT id, org_id, lead_id, event_type, from_status, to_status, description, actor_id, occurred_at
		FROM lead_transitions
		WHERE org_id = $1 AND lead_id = $2
		ORDER BY occurred_at
	`
	rows, err := j.pool.Query(ctx, query, orgID, leadID)
	if err != nil {
		return nil, fmt.Errorf("events: query history: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.ID, &t.OrgID, &t.LeadID, &t.EventType, &t.FromStatus, &t.ToStatus, &t.Description, &t.ActorID, &t.OccurredAt); err != nil {
			return nil, fmt.Errorf("events: scan transition: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MemoryJournal keeps transitions in process.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string][]Transition
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string][]Transition)}
}

func (j *MemoryJournal) Record(_ context.Context, t Transition) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := t.OrgID + "/" + t.LeadID
	for _, existing := range j.entries[key] {
		if existing.ID == t.ID {
			return nil
		}
	}
	j.entries[key] = append(j.entries[key], t)
	return nil
}

func (j *MemoryJournal) History(_ context.Context, orgID, leadID string) ([]Transition, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := append([]Transition{}, j.entries[orgID+"/"+leadID]...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].OccurredAt.Before(out[b].OccurredAt) })
	return out, nil
}
