package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// SaleNotifier tells the sales inbox about every recorded sale.
type SaleNotifier struct {
	sender EmailSender
	inbox  string
	logger *logging.Logger
}

func NewSaleNotifier(sender EmailSender, inbox string, logger *logging.Logger) *SaleNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &SaleNotifier{sender: sender, inbox: strings.TrimSpace(inbox), logger: logger}
}

// Handle is an events.Handler for sale.recorded.v1.
func (n *SaleNotifier) Handle(ctx context.Context, e events.Event) error {
	if e.Type != events.TypeSaleRecorded {
		return nil
	}
	if n.inbox == "" {
		n.logger.Debug("sales inbox not configured; skipping sale email", "lead_id", e.LeadID)
		return nil
	}
	var sale events.SaleRecordedV1
	if err := e.Decode(&sale); err != nil {
		return err
	}
	msg := SaleEmail(n.inbox, e, sale)
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: sale email for lead %s: %w", e.LeadID, err)
	}
	return nil
}

// SaleEmail renders the message sent for a recorded sale.
func SaleEmail(to string, e events.Event, sale events.SaleRecordedV1) EmailMessage {
	name := sale.LeadName
	if name == "" {
		name = "A lead"
	}
	subject := fmt.Sprintf("New sale: %s closed for %s", name, sale.ProductName)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) moved from %s to CLOSED.\n\n", name, sale.BusinessType, sale.From)
	fmt.Fprintf(&b, "Product: %s\n", sale.ProductName)
	fmt.Fprintf(&b, "Quantity: %d\n", sale.Quantity)
	fmt.Fprintf(&b, "Unit price: %s\n", sale.UnitPrice)
	fmt.Fprintf(&b, "Total: %s\n", sale.Total)
	if sale.Description != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", sale.Description)
	}
	fmt.Fprintf(&b, "\nRecorded %s", e.OccurredAt.Format("January 2, 2006 15:04 MST"))

	return EmailMessage{To: to, ToName: "Sales", Subject: subject, Body: b.String()}
}
