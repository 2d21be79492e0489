package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func saleEvent(t *testing.T) events.Event {
	t.Helper()
	e, err := events.New(events.TypeSaleRecorded, "org-1", "lead-7", "u1", events.SaleRecordedV1{
		LeadName:     "Acme",
		BusinessType: "ENTERPRISE",
		From:         "QUALIFIED",
		ProductName:  "Dedicated Line",
		Quantity:     12,
		UnitPrice:    "900.00",
		Total:        "10800.00",
		Description:  "annual contract",
	})
	require.NoError(t, err)
	return e
}

func TestNewSendGridSenderNeedsAPIKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "crm@example.com"}, nil))

	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "crm@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "CRM Console", sender.fromName)
}

func TestSendGridSenderWithoutClient(t *testing.T) {
	var sender *SendGridSender
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "a@example.com"}))
}

func TestBuildMailFallsBackToPlainBody(t *testing.T) {
	m := buildMail("CRM Console", "crm@example.com", EmailMessage{To: "sales@example.com", Subject: "Hi", Body: "plain"})
	require.Len(t, m.Content, 2)
	assert.Equal(t, "plain", m.Content[1].Value)
	assert.Equal(t, "crm@example.com", m.From.Address)
}

func TestSaleNotifierSendsToInbox(t *testing.T) {
	sender := &recordingSender{}
	n := NewSaleNotifier(sender, " sales@example.com ", logging.New("error"))

	require.NoError(t, n.Handle(context.Background(), saleEvent(t)))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "sales@example.com", msg.To)
	assert.Equal(t, "New sale: Acme closed for Dedicated Line", msg.Subject)
	assert.Contains(t, msg.Body, "Total: 10800.00")
	assert.Contains(t, msg.Body, "Notes: annual contract")
}

func TestSaleNotifierIgnoresOtherEventsAndMissingInbox(t *testing.T) {
	sender := &recordingSender{}
	other, err := events.New(events.TypeLeadDeleted, "org-1", "lead-7", "u1", events.LeadDeletedV1{Status: "LEAD"})
	require.NoError(t, err)

	require.NoError(t, NewSaleNotifier(sender, "sales@example.com", nil).Handle(context.Background(), other))
	require.NoError(t, NewSaleNotifier(sender, "", nil).Handle(context.Background(), saleEvent(t)))
	assert.Empty(t, sender.sent)
}

func TestSaleNotifierReportsSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("quota exceeded")}
	err := NewSaleNotifier(sender, "sales@example.com", nil).Handle(context.Background(), saleEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead-7")
}

func TestStubSenderNeverFails(t *testing.T) {
	assert.NoError(t, NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "a@example.com"}))
}
