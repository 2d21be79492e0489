package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/observability/metrics"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

type fakeBackend struct {
	mu         sync.Mutex
	leads      map[string]crmapi.Lead
	catalog    []crmapi.Product
	catalogErr error
	leadErr    error
	writeErr   error

	calls   int
	updates []crmapi.StatusUpdate
	sales   []crmapi.SaleRequest
	created []crmapi.CreateLeadRequest
	deleted []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		leads: map[string]crmapi.Lead{
			"p1": {ID: "p1", FirstName: "Jo", LastName: "Okello", LeadStatus: crmapi.StatusProspect, BusinessType: crmapi.BusinessHome},
			"l1": {ID: "l1", BusinessName: "Acme", FirstName: "Ann", LeadStatus: crmapi.StatusLead, BusinessType: crmapi.BusinessEnterprise},
			"q1": {ID: "q1", FirstName: "Sam", LeadStatus: crmapi.StatusQualified, BusinessType: crmapi.BusinessHome},
			"c1": {
				ID: "c1", FirstName: "Eve", LeadStatus: crmapi.StatusClosed, BusinessType: crmapi.BusinessHome,
				UpdatedAt: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
				Products: []crmapi.LeadProduct{
					{ID: "lp1", ProductID: "home-fibre"},
					{ID: "lp2", ProductID: "retired"},
				},
			},
		},
		catalog: []crmapi.Product{
			{ID: "home-fibre", Name: "Home Fibre", Category: crmapi.BusinessHome, UnitPrice: crmapi.NewMoney(50)},
			{ID: "dedicated", Name: "Dedicated Line", Category: crmapi.BusinessEnterprise, UnitPrice: crmapi.NewMoney(900)},
		},
	}
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBackend) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeBackend) Lead(_ context.Context, id string) (*crmapi.Lead, error) {
	f.hit()
	if f.leadErr != nil {
		return nil, f.leadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, crmapi.ErrNotFound
	}
	return &l, nil
}

func (f *fakeBackend) Products(context.Context) ([]crmapi.Product, error) {
	f.hit()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeBackend) Product(_ context.Context, id string) (*crmapi.Product, error) {
	f.hit()
	for _, p := range f.catalog {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, crmapi.ErrNotFound
}

func (f *fakeBackend) CreateLead(_ context.Context, in crmapi.CreateLeadRequest) error {
	f.hit()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	f.created = append(f.created, in)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) UpdateLeadStatus(_ context.Context, id string, in crmapi.StatusUpdate) error {
	f.hit()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)
	l := f.leads[id]
	l.LeadStatus = in.LeadStatus
	f.leads[id] = l
	return nil
}

func (f *fakeBackend) CreateSale(_ context.Context, id string, in crmapi.SaleRequest) error {
	f.hit()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, in)
	l := f.leads[id]
	l.LeadStatus = crmapi.StatusClosed
	f.leads[id] = l
	return nil
}

func (f *fakeBackend) DeleteLead(_ context.Context, id string) error {
	f.hit()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.leads, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var admin = tenancy.Identity{UserID: "u1", OrganizationID: "org-1", Role: tenancy.RoleAdmin, AccessToken: "tok"}

func newTestService(b *fakeBackend) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewService(b, pub, events.NewMemoryJournal(), nil, logging.New("error")), pub
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func moneyPtr(v float64) *crmapi.Money {
	m := crmapi.NewMoney(v)
	return &m
}

func TestViewForIsTotal(t *testing.T) {
	cases := map[crmapi.LeadStatus]View{
		crmapi.StatusProspect:  ProspectView,
		crmapi.StatusLead:      LeadView,
		crmapi.StatusQualified: LeadView,
		crmapi.StatusClosed:    ClientView,
		"ARCHIVED":             UnknownView,
		"":                     UnknownView,
	}
	for status, want := range cases {
		assert.Equal(t, want, ViewFor(status), "status %q", status)
	}
}

func TestTransitionsOnlyMoveForward(t *testing.T) {
	assert.Equal(t, []crmapi.LeadStatus{crmapi.StatusLead, crmapi.StatusQualified, crmapi.StatusClosed}, Targets(crmapi.StatusProspect))
	assert.Equal(t, []crmapi.LeadStatus{crmapi.StatusClosed}, Targets(crmapi.StatusQualified))
	assert.Empty(t, Targets(crmapi.StatusClosed))
	assert.Empty(t, Targets("ARCHIVED"))
	assert.False(t, CanTransition(crmapi.StatusQualified, crmapi.StatusLead))
	assert.False(t, CanTransition(crmapi.StatusLead, crmapi.StatusLead))
}

func TestDetailJoinsProductsAndKeepsUnknownLinks(t *testing.T) {
	svc, _ := newTestService(newFakeBackend())

	d, err := svc.Detail(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, ClientView, d.View)
	require.Len(t, d.Products, 2)
	assert.Equal(t, "Home Fibre", d.Products[0].Name)
	assert.True(t, d.Products[0].Known)
	assert.Equal(t, UnknownProduct, d.Products[1].Name)
	assert.False(t, d.Products[1].Known)
	assert.True(t, d.CatalogAvailable)
	assert.Equal(t, "March 5, 2024", d.Display.ConvertedAt)
	assert.Equal(t, "N/A", d.Display.BusinessName)
	assert.Empty(t, d.Transitions)
}

func TestDetailDegradesWhenCatalogFails(t *testing.T) {
	b := newFakeBackend()
	b.catalogErr = &crmapi.TransportError{Op: "products", Err: errors.New("dial tcp: refused")}
	svc, _ := newTestService(b)

	d, err := svc.Detail(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, d.CatalogAvailable)
	require.Len(t, d.Products, 2)
	for _, line := range d.Products {
		assert.Equal(t, UnknownProduct, line.Name)
	}
}

func TestDetailPrefersBusinessNameAndOffersMatchingCategory(t *testing.T) {
	svc, _ := newTestService(newFakeBackend())

	d, err := svc.Detail(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, LeadView, d.View)
	assert.Equal(t, "Acme", d.Display.Title)
	assert.Empty(t, d.Display.ConvertedAt)
	require.Len(t, d.Offer, 1)
	assert.Equal(t, "dedicated", d.Offer[0].ID)
}

func TestDetailNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeBackend())
	_, err := svc.Detail(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	b := newFakeBackend()
	b.leadErr = &crmapi.HTTPError{Op: "lead", StatusCode: http.StatusInternalServerError}
	svc, _ = newTestService(b)
	_, err = svc.Detail(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestClosedWithoutProductIssuesNoRequest(t *testing.T) {
	b := newFakeBackend()
	svc, pub := newTestService(b)

	_, err := svc.Transition(context.Background(), admin, "q1", Submission{
		Target:      crmapi.StatusClosed,
		Description: "signed contract",
		Quantity:    intPtr(12),
		UnitPrice:   moneyPtr(50),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please select a product", verr.Fields["productId"])
	assert.Zero(t, b.count())
	assert.Empty(t, pub.types())
}

func TestClosedFormRangeChecks(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newTestService(b)

	_, err := svc.Transition(context.Background(), admin, "q1", Submission{
		Target:      crmapi.StatusClosed,
		Description: "x",
		ProductID:   strPtr("home-fibre"),
		Quantity:    intPtr(0),
		UnitPrice:   moneyPtr(0.5),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "description")
	assert.Contains(t, verr.Fields, "quantity")
	assert.Contains(t, verr.Fields, "unitPrice")
	assert.Zero(t, b.count())
}

func TestForeignFieldsAreRejected(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newTestService(b)

	_, err := svc.Transition(context.Background(), admin, "p1", Submission{
		Target:      crmapi.StatusLead,
		Description: "called back",
		ProductID:   strPtr("home-fibre"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "productId")

	_, err = svc.Transition(context.Background(), admin, "p1", Submission{Target: "LOST", Description: "gone"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "target")
	assert.Zero(t, b.count())
}

func TestProspectToLeadUpdatesAndPublishes(t *testing.T) {
	b := newFakeBackend()
	svc, pub := newTestService(b)

	res, err := svc.Transition(context.Background(), admin, "p1", Submission{Target: crmapi.StatusLead, Description: "asked for a quote"})
	require.NoError(t, err)
	assert.Equal(t, crmapi.StatusProspect, res.From)
	assert.Equal(t, LeadView, res.View)
	require.Len(t, b.updates, 1)
	assert.Equal(t, crmapi.StatusUpdate{Description: "asked for a quote", LeadStatus: crmapi.StatusLead}, b.updates[0])
	assert.Equal(t, []string{events.TypeLeadStatusChanged}, pub.types())
	assert.Equal(t, "org-1", pub.events[0].OrgID)
	assert.Equal(t, "u1", pub.events[0].ActorID)
}

func TestBackwardTransitionIsRejected(t *testing.T) {
	b := newFakeBackend()
	svc, pub := newTestService(b)

	_, err := svc.Transition(context.Background(), admin, "q1", Submission{Target: crmapi.StatusLead, Description: "oops"})
	assert.ErrorIs(t, err, ErrNotForward)
	assert.Empty(t, b.updates)
	assert.Empty(t, pub.types())
}

func TestClosedRecordsSale(t *testing.T) {
	b := newFakeBackend()
	svc, pub := newTestService(b)

	res, err := svc.Transition(context.Background(), admin, "q1", Submission{
		Target:      crmapi.StatusClosed,
		Description: "signed contract",
		ProductID:   strPtr("home-fibre"),
		Quantity:    intPtr(12),
		UnitPrice:   moneyPtr(49.5),
	})
	require.NoError(t, err)
	assert.Equal(t, ClientView, res.View)
	require.Len(t, b.sales, 1)
	assert.Equal(t, 12, b.sales[0].Quantity)
	assert.Empty(t, b.updates)

	require.Equal(t, []string{events.TypeSaleRecorded}, pub.types())
	var payload events.SaleRecordedV1
	require.NoError(t, pub.events[0].Decode(&payload))
	assert.Equal(t, "594.00", payload.Total)
	assert.Equal(t, "Home Fibre", payload.ProductName)
	assert.Equal(t, "QUALIFIED", payload.From)
}

func TestClosedProductMustMatchBusinessType(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newTestService(b)

	_, err := svc.Transition(context.Background(), admin, "q1", Submission{
		Target:      crmapi.StatusClosed,
		Description: "signed contract",
		ProductID:   strPtr("dedicated"),
		Quantity:    intPtr(1),
		UnitPrice:   moneyPtr(900),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["productId"], "HOME")
	assert.Empty(t, b.sales)
}

func TestFailedTransitionIsNotRolledBack(t *testing.T) {
	b := newFakeBackend()
	b.writeErr = &crmapi.HTTPError{Op: "update_lead", StatusCode: http.StatusInternalServerError, Message: "db down"}
	reg := prometheus.NewRegistry()
	m := metrics.NewTransitionMetrics(reg)
	pub := &recordingPublisher{}
	svc := NewService(b, pub, nil, m, logging.New("error"))

	_, err := svc.Transition(context.Background(), admin, "p1", Submission{Target: crmapi.StatusLead, Description: "retry me"})
	require.Error(t, err)
	assert.Equal(t, "db down", crmapi.UserMessage(err))
	assert.Equal(t, crmapi.StatusProspect, b.leads["p1"].LeadStatus)
	assert.Empty(t, pub.types())

	b.writeErr = nil
	_, err = svc.Transition(context.Background(), admin, "p1", Submission{Target: crmapi.StatusLead, Description: "retry me"})
	require.NoError(t, err)

	expected := `
# HELP crm_leads_transitions_total Lead status transitions by target and result
# TYPE crm_leads_transitions_total counter
crm_leads_transitions_total{result="failed",target="LEAD"} 1
crm_leads_transitions_total{result="ok",target="LEAD"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "crm_leads_transitions_total"))
}

func TestDeleteRequiresRoleAndConfirmation(t *testing.T) {
	b := newFakeBackend()
	svc, pub := newTestService(b)

	user := admin
	user.Role = tenancy.RoleUser
	assert.ErrorIs(t, svc.Delete(context.Background(), user, "p1", "p1"), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, "p1", "p2"), ErrConfirmationMissing)
	assert.Zero(t, b.count())

	require.NoError(t, svc.Delete(context.Background(), admin, "p1", "p1"))
	assert.Equal(t, []string{"p1"}, b.deleted)
	assert.Equal(t, []string{events.TypeLeadDeleted}, pub.types())
}

func TestCreateValidatesByBusinessType(t *testing.T) {
	b := newFakeBackend()
	svc, pub := newTestService(b)

	err := svc.Create(context.Background(), admin, CreateForm{BusinessType: "enterprise", FirstName: "Ann"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "businessName")
	assert.Contains(t, verr.Fields, "contactPerson")

	err = svc.Create(context.Background(), admin, CreateForm{BusinessType: "HOME", FirstName: "Jo"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lastName")
	assert.Zero(t, b.count())

	require.NoError(t, svc.Create(context.Background(), admin, CreateForm{
		BusinessType: "HOME", FirstName: "Jo", LastName: "Okello", BusinessName: "ignored", AsClient: true,
	}))
	require.Len(t, b.created, 1)
	assert.Equal(t, crmapi.StatusClosed, b.created[0].LeadStatus)
	assert.Empty(t, b.created[0].BusinessName)
	assert.Equal(t, []string{events.TypeLeadCreated}, pub.types())
}

func TestHistoryComesFromJournal(t *testing.T) {
	b := newFakeBackend()
	journal := events.NewMemoryJournal()
	bus := events.NewBus(logging.New("error"))
	bus.Subscribe("journal", events.JournalSubscriber(journal))
	svc := NewService(b, bus, journal, nil, logging.New("error"))

	_, err := svc.Transition(context.Background(), admin, "p1", Submission{Target: crmapi.StatusLead, Description: "asked for a quote"})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), admin, "p1", Submission{Target: crmapi.StatusQualified, Description: "budget approved"})
	require.NoError(t, err)

	history, err := svc.History(context.Background(), "org-1", "p1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "LEAD", history[0].ToStatus)
	assert.Equal(t, "QUALIFIED", history[1].ToStatus)
	assert.Equal(t, "budget approved", history[1].Description)

	_, err = svc.History(context.Background(), "", "p1")
	assert.ErrorIs(t, err, ErrNoOrganization)
}

func newTestRouter(svc *Service, sess *session.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sess != nil {
				req = req.WithContext(session.WithSession(req.Context(), sess))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/leads", NewHandler(svc, logging.New("error")).Routes)
	return r
}

func adminSession() *session.Session {
	return &session.Session{ID: "s1", UserID: "u1", OrganizationID: "org-1", Role: tenancy.RoleAdmin, AccessToken: "tok"}
}

func TestHandlerTransitionFieldErrors(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newTestService(b)
	router := newTestRouter(svc, adminSession())

	body := []byte(`{"target":"CLOSED","description":"signed","quantity":2,"unitPrice":50}`)
	req := httptest.NewRequest(http.MethodPost, "/leads/q1/transitions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Fields, "productId")
	assert.Zero(t, b.count())
}

func TestHandlerDetailAndNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeBackend())
	router := newTestRouter(svc, adminSession())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leads/p1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var d Detail
	require.NoError(t, json.NewDecoder(w.Body).Decode(&d))
	assert.Equal(t, ProspectView, d.View)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leads/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerRequiresSession(t *testing.T) {
	svc, _ := newTestService(newFakeBackend())
	router := newTestRouter(svc, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leads/p1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerDeleteStatuses(t *testing.T) {
	svc, _ := newTestService(newFakeBackend())
	router := newTestRouter(svc, adminSession())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/leads/p1", bytes.NewReader([]byte(`{"confirm":"nope"}`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/leads/p1", bytes.NewReader([]byte(`{"confirm":"p1"}`))))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
