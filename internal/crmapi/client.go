package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/observability/metrics"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 4 << 20
)

// Client calls the remote CRM backend on behalf of the identity found in the
// request context.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.UpstreamMetrics
	tracer     trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		endpoints:  NewEndpoints(baseURL),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tracer:     otel.Tracer("crm.internal.crmapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints exposes the URL map the client uses.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

type request struct {
	op       string
	method   string
	url      string
	body     any
	needData bool
	token    string
}

// call issues r and decodes the envelope's data into T.
func call[T any](ctx context.Context, c *Client, r request) (*T, error) {
	ctx, span := c.tracer.Start(ctx, "crmapi."+r.op, trace.WithAttributes(
		attribute.String("http.method", r.method),
	))
	defer span.End()

	start := time.Now()
	data, err := func() (*T, error) {
		raw, err := c.send(ctx, r)
		if err != nil {
			return nil, err
		}
		return decodeEnvelope[T](r.op, r.needData, raw)
	}()
	c.metrics.ObserveRequest(r.op, outcomeOf(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("crm backend request failed", "operation", r.op, "error", err)
		return nil, err
	}
	return data, nil
}

// decodeEnvelope validates the envelope and, when T is a payload, that the
// expected collection or entity is present.
func decodeEnvelope[T any](op string, needData bool, raw []byte) (*T, error) {
	var env Envelope[T]
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, &ApplicationError{Op: op, Message: "malformed response"}
		}
	}
	if env.failed() {
		return nil, &ApplicationError{Op: op, Message: env.reason()}
	}
	if env.Data == nil {
		if needData {
			return nil, &ApplicationError{Op: op, Message: "response is missing data"}
		}
		return nil, nil
	}
	if p, ok := any(*env.Data).(payload); ok && !p.complete() {
		return nil, &ApplicationError{Op: op, Message: "response is missing its collection"}
	}
	return env.Data, nil
}

// send performs the HTTP exchange and returns the 2xx body.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, &TransportError{Op: r.op, Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, &TransportError{Op: r.op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token := r.token
	if id, ok := tenancy.IdentityFromContext(ctx); ok && token == "" {
		token = id.AccessToken
	}
	if orgID, ok := tenancy.OrgIDFromContext(ctx); ok {
		req.Header.Set("organization-id", orgID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{Op: r.op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Op: r.op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage pulls a human readable message out of a failed response body.
func errorMessage(raw []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
		return ""
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var transportErr *TransportError
	var httpErr *HTTPError
	switch {
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &httpErr):
		return "http"
	default:
		return "application"
	}
}

// Login exchanges credentials for a backend access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	const op = "auth.login"
	ctx, span := c.tracer.Start(ctx, "crmapi."+op)
	defer span.End()

	start := time.Now()
	result, err := c.login(ctx, op, creds)
	c.metrics.ObserveRequest(op, outcomeOf(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (c *Client) login(ctx context.Context, op string, creds Credentials) (*LoginResult, error) {
	raw, err := c.send(ctx, request{op: op, method: http.MethodPost, url: c.endpoints.Login(), body: creds})
	if err != nil {
		return nil, err
	}
	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ApplicationError{Op: op, Message: "malformed response"}
	}
	if resp.Success == nil || !*resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "login failed"
		}
		return nil, &ApplicationError{Op: op, Message: msg}
	}
	if resp.Token == "" || resp.User.ID == "" {
		return nil, &ApplicationError{Op: op, Message: "response is missing token or user"}
	}
	return &LoginResult{Token: resp.Token, User: resp.User}, nil
}

// UserOrganizations lists the organizations the token's user belongs to.
// Null entries are dropped.
func (c *Client) UserOrganizations(ctx context.Context, token string) ([]Organization, error) {
	p, err := call[OrganizationsPayload](ctx, c, request{
		op: "organizations.user", method: http.MethodGet, url: c.endpoints.UserOrganizations(),
		needData: true, token: token,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Organization, 0, len(p.Organizations))
	for _, o := range p.Organizations {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

// OrganizationLeads returns every lead of the caller's organization.
func (c *Client) OrganizationLeads(ctx context.Context) ([]Lead, error) {
	p, err := call[LeadsPayload](ctx, c, request{
		op: "leads.organization", method: http.MethodGet, url: c.endpoints.LeadsByOrganization(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Leads, nil
}

// UserLeads returns the leads owned by userID.
func (c *Client) UserLeads(ctx context.Context, userID string) ([]Lead, error) {
	p, err := call[LeadsPayload](ctx, c, request{
		op: "leads.user", method: http.MethodGet, url: c.endpoints.UserLeads(userID), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Leads, nil
}

// Lead fetches one lead. An empty entity is reported as ErrNotFound.
func (c *Client) Lead(ctx context.Context, leadID string) (*Lead, error) {
	lead, err := call[Lead](ctx, c, request{
		op: "leads.get", method: http.MethodGet, url: c.endpoints.Lead(leadID), needData: true,
	})
	if err != nil {
		return nil, err
	}
	if lead.ID == "" {
		return nil, ErrNotFound
	}
	return lead, nil
}

func (c *Client) CreateLead(ctx context.Context, in CreateLeadRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "leads.create", method: http.MethodPost, url: c.endpoints.CreateLead(), body: in,
	})
	return err
}

// UpdateLeadStatus moves a lead to LEAD or QUALIFIED.
func (c *Client) UpdateLeadStatus(ctx context.Context, leadID string, in StatusUpdate) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "leads.update", method: http.MethodPut, url: c.endpoints.UpdateLead(leadID), body: in,
	})
	return err
}

func (c *Client) DeleteLead(ctx context.Context, leadID string) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "leads.delete", method: http.MethodDelete, url: c.endpoints.DeleteLead(leadID),
	})
	return err
}

// Products returns the organization catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	p, err := call[ProductsPayload](ctx, c, request{
		op: "products.organization", method: http.MethodGet, url: c.endpoints.ProductsByOrganization(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Products, nil
}

func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	p, err := call[ProductPayload](ctx, c, request{
		op: "products.get", method: http.MethodGet, url: c.endpoints.Product(productID), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Product, nil
}

func (c *Client) CreateProduct(ctx context.Context, in CreateProductRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "products.create", method: http.MethodPost, url: c.endpoints.CreateProduct(), body: in,
	})
	return err
}

func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "products.delete", method: http.MethodDelete, url: c.endpoints.DeleteProduct(productID),
	})
	return err
}

// CreateSale records a sale for the lead; the backend closes the lead.
func (c *Client) CreateSale(ctx context.Context, leadID string, in SaleRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "sales.create", method: http.MethodPost, url: c.endpoints.CreateSale(leadID), body: in,
	})
	return err
}

func (c *Client) AllProposals(ctx context.Context) ([]Proposal, error) {
	p, err := call[ProposalsPayload](ctx, c, request{
		op: "proposals.all", method: http.MethodGet, url: c.endpoints.AllProposals(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Proposals, nil
}

func (c *Client) UserProposals(ctx context.Context) ([]Proposal, error) {
	p, err := call[ProposalsPayload](ctx, c, request{
		op: "proposals.user", method: http.MethodGet, url: c.endpoints.UserProposals(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Proposals, nil
}

func (c *Client) Proposal(ctx context.Context, proposalID string) (*Proposal, error) {
	p, err := call[ProposalPayload](ctx, c, request{
		op: "proposals.get", method: http.MethodGet, url: c.endpoints.Proposal(proposalID), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Proposal, nil
}

func (c *Client) CreateProposal(ctx context.Context, in CreateProposalRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "proposals.create", method: http.MethodPost, url: c.endpoints.CreateProposal(), body: in,
	})
	return err
}

func (c *Client) AllVisits(ctx context.Context) ([]Visit, error) {
	p, err := call[VisitsPayload](ctx, c, request{
		op: "visits.all", method: http.MethodGet, url: c.endpoints.AllVisits(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Visits, nil
}

func (c *Client) UserVisits(ctx context.Context) ([]Visit, error) {
	p, err := call[VisitsPayload](ctx, c, request{
		op: "visits.user", method: http.MethodGet, url: c.endpoints.UserVisits(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Visits, nil
}

func (c *Client) Visit(ctx context.Context, visitID string) (*Visit, error) {
	p, err := call[VisitPayload](ctx, c, request{
		op: "visits.get", method: http.MethodGet, url: c.endpoints.Visit(visitID), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Visit, nil
}

func (c *Client) CreateVisit(ctx context.Context, in CreateVisitRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "visits.create", method: http.MethodPost, url: c.endpoints.CreateVisit(), body: in,
	})
	return err
}

func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	p, err := call[DepartmentsPayload](ctx, c, request{
		op: "departments.organization", method: http.MethodGet, url: c.endpoints.DepartmentsByOrganization(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Departments, nil
}

func (c *Client) Department(ctx context.Context, departmentID string) (*Department, error) {
	p, err := call[DepartmentPayload](ctx, c, request{
		op: "departments.get", method: http.MethodGet, url: c.endpoints.Department(departmentID), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Department, nil
}

func (c *Client) CreateDepartment(ctx context.Context, in DepartmentRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "departments.create", method: http.MethodPost, url: c.endpoints.CreateDepartment(), body: in,
	})
	return err
}

func (c *Client) UpdateDepartment(ctx context.Context, departmentID string, in DepartmentRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "departments.update", method: http.MethodPut, url: c.endpoints.UpdateDepartment(departmentID), body: in,
	})
	return err
}

func (c *Client) DeleteDepartment(ctx context.Context, departmentID string) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "departments.delete", method: http.MethodDelete, url: c.endpoints.DeleteDepartment(departmentID),
	})
	return err
}

// AssignDepartment adds userID to the department.
func (c *Client) AssignDepartment(ctx context.Context, userID, departmentID string) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "departments.add_user", method: http.MethodPost, url: c.endpoints.AssignDepartment(userID),
		body: map[string]string{"departmentId": departmentID},
	})
	return err
}

// Users lists the organization's members.
func (c *Client) Users(ctx context.Context) ([]Member, error) {
	p, err := call[MembersPayload](ctx, c, request{
		op: "users.organization", method: http.MethodGet, url: c.endpoints.UsersByOrganization(), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Users, nil
}

func (c *Client) DeleteMember(ctx context.Context, memberID string) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "users.delete", method: http.MethodDelete, url: c.endpoints.DeleteMember(memberID),
	})
	return err
}

func (c *Client) InviteUser(ctx context.Context, in InviteRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "users.invite", method: http.MethodPost, url: c.endpoints.InviteUser(), body: in,
	})
	return err
}

func (c *Client) AdminDashboard(ctx context.Context) (*Dashboard, error) {
	return call[Dashboard](ctx, c, request{
		op: "dashboard.admin", method: http.MethodGet, url: c.endpoints.AdminDashboard(), needData: true,
	})
}

func (c *Client) UserDashboard(ctx context.Context) (*Dashboard, error) {
	return call[Dashboard](ctx, c, request{
		op: "dashboard.user", method: http.MethodGet, url: c.endpoints.UserDashboard(), needData: true,
	})
}

// UserReport returns userID's report for the month containing selectedDate
// (YYYY-MM-DD).
func (c *Client) UserReport(ctx context.Context, userID, selectedDate string) (*Report, error) {
	p, err := call[ReportPayload](ctx, c, request{
		op: "reports.user", method: http.MethodGet, url: c.endpoints.UserReport(userID, selectedDate), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Report, nil
}

func (c *Client) SalesSummary(ctx context.Context, selectedDate string) (*Report, error) {
	p, err := call[ReportPayload](ctx, c, request{
		op: "reports.summary", method: http.MethodGet, url: c.endpoints.SalesSummary(selectedDate), needData: true,
	})
	if err != nil {
		return nil, err
	}
	return p.Report, nil
}

func (c *Client) SetTargets(ctx context.Context, in SetTargetsRequest) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op: "targets.set", method: http.MethodPost, url: c.endpoints.SetTargets(), body: in,
	})
	return err
}
