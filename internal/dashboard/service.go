// Package dashboard proxies the backend's sales aggregates and formats them
// for display. All figures are computed by the backend.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

const dateLayout = "2006-01-02"

var (
	ErrForbidden   = errors.New("dashboard: role may not view this report")
	ErrInvalidDate = errors.New("dashboard: date must look like 2006-01-02")
)

// Backend is the part of the CRM client serving aggregates.
type Backend interface {
	AdminDashboard(ctx context.Context) (*crmapi.Dashboard, error)
	UserDashboard(ctx context.Context) (*crmapi.Dashboard, error)
	UserReport(ctx context.Context, userID, selectedDate string) (*crmapi.Report, error)
	SalesSummary(ctx context.Context, selectedDate string) (*crmapi.Report, error)
	SetTargets(ctx context.Context, in crmapi.SetTargetsRequest) error
}

type Service struct {
	backend Backend
	now     func() time.Time
	logger  *logging.Logger
}

func NewService(backend Backend, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{backend: backend, now: time.Now, logger: logger}
}

// MonthPoint is one month of the sales chart.
type MonthPoint struct {
	Label string `json:"label"`
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Total Amount `json:"total"`
}

// YearPoint is one year of the sales chart.
type YearPoint struct {
	Year  int    `json:"year"`
	Total Amount `json:"total"`
}

// ProductLine is a best selling product.
type ProductLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Total     Amount `json:"total"`
}

// Segment is one funnel stage of the lead segmentation chart.
type Segment struct {
	Stage crmapi.LeadStatus `json:"stage"`
	Count int               `json:"count"`
	Share string            `json:"share"`
}

// Overview is the dashboard page.
type Overview struct {
	Scope           string        `json:"scope"`
	TotalSales      Amount        `json:"totalSales"`
	TotalSalesCount string        `json:"totalSalesCount"`
	CurrentMonth    MonthPoint    `json:"currentMonth"`
	SalesByMonth    []MonthPoint  `json:"salesByMonth"`
	SalesByYear     []YearPoint   `json:"salesByYear"`
	TopProducts     []ProductLine `json:"topProducts"`
	Segmentation    []Segment     `json:"segmentation"`
	ConversionRate  string        `json:"conversionRate"`
}

// Overview picks the organization aggregate for owners and admins and the
// personal one for everyone else.
func (s *Service) Overview(ctx context.Context, id tenancy.Identity) (*Overview, error) {
	var (
		d     *crmapi.Dashboard
		err   error
		scope = "personal"
	)
	if id.Role.Elevated() {
		scope = "organization"
		d, err = s.backend.AdminDashboard(ctx)
	} else {
		d, err = s.backend.UserDashboard(ctx)
	}
	if err != nil {
		return nil, err
	}
	return buildOverview(scope, *d), nil
}

func buildOverview(scope string, d crmapi.Dashboard) *Overview {
	f := newFormatter()
	o := &Overview{
		Scope:           scope,
		TotalSales:      f.amount(d.TotalSales),
		TotalSalesCount: f.count(d.TotalSalesCount),
		CurrentMonth:    monthPoint(f, d.CurrentMonthSales),
		SalesByMonth:    make([]MonthPoint, 0, len(d.SalesByMonth)),
		SalesByYear:     make([]YearPoint, 0, len(d.SalesByYear)),
		TopProducts:     make([]ProductLine, 0, len(d.TopProducts)),
		ConversionRate:  TruncatePercent(d.ConversionRate.ConversionRate),
	}
	for _, m := range d.SalesByMonth {
		o.SalesByMonth = append(o.SalesByMonth, monthPoint(f, m))
	}
	for _, y := range d.SalesByYear {
		o.SalesByYear = append(o.SalesByYear, YearPoint{Year: y.Year, Total: f.amount(y.TotalSales)})
	}
	for _, p := range d.TopProducts {
		o.TopProducts = append(o.TopProducts, ProductLine{
			ProductID: p.ProductID,
			Name:      p.ProductName,
			Quantity:  p.Quantity,
			Total:     f.amount(p.TotalPrice),
		})
	}

	seg := d.LeadSegmentation
	total := seg.Prospects + seg.Leads + seg.Qualified + seg.Closed
	o.Segmentation = []Segment{
		{Stage: crmapi.StatusProspect, Count: seg.Prospects, Share: share(seg.Prospects, total)},
		{Stage: crmapi.StatusLead, Count: seg.Leads, Share: share(seg.Leads, total)},
		{Stage: crmapi.StatusQualified, Count: seg.Qualified, Share: share(seg.Qualified, total)},
		{Stage: crmapi.StatusClosed, Count: seg.Closed, Share: share(seg.Closed, total)},
	}
	return o
}

func monthPoint(f formatter, m crmapi.MonthlySales) MonthPoint {
	return MonthPoint{Label: monthLabel(m), Month: m.Month, Year: m.Year, Total: f.amount(m.TotalSales)}
}

// ReportRow is one metric of a report against its target.
type ReportRow struct {
	Metric     string `json:"metric"`
	Target     string `json:"target"`
	Achieved   string `json:"achieved"`
	Completion string `json:"completion"`
}

// ReportView is a monthly report page.
type ReportView struct {
	UserID string      `json:"userId,omitempty"`
	Date   string      `json:"date"`
	Period string      `json:"period"`
	Rows   []ReportRow `json:"rows"`
}

func buildReport(userID string, day time.Time, r crmapi.Report) *ReportView {
	f := newFormatter()
	pc := r.PercentageCompletion
	return &ReportView{
		UserID: userID,
		Date:   day.Format("January 2, 2006"),
		Period: day.Format("January 2006"),
		Rows: []ReportRow{
			{Metric: "Visits", Target: f.count(r.Targets.Visits), Achieved: f.count(r.Visits), Completion: TruncatePercent(pc.Visits)},
			{Metric: "Qualified leads", Target: f.count(r.Targets.QualifiedLeads), Achieved: f.count(r.QualifiedLeads), Completion: TruncatePercent(pc.QualifiedLeads)},
			{Metric: "Proposals", Target: f.count(r.Targets.Proposals), Achieved: f.count(r.Proposals), Completion: TruncatePercent(pc.Proposals)},
			{Metric: "Sales", Target: f.amount(r.Targets.Sales).Display, Achieved: f.amount(r.Sales.TotalSales).Display, Completion: TruncatePercent(pc.Sales)},
		},
	}
}

// reportDay parses the requested day, defaulting to today.
func (s *Service) reportDay(date string) (time.Time, error) {
	if date == "" {
		return s.now().UTC().Truncate(24 * time.Hour), nil
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

// UserReport returns a user's month. Users may only read their own report.
func (s *Service) UserReport(ctx context.Context, id tenancy.Identity, userID, date string) (*ReportView, error) {
	if userID == "" {
		userID = id.UserID
	}
	if userID != id.UserID && !id.Role.Elevated() {
		return nil, ErrForbidden
	}
	day, err := s.reportDay(date)
	if err != nil {
		return nil, err
	}
	r, err := s.backend.UserReport(ctx, userID, day.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	return buildReport(userID, day, *r), nil
}

// SalesSummary returns the organization's month; owners and admins only.
func (s *Service) SalesSummary(ctx context.Context, id tenancy.Identity, date string) (*ReportView, error) {
	if !id.Role.Elevated() {
		return nil, ErrForbidden
	}
	day, err := s.reportDay(date)
	if err != nil {
		return nil, err
	}
	r, err := s.backend.SalesSummary(ctx, day.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	return buildReport("", day, *r), nil
}

// TargetsForm sets a user's monthly goals.
type TargetsForm struct {
	UserID         string  `json:"userId" validate:"required"`
	Sales          float64 `json:"sales" validate:"min=0"`
	Visits         int     `json:"visits" validate:"min=0"`
	Proposals      int     `json:"proposals" validate:"min=0"`
	QualifiedLeads int     `json:"qualifiedLeads" validate:"min=0"`
}

// SetTargets forwards validated targets; owners and admins only.
func (s *Service) SetTargets(ctx context.Context, id tenancy.Identity, f TargetsForm) error {
	if !id.Role.Elevated() {
		return ErrForbidden
	}
	err := s.backend.SetTargets(ctx, crmapi.SetTargetsRequest{
		UserID: f.UserID,
		Targets: crmapi.Targets{
			Sales:          f.Sales,
			QualifiedLeads: f.QualifiedLeads,
			Visits:         f.Visits,
			Proposals:      f.Proposals,
		},
	})
	if err != nil {
		return err
	}
	s.logger.Info("targets set", "org_id", id.OrganizationID, "user_id", f.UserID)
	return nil
}
