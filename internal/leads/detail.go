package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
)

// UnknownProduct names a linked product missing from the catalog.
const UnknownProduct = "Unknown Product"

const placeholder = "N/A"

// ProductLine is a lead's product link joined with the catalog.
type ProductLine struct {
	ID        string              `json:"id"`
	ProductID string              `json:"productId"`
	Name      string              `json:"name"`
	Category  crmapi.BusinessType `json:"category,omitempty"`
	Known     bool                `json:"known"`
}

// Display holds the ready-to-render fields of a detail view.
type Display struct {
	Title                  string `json:"title"`
	Names                  string `json:"names"`
	BusinessName           string `json:"businessName"`
	Email                  string `json:"email"`
	Phone                  string `json:"phone"`
	ContactPerson          string `json:"contactPerson"`
	SecondaryContactPerson string `json:"secondaryContactPerson"`
	SecondaryContactNumber string `json:"secondaryContactNumber"`
	SecondaryContactEmail  string `json:"secondaryContactEmail"`
	BusinessType           string `json:"businessType"`
	Location               string `json:"location"`
	Description            string `json:"description"`
	ConvertedAt            string `json:"convertedAt,omitempty"`
}

// Detail is everything the lead page shows for one lead.
type Detail struct {
	View             View                `json:"view"`
	Lead             crmapi.Lead         `json:"lead"`
	Display          Display             `json:"display"`
	Products         []ProductLine       `json:"products"`
	CatalogAvailable bool                `json:"catalogAvailable"`
	Transitions      []crmapi.LeadStatus `json:"transitions"`
	// Offer is the part of the catalog a sale for this lead may use.
	Offer []crmapi.Product `json:"offer"`
}

// Detail fetches the lead and the catalog concurrently. Only the lead is
// required; without the catalog product names degrade to UnknownProduct.
func (s *Service) Detail(ctx context.Context, leadID string) (*Detail, error) {
	var (
		lead       *crmapi.Lead
		catalog    []crmapi.Product
		catalogErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		l, err := s.backend.Lead(ctx, leadID)
		if err != nil {
			return err
		}
		lead = l
		return nil
	})
	g.Go(func() error {
		catalog, catalogErr = s.backend.Products(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, crmapi.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
		}
		s.logger.Warn("lead fetch failed", "lead_id", leadID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLeadNotFound, err)
	}
	if lead == nil || lead.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
	}
	if catalogErr != nil {
		s.logger.Warn("catalog unavailable for lead detail", "lead_id", leadID, "error", catalogErr)
	}

	view := ViewFor(lead.LeadStatus)
	d := &Detail{
		View:             view,
		Lead:             *lead,
		Display:          displayOf(*lead, view),
		Products:         JoinProducts(lead.Products, catalog),
		CatalogAvailable: catalogErr == nil,
		Transitions:      Targets(lead.LeadStatus),
		Offer:            offerFor(lead.BusinessType, catalog),
	}
	return d, nil
}

// JoinProducts names every link, keeping links whose product is unknown.
func JoinProducts(links []crmapi.LeadProduct, catalog []crmapi.Product) []ProductLine {
	byID := make(map[string]crmapi.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}
	out := make([]ProductLine, 0, len(links))
	for _, link := range links {
		line := ProductLine{ID: link.ID, ProductID: link.ProductID, Name: UnknownProduct}
		if p, ok := byID[link.ProductID]; ok {
			line.Name, line.Category, line.Known = p.Name, p.Category, true
		}
		out = append(out, line)
	}
	return out
}

func offerFor(bt crmapi.BusinessType, catalog []crmapi.Product) []crmapi.Product {
	out := []crmapi.Product{}
	for _, p := range catalog {
		if p.Category == bt {
			out = append(out, p)
		}
	}
	return out
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func displayOf(l crmapi.Lead, view View) Display {
	d := Display{
		Title:                  orPlaceholder(l.DisplayName()),
		Names:                  orPlaceholder(fullName(l)),
		BusinessName:           orPlaceholder(l.BusinessName),
		Email:                  orPlaceholder(l.LeadEmail),
		Phone:                  orPlaceholder(l.PhoneNumber),
		ContactPerson:          orPlaceholder(l.ContactPerson),
		SecondaryContactPerson: orPlaceholder(l.SecondaryContactPerson),
		SecondaryContactNumber: orPlaceholder(l.SecondaryContactNumber),
		SecondaryContactEmail:  orPlaceholder(l.SecondaryContactEmail),
		BusinessType:           orPlaceholder(string(l.BusinessType)),
		Location:               orPlaceholder(l.Location),
		Description:            orPlaceholder(l.Description),
	}
	if view == ClientView && !l.UpdatedAt.IsZero() {
		d.ConvertedAt = l.UpdatedAt.Format("January 2, 2006")
	}
	return d
}

func fullName(l crmapi.Lead) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.FirstName, l.MiddleName, l.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
