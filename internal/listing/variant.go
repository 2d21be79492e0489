package listing

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

// Kind enumerates the list pages served by the pipeline.
type Kind string

const (
	KindProspects   Kind = "prospects"
	KindLeads       Kind = "leads"
	KindClients     Kind = "clients"
	KindProducts    Kind = "products"
	KindProposals   Kind = "proposals"
	KindVisits      Kind = "visits"
	KindEmployees   Kind = "employees"
	KindDepartments Kind = "departments"
)

// Actions are the row actions a page offers.
type Actions struct {
	View         bool `json:"view"`
	Delete       bool `json:"delete"`
	ChangeStatus bool `json:"changeStatus"`
}

// Variant configures one list page over rows of type T.
type Variant[T any] struct {
	Kind Kind
	// Fetch retrieves the role-appropriate collection.
	Fetch func(ctx context.Context, id tenancy.Identity) ([]T, error)
	// Baseline is the fixed predicate selecting the page's subset; nil keeps all.
	Baseline func(T) bool
	// Category matches a category/business-type filter; nil ignores it.
	Category func(row T, category string) bool
	// Searchable lists the display fields the free-text query matches.
	Searchable   func(T) []string
	Actions      Actions
	Columns      []string
	EmptyMessage string
}

// State is the page-level status.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Page is the displayed slice of a list plus everything needed to render it.
type Page[T any] struct {
	Kind          Kind     `json:"kind"`
	State         State    `json:"state"`
	Rows          []T      `json:"rows"`
	Page          int      `json:"page"`
	PageSize      int      `json:"pageSize"`
	TotalPages    int      `json:"totalPages"`
	Matches       int      `json:"matches"`
	BaselineTotal int      `json:"baselineTotal"`
	Search        string   `json:"search"`
	Category      string   `json:"category"`
	Actions       Actions  `json:"actions"`
	Columns       []string `json:"columns"`
	EmptyMessage  string   `json:"emptyMessage,omitempty"`
	Error         string   `json:"error,omitempty"`
	RetryURL      string   `json:"retryUrl,omitempty"`
}

// Filter recomputes the matching rows from the baseline. It never fetches.
func Filter[T any](v Variant[T], baseline []T, search, category string) []T {
	out := make([]T, 0, len(baseline))
	for _, row := range baseline {
		if v.Category != nil && category != "" && !v.Category(row, category) {
			continue
		}
		if !matchesSearch(v, row, search) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matchesSearch[T any](v Variant[T], row T, search string) bool {
	if search == "" || v.Searchable == nil {
		return true
	}
	for _, field := range v.Searchable(row) {
		if ContainsFold(field, search) {
			return true
		}
	}
	return false
}

// Paginate returns the rows of page (1-based) and the clamped page number.
func Paginate[T any](rows []T, page, size int) ([]T, int, int) {
	if size < 1 {
		size = 1
	}
	totalPages := (len(rows) + size - 1) / size
	if page < 1 {
		page = 1
	}
	switch {
	case totalPages == 0:
		page = 1
	case page > totalPages:
		page = totalPages
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []T{}, page, totalPages
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], page, totalPages
}

// Render builds the ready page for a baseline and view.
func Render[T any](v Variant[T], baseline []T, view session.ViewState, pageSize int) Page[T] {
	matches := Filter(v, baseline, view.Search, view.Category)
	rows, page, totalPages := Paginate(matches, view.Page, pageSize)
	p := Page[T]{
		Kind:          v.Kind,
		State:         StateReady,
		Rows:          rows,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
		Matches:       len(matches),
		BaselineTotal: len(baseline),
		Search:        view.Search,
		Category:      view.Category,
		Actions:       v.Actions,
		Columns:       v.Columns,
	}
	if len(matches) == 0 {
		p.EmptyMessage = v.EmptyMessage
	}
	return p
}

// ContainsFold reports whether needle occurs in haystack under Unicode case
// folding. An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(cases.Fold().String(haystack), cases.Fold().String(needle))
}

// EqualFold compares two strings under Unicode case folding.
func EqualFold(a, b string) bool {
	return cases.Fold().String(a) == cases.Fold().String(b)
}
