package crmapi

// Envelope is the response shape shared by every backend endpoint.
type Envelope[T any] struct {
	Success *bool  `json:"success"`
	Data    *T     `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// failed treats an absent success flag like success:false.
func (e Envelope[T]) failed() bool {
	return e.Success == nil || !*e.Success
}

func (e Envelope[T]) reason() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	default:
		return "request failed"
	}
}

// payload is implemented by data shapes that must carry a collection or
// entity to be usable.
type payload interface {
	complete() bool
}

type LeadsPayload struct {
	Leads []Lead `json:"leads"`
}

func (p LeadsPayload) complete() bool { return p.Leads != nil }

type ProductsPayload struct {
	Products []Product `json:"products"`
}

func (p ProductsPayload) complete() bool { return p.Products != nil }

type ProductPayload struct {
	Product *Product `json:"product"`
}

func (p ProductPayload) complete() bool { return p.Product != nil }

type ProposalsPayload struct {
	Proposals []Proposal `json:"proposals"`
}

func (p ProposalsPayload) complete() bool { return p.Proposals != nil }

type ProposalPayload struct {
	Proposal *Proposal `json:"proposal"`
}

func (p ProposalPayload) complete() bool { return p.Proposal != nil }

type VisitsPayload struct {
	Visits []Visit `json:"visits"`
}

func (p VisitsPayload) complete() bool { return p.Visits != nil }

type VisitPayload struct {
	Visit *Visit `json:"visit"`
}

func (p VisitPayload) complete() bool { return p.Visit != nil }

type DepartmentsPayload struct {
	Departments []Department `json:"departments"`
}

func (p DepartmentsPayload) complete() bool { return p.Departments != nil }

type DepartmentPayload struct {
	Department *Department `json:"department"`
}

func (p DepartmentPayload) complete() bool { return p.Department != nil }

type MembersPayload struct {
	Users []Member `json:"users"`
}

func (p MembersPayload) complete() bool { return p.Users != nil }

type OrganizationsPayload struct {
	Organizations []*Organization `json:"organizations"`
}

func (p OrganizationsPayload) complete() bool { return p.Organizations != nil }

type ReportPayload struct {
	Report *Report `json:"report"`
}

func (p ReportPayload) complete() bool { return p.Report != nil }

// loginResponse is flat: token and user sit beside success.
type loginResponse struct {
	Success *bool     `json:"success"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	Token   string    `json:"token"`
	User    LoginUser `json:"user"`
}
