package leads

import "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"

// View is the detail presentation chosen for a lead's status.
type View string

const (
	ProspectView View = "prospect"
	LeadView     View = "lead"
	ClientView   View = "client"
	UnknownView  View = "unknown"
)

// ViewFor maps every status, including unrecognized ones, to a view.
func ViewFor(status crmapi.LeadStatus) View {
	switch status {
	case crmapi.StatusProspect:
		return ProspectView
	case crmapi.StatusLead, crmapi.StatusQualified:
		return LeadView
	case crmapi.StatusClosed:
		return ClientView
	default:
		return UnknownView
	}
}

var funnel = []crmapi.LeadStatus{
	crmapi.StatusProspect,
	crmapi.StatusLead,
	crmapi.StatusQualified,
	crmapi.StatusClosed,
}

func stage(s crmapi.LeadStatus) int {
	for i, st := range funnel {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether to is strictly later in the funnel than from.
func CanTransition(from, to crmapi.LeadStatus) bool {
	f, t := stage(from), stage(to)
	return f >= 0 && t >= 0 && t > f
}

// Targets lists the statuses a lead in from may move to.
func Targets(from crmapi.LeadStatus) []crmapi.LeadStatus {
	out := []crmapi.LeadStatus{}
	for _, to := range funnel {
		if CanTransition(from, to) {
			out = append(out, to)
		}
	}
	return out
}
