package services

import "fingate-portal/internal/core/domain"

// Capability identifies one operation a role may perform. Screens consult
// the capability table through Can instead of comparing role strings.
type Capability string

const (
	CapViewApplications    Capability = "applications:view"
	CapCreateApplication   Capability = "applications:create"
	CapUploadDocuments     Capability = "documents:upload"
	CapReplaceDocuments    Capability = "documents:replace"
	CapDownloadDocuments   Capability = "documents:download"
	CapSendMessages        Capability = "messages:send"
	CapModerateMessages    Capability = "messages:moderate"
	CapManageAccreditation Capability = "accreditation:manage"
	CapReviewApplications  Capability = "applications:review"
)

// roleCapabilities maps each role onto its allowed operations
var roleCapabilities = map[domain.Role][]Capability{
	domain.RoleClient: {
		CapViewApplications, CapCreateApplication,
		CapUploadDocuments, CapReplaceDocuments, CapDownloadDocuments,
		CapSendMessages,
	},
	domain.RoleAgent: {
		CapViewApplications, CapCreateApplication,
		CapUploadDocuments, CapReplaceDocuments, CapDownloadDocuments,
		CapSendMessages,
	},
	domain.RolePartner: {
		CapViewApplications, CapReviewApplications,
		CapDownloadDocuments, CapSendMessages,
	},
	domain.RoleAdmin: {
		CapViewApplications, CapReviewApplications,
		CapUploadDocuments, CapReplaceDocuments, CapDownloadDocuments,
		CapSendMessages, CapModerateMessages, CapManageAccreditation,
	},
}

// roleLanding maps each role onto its landing route
var roleLanding = map[domain.Role]string{
	domain.RoleClient:  "/client/applications",
	domain.RoleAgent:   "/agent/applications",
	domain.RolePartner: "/partner/applications",
	domain.RoleAdmin:   "/admin",
}

// LoginRoute is where unauthenticated users are redirected
const LoginRoute = "/login"

// GateAction is the outcome of an access gate decision
type GateAction int

const (
	// ActionAllow renders the requested screen
	ActionAllow GateAction = iota
	// ActionRedirect sends the user to RedirectTo
	ActionRedirect
	// ActionWait renders a loading placeholder while the user resolves
	ActionWait
)

// Decision is the access gate verdict for one route
type Decision struct {
	Action     GateAction
	RedirectTo string
}

// Decide yields the gate verdict for a route given the current user and the
// route's declared role set. An empty role set means any authenticated user.
func Decide(user *domain.User, resolving bool, routeRoles []domain.Role) Decision {
	if resolving {
		return Decision{Action: ActionWait}
	}

	if user == nil {
		return Decision{Action: ActionRedirect, RedirectTo: LoginRoute}
	}

	if len(routeRoles) == 0 {
		return Decision{Action: ActionAllow}
	}

	for _, role := range routeRoles {
		if role == user.Role {
			return Decision{Action: ActionAllow}
		}
	}

	return Decision{Action: ActionRedirect, RedirectTo: LandingRoute(user.Role)}
}

// Can reports whether a role holds a capability
func Can(role domain.Role, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// LandingRoute returns the role's landing route, falling back to login
func LandingRoute(role domain.Role) string {
	if route, ok := roleLanding[role]; ok {
		return route
	}
	return LoginRoute
}
