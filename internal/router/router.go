package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/heritage-api/internal/handler"
	"github.com/noah-isme/heritage-api/internal/middleware"
	"github.com/noah-isme/heritage-api/internal/models"
)

// Route binds one endpoint to its handler and role allow-list.
// Public routes skip bearer authentication; an empty Roles list admits any authenticated user.
type Route struct {
	Method  string
	Path    string
	Roles   []models.UserRole
	Public  bool
	Handler gin.HandlerFunc
}

// Handlers groups the HTTP handlers served under the API prefix.
type Handlers struct {
	Sites        *handler.SiteHandler
	Incidents    *handler.IncidentHandler
	Conservation *handler.ConservationHandler
	Approvals    *handler.ApprovalHandler
	Footfall     *handler.FootfallHandler
	Users        *handler.UserHandler
	Dashboard    *handler.DashboardHandler
	Metrics      *handler.MetricsHandler
}

var (
	anyRole      []models.UserRole
	admins       = []models.UserRole{models.RoleNationalAdmin, models.RoleStateAdmin}
	nationalOnly = []models.UserRole{models.RoleNationalAdmin}
	allRoles     = []models.UserRole{models.RoleNationalAdmin, models.RoleStateAdmin, models.RoleSiteOfficer}
)

// Table lists every API route with the roles allowed to call it.
func Table(h Handlers) []Route {
	return []Route{
		{http.MethodGet, "/sites", anyRole, false, h.Sites.List},
		{http.MethodGet, "/sites/nearby", anyRole, false, h.Sites.Nearby},
		{http.MethodGet, "/sites/:id", anyRole, false, h.Sites.Get},
		{http.MethodGet, "/sites/:id/statistics", anyRole, false, h.Sites.Statistics},
		{http.MethodPost, "/sites", admins, false, h.Sites.Create},
		{http.MethodPatch, "/sites/:id", admins, false, h.Sites.Update},
		{http.MethodDelete, "/sites/:id", nationalOnly, false, h.Sites.Delete},

		{http.MethodGet, "/incidents", anyRole, false, h.Incidents.List},
		{http.MethodGet, "/incidents/:id", anyRole, false, h.Incidents.Get},
		{http.MethodPost, "/incidents", anyRole, false, h.Incidents.Create},
		{http.MethodPatch, "/incidents/:id", allRoles, false, h.Incidents.Update},
		{http.MethodDelete, "/incidents/:id", admins, false, h.Incidents.Delete},

		{http.MethodGet, "/conservation", anyRole, false, h.Conservation.List},
		{http.MethodGet, "/conservation/:id", anyRole, false, h.Conservation.Get},
		{http.MethodPost, "/conservation", admins, false, h.Conservation.Create},
		{http.MethodPatch, "/conservation/:id", admins, false, h.Conservation.Update},
		{http.MethodDelete, "/conservation/:id", nationalOnly, false, h.Conservation.Delete},

		{http.MethodGet, "/approvals", anyRole, false, h.Approvals.List},
		{http.MethodGet, "/approvals/:id", anyRole, false, h.Approvals.Get},
		{http.MethodPost, "/approvals", anyRole, false, h.Approvals.Create},
		{http.MethodPatch, "/approvals/:id/review", admins, false, h.Approvals.Review},
		{http.MethodDelete, "/approvals/:id", nationalOnly, false, h.Approvals.Delete},

		{http.MethodGet, "/footfall", anyRole, false, h.Footfall.List},
		{http.MethodPost, "/footfall", allRoles, false, h.Footfall.Record},

		{http.MethodGet, "/users", admins, false, h.Users.List},
		{http.MethodGet, "/users/me", anyRole, false, h.Users.Me},
		{http.MethodGet, "/users/:id", anyRole, false, h.Users.Get},
		{http.MethodPost, "/users", nationalOnly, false, h.Users.Create},
		{http.MethodPatch, "/users/:id", nationalOnly, false, h.Users.Update},
		{http.MethodDelete, "/users/:id", nationalOnly, false, h.Users.Delete},
		{http.MethodPost, "/users/webhook", nil, true, h.Users.Webhook},

		{http.MethodGet, "/dashboard/overview", anyRole, false, h.Dashboard.Overview},
		{http.MethodGet, "/dashboard/export", anyRole, false, h.Dashboard.Export},

		{http.MethodGet, "/metrics/summary", nationalOnly, false, h.Metrics.Summary},
	}
}

// Register mounts routes on group, guarding non-public routes with bearer auth and their role list.
func Register(group *gin.RouterGroup, auth middleware.Authenticator, routes []Route) {
	authenticate := middleware.Auth(auth)
	for _, rt := range routes {
		if rt.Public {
			group.Handle(rt.Method, rt.Path, rt.Handler)
			continue
		}
		group.Handle(rt.Method, rt.Path, authenticate, middleware.RequireRoles(rt.Roles...), rt.Handler)
	}
}
