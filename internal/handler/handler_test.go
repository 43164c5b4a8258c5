package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/dto"
	"github.com/noah-isme/heritage-api/internal/middleware"
	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/service"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
	"github.com/noah-isme/heritage-api/pkg/identity"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func testContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

type fakeSiteSrv struct {
	siteService
	lastFilter models.SiteFilter
	lastNearby service.NearbyRequest
}

func (f *fakeSiteSrv) List(_ context.Context, filter models.SiteFilter) ([]models.Site, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Site{{ID: "s1", Name: "Taj Mahal"}}, &models.Pagination{Page: filter.Page, Limit: filter.Limit, Total: 1}, nil
}

func (f *fakeSiteSrv) Nearby(_ context.Context, req service.NearbyRequest) ([]models.NearbySite, error) {
	f.lastNearby = req
	return []models.NearbySite{}, nil
}

func TestSiteHandlerListShapesPage(t *testing.T) {
	srv := &fakeSiteSrv{}
	c, rec := testContext(http.MethodGet, "/sites?page=2&limit=5&riskLevel=high&state=Goa", nil)

	NewSiteHandler(srv).List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decode(t, rec)
	assert.Len(t, envelope.Data["sites"], 1)
	assert.EqualValues(t, 1, envelope.Data["total"])
	assert.EqualValues(t, 2, envelope.Data["page"])
	assert.EqualValues(t, 5, envelope.Data["limit"])
	assert.Equal(t, models.RiskHigh, srv.lastFilter.RiskLevel)
	assert.Equal(t, "Goa", srv.lastFilter.State)
}

func TestSiteHandlerListRejectsBadPagination(t *testing.T) {
	for _, target := range []string{"/sites?page=0", "/sites?limit=abc", "/sites?page=-3"} {
		c, rec := testContext(http.MethodGet, target, nil)
		NewSiteHandler(&fakeSiteSrv{}).List(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, appErrors.ErrValidation.Code, decode(t, rec).Error.Code, target)
	}
}

func TestSiteHandlerNearbyParsesNumbers(t *testing.T) {
	srv := &fakeSiteSrv{}
	c, rec := testContext(http.MethodGet, "/sites/nearby?latitude=27.17&longitude=78.04", nil)
	NewSiteHandler(srv).Nearby(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastNearby.Latitude)
	assert.InDelta(t, 27.17, *srv.lastNearby.Latitude, 1e-9)
	assert.Nil(t, srv.lastNearby.MaxDistance)

	c, rec = testContext(http.MethodGet, "/sites/nearby?latitude=north&longitude=78", nil)
	NewSiteHandler(srv).Nearby(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeIncidentSrv struct {
	incidentService
	actorID string
	err     error
}

func (f *fakeIncidentSrv) Create(_ context.Context, req service.CreateIncidentRequest, actorID string) (*models.Incident, error) {
	f.actorID = actorID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Incident{ID: "inc-1", SiteID: req.SiteID, Status: models.IncidentOpen}, nil
}

func TestIncidentHandlerCreateUsesActor(t *testing.T) {
	srv := &fakeIncidentSrv{}
	body := []byte(`{"siteId":"3f0c5a8e-4a55-4c55-9d8f-2f5a3ad1b001","type":"VANDALISM","severity":"HIGH","description":"Graffiti"}`)
	c, rec := testContext(http.MethodPost, "/incidents", body)
	c.Set(middleware.ContextUserKey, &models.User{ID: "user-7", Role: models.RoleSiteOfficer})

	NewIncidentHandler(srv).Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-7", srv.actorID)
	assert.Equal(t, "inc-1", decode(t, rec).Data["id"])
}

func TestIncidentHandlerCreateErrors(t *testing.T) {
	c, rec := testContext(http.MethodPost, "/incidents", []byte(`{}`))
	NewIncidentHandler(&fakeIncidentSrv{}).Create(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = testContext(http.MethodPost, "/incidents", []byte(`{"siteId":`))
	c.Set(middleware.ContextUserKey, &models.User{ID: "user-7"})
	NewIncidentHandler(&fakeIncidentSrv{}).Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = testContext(http.MethodPost, "/incidents", []byte(`{}`))
	c.Set(middleware.ContextUserKey, &models.User{ID: "user-7"})
	NewIncidentHandler(&fakeIncidentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "site not found")}).Create(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "site not found", decode(t, rec).Error.Message)
}

type fakeApprovalSrv struct {
	approvalService
	expand bool
}

func (f *fakeApprovalSrv) Get(_ context.Context, id string, expand bool) (*models.Approval, error) {
	f.expand = expand
	return &models.Approval{ID: id, Status: models.ApprovalPending}, nil
}

func TestApprovalHandlerGetExpand(t *testing.T) {
	cases := map[string]bool{
		"/approvals/a1":                                    false,
		"/approvals/a1?expand=subject":                     true,
		"/approvals/a1?expandSubject=true":                 true,
		"/approvals/a1?expand=subject&expandSubject=false": false,
	}
	for target, want := range cases {
		srv := &fakeApprovalSrv{}
		c, rec := testContext(http.MethodGet, target, nil)
		c.Params = gin.Params{{Key: "id", Value: "a1"}}

		NewApprovalHandler(srv).Get(c)

		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, want, srv.expand, target)
	}
}

type fakeFootfallSrv struct {
	footfallService
	filter models.FootfallFilter
}

func (f *fakeFootfallSrv) List(_ context.Context, filter models.FootfallFilter) ([]models.Footfall, *models.Pagination, error) {
	f.filter = filter
	return nil, &models.Pagination{Page: 1, Limit: 10}, nil
}

func TestFootfallHandlerListParsesDates(t *testing.T) {
	srv := &fakeFootfallSrv{}
	c, rec := testContext(http.MethodGet, "/footfall?from=2024-06-01&to=2024-06-07T23:59:59Z", nil)
	NewFootfallHandler(srv).List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.filter.From)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *srv.filter.From)
	assert.Equal(t, 23, srv.filter.To.Hour())

	c, rec = testContext(http.MethodGet, "/footfall?from=06/01/2024", nil)
	NewFootfallHandler(srv).List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeDashboardSrv struct {
	overview *dto.DashboardOverview
	hit      bool
	err      error
	query    dto.DashboardQuery
}

func (f *fakeDashboardSrv) Overview(_ context.Context, q dto.DashboardQuery) (*dto.DashboardOverview, bool, error) {
	f.query = q
	return f.overview, f.hit, f.err
}

type fakeExporter struct {
	file   *service.ExportFile
	err    error
	format string
}

func (f *fakeExporter) RegionSummary(_ context.Context, _ dto.DashboardQuery, format string) (*service.ExportFile, error) {
	f.format = format
	return f.file, f.err
}

func TestDashboardHandlerOverviewMeta(t *testing.T) {
	srv := &fakeDashboardSrv{overview: &dto.DashboardOverview{Scope: models.ScopeState, State: "Kerala"}, hit: true}
	c, rec := testContext(http.MethodGet, "/dashboard/overview?scope=STATE&state=Kerala&activityWithin=2h", nil)
	middleware.WithResponseMeta()(c)

	NewDashboardHandler(srv, &fakeExporter{}).Overview(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, true, envelope.Meta["unscopedApprovals"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, "state", envelope.Data["scope"])
	assert.Equal(t, models.ScopeState, srv.query.Scope)
	assert.Equal(t, "2h", srv.query.ActivityWithin)
}

func TestDashboardHandlerOverviewError(t *testing.T) {
	srv := &fakeDashboardSrv{err: appErrors.Clone(appErrors.ErrValidation, "scope must be one of national, state, site")}
	c, rec := testContext(http.MethodGet, "/dashboard/overview?scope=planet", nil)

	NewDashboardHandler(srv, &fakeExporter{}).Overview(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerExport(t *testing.T) {
	exporter := &fakeExporter{file: &service.ExportFile{
		Filename:    "region_summary_national_20240610_083000.csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        []byte("Region,Sites\n"),
	}}
	c, rec := testContext(http.MethodGet, "/dashboard/export?format=csv", nil)

	NewDashboardHandler(&fakeDashboardSrv{}, exporter).Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="region_summary_national_20240610_083000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Region,Sites\n", rec.Body.String())
}

type fakeUserSrv struct {
	userService
	events []dto.WebhookEvent
	err    error
}

func (f *fakeUserSrv) HandleLifecycleEvent(_ context.Context, event dto.WebhookEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type webhookCounter map[string]int

func (w webhookCounter) RecordWebhookEvent(eventType, outcome string) {
	w[eventType+"/"+outcome]++
}

const testWebhookSecret = "whsec_dGVzdC1zZWNyZXQtZm9yLXdlYmhvb2tz"

func webhookRequest(t *testing.T, payload []byte, sign bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	verifier, err := identity.NewWebhookVerifier(testWebhookSecret, 0)
	require.NoError(t, err)
	c, rec := testContext(http.MethodPost, "/users/webhook", payload)
	now := time.Now()
	c.Request.Header.Set(identity.HeaderWebhookID, "msg_1")
	c.Request.Header.Set(identity.HeaderWebhookTimestamp, strconv.FormatInt(now.Unix(), 10))
	signature := "v1,bm90LXRoZS1zaWduYXR1cmU="
	if sign {
		signature, err = verifier.Sign("msg_1", now, payload)
		require.NoError(t, err)
	}
	c.Request.Header.Set(identity.HeaderWebhookSignature, signature)
	return c, rec
}

func newWebhookHandler(t *testing.T, srv *fakeUserSrv, counter webhookCounter) *UserHandler {
	t.Helper()
	verifier, err := identity.NewWebhookVerifier(testWebhookSecret, 0)
	require.NoError(t, err)
	return NewUserHandler(srv, verifier, counter, zap.NewNop())
}

func TestUserHandlerWebhookProcessesSignedEvent(t *testing.T) {
	srv := &fakeUserSrv{}
	counter := webhookCounter{}
	payload := []byte(`{"type":"user.created","data":{"id":"user_1","first_name":"Asha"}}`)
	c, rec := webhookRequest(t, payload, true)

	newWebhookHandler(t, srv, counter).Webhook(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	require.Len(t, srv.events, 1)
	assert.Equal(t, "user_1", srv.events[0].Data.ID)
	assert.Equal(t, 1, counter["user.created/processed"])
}

func TestUserHandlerWebhookRejectsBadSignature(t *testing.T) {
	srv := &fakeUserSrv{}
	counter := webhookCounter{}
	c, rec := webhookRequest(t, []byte(`{"type":"user.deleted","data":{"id":"user_1"}}`), false)

	newWebhookHandler(t, srv, counter).Webhook(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid webhook signature", decode(t, rec).Error.Message)
	assert.Empty(t, srv.events)
	assert.Equal(t, 1, counter["unknown/rejected"])
}

func TestUserHandlerWebhookWithoutSecret(t *testing.T) {
	verifier, err := identity.NewWebhookVerifier("", 0)
	require.NoError(t, err)
	c, rec := webhookRequest(t, []byte(`{}`), false)

	NewUserHandler(&fakeUserSrv{}, verifier, nil, nil).Webhook(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "webhook secret not configured", decode(t, rec).Error.Message)
}

func TestUserHandlerWebhookServiceFailure(t *testing.T) {
	srv := &fakeUserSrv{err: appErrors.Clone(appErrors.ErrNotFound, "user not found")}
	counter := webhookCounter{}
	c, rec := webhookRequest(t, []byte(`{"type":"user.updated","data":{"id":"user_404"}}`), true)

	newWebhookHandler(t, srv, counter).Webhook(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, counter["user.updated/failed"])
}

func TestUserHandlerMe(t *testing.T) {
	c, rec := testContext(http.MethodGet, "/users/me", nil)
	c.Set(middleware.ContextUserKey, &models.User{ID: "user-1", Email: "me@example.com", Role: models.RoleStateAdmin})

	NewUserHandler(&fakeUserSrv{}, nil, nil, nil).Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "me@example.com", decode(t, rec).Data["email"])
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	cases := []struct {
		name   string
		db     Pinger
		cache  Pinger
		code   int
		status string
		cacheS interface{}
	}{
		{"all healthy", stubPinger{}, stubPinger{}, http.StatusOK, "ready", "ok"},
		{"cache degraded", stubPinger{}, stubPinger{err: errors.New("redis down")}, http.StatusOK, "ready", "degraded"},
		{"cache disabled", stubPinger{}, nil, http.StatusOK, "ready", nil},
		{"database down", stubPinger{err: errors.New("pg down")}, nil, http.StatusServiceUnavailable, "not_ready", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := testContext(http.MethodGet, "/ready", nil)
			NewMetricsHandler(service.NewMetricsService(), tc.db, tc.cache).Ready(c)

			assert.Equal(t, tc.code, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body["status"])
			assert.Equal(t, tc.cacheS, body["cache"])
		})
	}
}
