package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

// memStore backs every fake repository so cross-resource flows can be exercised.
type memStore struct {
	mu        sync.Mutex
	now       time.Time
	sites     map[string]models.Site
	incidents map[string]models.Incident
	projects  map[string]models.Conservation
	approvals map[string]models.Approval
	footfall  []models.Footfall
	users     map[string]models.User

	// incidentUpdateHook runs inside the incident Update fake before the guard.
	incidentUpdateHook func()
}

func newMemStore() *memStore {
	return &memStore{
		now:       time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		sites:     map[string]models.Site{},
		incidents: map[string]models.Incident{},
		projects:  map[string]models.Conservation{},
		approvals: map[string]models.Approval{},
		users:     map[string]models.User{},
	}
}

func pageOf[T any](items []T, req models.PageRequest) ([]T, int) {
	total := len(items)
	start := req.Offset()
	if start >= total {
		return []T{}, total
	}
	end := start + req.Normalize().Limit
	if end > total {
		end = total
	}
	return items[start:end], total
}

type invalidationRecorder struct {
	patterns []string
}

func (r *invalidationRecorder) Invalidate(_ context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	return nil
}

type stubCacheRepo struct {
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	s.store = nil
	return nil
}

type siteRepoFake struct{ *memStore }

func (f siteRepoFake) List(_ context.Context, filter models.SiteFilter) ([]models.Site, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Site
	for _, s := range f.sites {
		if filter.State != "" && s.State != filter.State {
			continue
		}
		if filter.RiskLevel != "" && s.RiskLevel != filter.RiskLevel {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	page, total := pageOf(out, filter.PageRequest)
	return page, total, nil
}

func (f siteRepoFake) FindByID(_ context.Context, id string) (*models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sites[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f siteRepoFake) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sites[id]
	return ok, nil
}

func (f siteRepoFake) Create(_ context.Context, site *models.Site) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	site.ID = uuid.NewString()
	site.CreatedAt, site.UpdatedAt = f.now, f.now
	f.sites[site.ID] = *site
	return nil
}

func (f siteRepoFake) Update(_ context.Context, site *models.Site) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sites[site.ID]; !ok {
		return sql.ErrNoRows
	}
	f.sites[site.ID] = *site
	return nil
}

func (f siteRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sites[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.sites, id)
	return nil
}

func (f siteRepoFake) Nearby(context.Context, models.NearbyQuery) ([]models.NearbySite, error) {
	return nil, nil
}

func (f siteRepoFake) Statistics(_ context.Context, id string) (*models.SiteStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sites[id]; !ok {
		return nil, sql.ErrNoRows
	}
	stats := &models.SiteStatistics{}
	for _, inc := range f.incidents {
		if inc.SiteID != id {
			continue
		}
		stats.TotalIncidents++
		if inc.Status == models.IncidentOpen {
			stats.ActiveIncidents++
		}
	}
	return stats, nil
}

type incidentRepoFake struct{ *memStore }

func (f incidentRepoFake) List(_ context.Context, filter models.IncidentFilter) ([]models.Incident, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Incident
	for _, inc := range f.incidents {
		if filter.SiteID != "" && inc.SiteID != filter.SiteID {
			continue
		}
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && inc.Severity != filter.Severity {
			continue
		}
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	page, total := pageOf(out, filter.PageRequest)
	return page, total, nil
}

func (f incidentRepoFake) FindByID(_ context.Context, id string) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc, ok := f.incidents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &inc, nil
}

func (f incidentRepoFake) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.incidents[id]
	return ok, nil
}

func (f incidentRepoFake) Create(_ context.Context, inc *models.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc.ID = uuid.NewString()
	inc.CreatedAt = f.now.Add(time.Duration(len(f.incidents)) * time.Minute)
	inc.UpdatedAt = inc.CreatedAt
	f.incidents[inc.ID] = *inc
	return nil
}

func (f incidentRepoFake) Update(_ context.Context, inc *models.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incidentUpdateHook != nil {
		f.incidentUpdateHook()
	}
	stored, ok := f.incidents[inc.ID]
	if !ok || stored.Status == models.IncidentResolved {
		return sql.ErrNoRows
	}
	f.incidents[inc.ID] = *inc
	return nil
}

func (f incidentRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.incidents[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.incidents, id)
	return nil
}

type conservationRepoFake struct{ *memStore }

func (f conservationRepoFake) List(_ context.Context, filter models.ConservationFilter) ([]models.Conservation, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Conservation
	for _, p := range f.projects {
		if filter.SiteID != "" && p.SiteID != filter.SiteID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	page, total := pageOf(out, filter.PageRequest)
	return page, total, nil
}

func (f conservationRepoFake) FindByID(_ context.Context, id string) (*models.Conservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (f conservationRepoFake) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.projects[id]
	return ok, nil
}

func (f conservationRepoFake) Create(_ context.Context, p *models.Conservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = f.now, f.now
	f.projects[p.ID] = *p
	return nil
}

func (f conservationRepoFake) Update(_ context.Context, p *models.Conservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[p.ID]; !ok {
		return sql.ErrNoRows
	}
	f.projects[p.ID] = *p
	return nil
}

func (f conservationRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.projects, id)
	return nil
}

type approvalRepoFake struct {
	*memStore
	reviewCalls int
	reviewHook  func()
}

func (f *approvalRepoFake) List(_ context.Context, filter models.ApprovalFilter) ([]models.Approval, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Approval
	for _, a := range f.approvals {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Type != "" && a.SubjectType != filter.Type {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPriority != out[j].IsPriority {
			return out[i].IsPriority
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	page, total := pageOf(out, filter.PageRequest)
	return page, total, nil
}

func (f *approvalRepoFake) FindByID(_ context.Context, id string) (*models.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.approvals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (f *approvalRepoFake) Create(_ context.Context, a *models.Approval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = f.now.Add(time.Duration(len(f.approvals)) * time.Minute)
	a.UpdatedAt = a.CreatedAt
	f.approvals[a.ID] = *a
	return nil
}

// Review mirrors the conditional UPDATE: only PENDING rows change.
func (f *approvalRepoFake) Review(_ context.Context, a *models.Approval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewCalls++
	if f.reviewHook != nil {
		f.reviewHook()
	}
	stored, ok := f.approvals[a.ID]
	if !ok || stored.Status != models.ApprovalPending {
		return sql.ErrNoRows
	}
	f.approvals[a.ID] = *a
	return nil
}

func (f *approvalRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.approvals[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.approvals, id)
	return nil
}

type footfallRepoFake struct {
	*memStore
	lastFilter models.FootfallFilter
}

func (f *footfallRepoFake) Create(_ context.Context, entry *models.Footfall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = f.now
	f.footfall = append(f.footfall, *entry)
	return nil
}

func (f *footfallRepoFake) List(_ context.Context, filter models.FootfallFilter) ([]models.Footfall, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []models.Footfall
	for _, e := range f.footfall {
		if filter.SiteID != "" && e.SiteID != filter.SiteID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	page, total := pageOf(out, filter.PageRequest)
	return page, total, nil
}

type userRepoFake struct{ *memStore }

func (f userRepoFake) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	page, total := pageOf(out, filter.PageRequest)
	return page, total, nil
}

func (f userRepoFake) find(match func(models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f userRepoFake) FindByID(_ context.Context, id string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.ID == id })
}

func (f userRepoFake) FindByClerkID(_ context.Context, clerkID string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.ClerkID == clerkID })
}

func (f userRepoFake) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Email == email })
}

func (f userRepoFake) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = f.now, f.now
	f.users[u.ID] = *u
	return nil
}

func (f userRepoFake) Update(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return sql.ErrNoRows
	}
	f.users[u.ID] = *u
	return nil
}

func (f userRepoFake) Deactivate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsActive = false
	f.users[id] = u
	return nil
}

// dashboardRepoFake evaluates the aggregations over the in-memory store.
type dashboardRepoFake struct {
	*memStore
	err         error
	regionCalls []models.RegionQuery
	trendSince  time.Time
	activity    []models.ActivityRecord
}

func (f *dashboardRepoFake) covers(scope models.SiteScope, siteID string) bool {
	if scope.All() {
		return true
	}
	for _, id := range scope.SiteIDs {
		if id == siteID {
			return true
		}
	}
	return false
}

func (f *dashboardRepoFake) ResolveSiteIDs(_ context.Context, scope models.SiteScope) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case scope.Scope == models.ScopeState && scope.State != "":
		ids := []string{}
		for id, s := range f.sites {
			if s.State == scope.State {
				ids = append(ids, id)
			}
		}
		return ids, nil
	case scope.Scope == models.ScopeSite && scope.SiteID != "":
		ids := []string{}
		if _, ok := f.sites[scope.SiteID]; ok {
			ids = append(ids, scope.SiteID)
		}
		return ids, nil
	}
	return nil, nil
}

func (f *dashboardRepoFake) KPIs(_ context.Context, scope models.SiteScope) (*models.KPICounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := &models.KPICounts{}
	for id, s := range f.sites {
		if !f.covers(scope, id) {
			continue
		}
		k.TotalSites++
		if s.RiskLevel == models.RiskHigh {
			k.HighRiskSites++
		}
		k.VisitorCapacity += int64(s.VisitorCapacity)
	}
	for _, inc := range f.incidents {
		if f.covers(scope, inc.SiteID) && inc.Status != models.IncidentResolved {
			k.ActiveIncidents++
		}
	}
	for _, a := range f.approvals {
		if a.Status == models.ApprovalPending {
			k.PendingApprovals++
		}
	}
	for _, p := range f.projects {
		if f.covers(scope, p.SiteID) && p.Status == models.ConservationOngoing {
			k.ConservationOngoing++
		}
	}
	return k, nil
}

func (f *dashboardRepoFake) SeverityCounts(_ context.Context, scope models.SiteScope) ([]models.SeverityCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[models.RiskLevel]int{}
	for _, inc := range f.incidents {
		if f.covers(scope, inc.SiteID) && inc.Status != models.IncidentResolved {
			counts[inc.Severity]++
		}
	}
	var rows []models.SeverityCount
	for sev, n := range counts {
		rows = append(rows, models.SeverityCount{Severity: sev, Count: n})
	}
	return rows, nil
}

func (f *dashboardRepoFake) FootfallTrend(_ context.Context, scope models.SiteScope, since time.Time) ([]models.FootfallPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trendSince = since
	byDay := map[time.Time]int64{}
	for _, e := range f.footfall {
		if f.covers(scope, e.SiteID) && !e.Date.Before(since) {
			byDay[e.Date] += int64(e.Visitors)
		}
	}
	var points []models.FootfallPoint
	for day, v := range byDay {
		points = append(points, models.FootfallPoint{Day: day, Visitors: v})
	}
	return points, nil
}

func (f *dashboardRepoFake) RecentActivity(context.Context, models.SiteScope) ([]models.ActivityRecord, error) {
	return f.activity, nil
}

func (f *dashboardRepoFake) RegionSummary(_ context.Context, q models.RegionQuery) ([]models.RegionRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regionCalls = append(f.regionCalls, q)
	rows := map[string]*models.RegionRow{}
	for id, s := range f.sites {
		if q.State != "" && s.State != q.State {
			continue
		}
		key := s.State
		if q.GroupBy == models.GroupByDistrict {
			key = s.District
		}
		row, ok := rows[key]
		if !ok {
			row = &models.RegionRow{Region: key}
			rows[key] = row
		}
		row.Sites++
		if s.RiskLevel == models.RiskHigh {
			row.HighRiskSites++
		}
		for _, inc := range f.incidents {
			if inc.SiteID == id && inc.Status != models.IncidentResolved {
				row.Alerts++
			}
		}
	}
	out := make([]models.RegionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }
