package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

func newIncidentServiceForTest(store *memStore) (*IncidentService, *invalidationRecorder) {
	cache := &invalidationRecorder{}
	svc := NewIncidentService(incidentRepoFake{store}, siteRepoFake{store}, cache, nil, zap.NewNop())
	svc.now = func() time.Time { return store.now.Add(50 * time.Hour) }
	return svc, cache
}

func seedSite(t *testing.T, store *memStore, name, state, district string, risk models.RiskLevel) models.Site {
	t.Helper()
	site := &models.Site{Name: name, State: state, District: district, RiskLevel: risk, ProtectionStatus: models.ProtectionProtected}
	require.NoError(t, siteRepoFake{store}.Create(context.Background(), site))
	return *site
}

func TestIncidentServiceCreate(t *testing.T) {
	store := newMemStore()
	site := seedSite(t, store, "Qutub Minar", "Delhi", "South Delhi", models.RiskMedium)
	svc, cache := newIncidentServiceForTest(store)

	incident, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID:      site.ID,
		Type:        models.IncidentVandalism,
		Severity:    models.RiskHigh,
		Description: "Graffiti on the east wall",
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentOpen, incident.Status)
	require.NotNil(t, incident.ReportedBy)
	assert.Equal(t, "user-1", *incident.ReportedBy)
	assert.Equal(t, 3, incident.DaysOpen)
	assert.Equal(t, []string{DashboardCachePattern}, cache.patterns)
}

func TestIncidentServiceCreateRequiresSite(t *testing.T) {
	svc, _ := newIncidentServiceForTest(newMemStore())

	_, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID:      "3f0c5a8e-4a55-4c55-9d8f-2f5a3ad1b001",
		Type:        models.IncidentStructural,
		Severity:    models.RiskLow,
		Description: "Crack",
	}, "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Create(context.Background(), CreateIncidentRequest{
		SiteID:      "3f0c5a8e-4a55-4c55-9d8f-2f5a3ad1b001",
		Type:        "FLOOD",
		Severity:    models.RiskLow,
		Description: "Water",
	}, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestIncidentServiceStatusTransitions(t *testing.T) {
	store := newMemStore()
	site := seedSite(t, store, "Red Fort", "Delhi", "Central Delhi", models.RiskLow)
	svc, _ := newIncidentServiceForTest(store)

	incident, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID: site.ID, Type: models.IncidentOvercrowding, Severity: models.RiskMedium, Description: "Queue overflow",
	}, "")
	require.NoError(t, err)

	inProgress := models.IncidentInProgress
	updated, err := svc.Update(context.Background(), incident.ID, UpdateIncidentRequest{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentInProgress, updated.Status)
	assert.Nil(t, updated.ResolvedAt)

	open := models.IncidentOpen
	_, err = svc.Update(context.Background(), incident.ID, UpdateIncidentRequest{Status: &open})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	resolved := models.IncidentResolved
	notes := "Barriers installed"
	updated, err = svc.Update(context.Background(), incident.ID, UpdateIncidentRequest{Status: &resolved, ResolutionNotes: &notes})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.True(t, updated.ResolvedAt.Equal(store.now.Add(50*time.Hour)))
	assert.Equal(t, 3, updated.DaysOpen)

	desc := "edited"
	_, err = svc.Update(context.Background(), incident.ID, UpdateIncidentRequest{Description: &desc})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Equal(t, "cannot update a resolved incident", appErr.Message)
}

func TestIncidentServiceResolveRaceLost(t *testing.T) {
	store := newMemStore()
	site := seedSite(t, store, "Charminar", "Telangana", "Hyderabad", models.RiskHigh)
	svc, cache := newIncidentServiceForTest(store)

	incident, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID: site.ID, Type: models.IncidentStructural, Severity: models.RiskHigh, Description: "Loose plaster",
	}, "")
	require.NoError(t, err)
	cache.patterns = nil

	// Another officer resolves the incident between the read and the write.
	store.incidentUpdateHook = func() {
		stored := store.incidents[incident.ID]
		stored.Status = models.IncidentResolved
		store.incidents[incident.ID] = stored
	}
	inProgress := models.IncidentInProgress
	_, err = svc.Update(context.Background(), incident.ID, UpdateIncidentRequest{Status: &inProgress})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Equal(t, "cannot update a resolved incident", appErr.Message)
	assert.Equal(t, models.IncidentResolved, store.incidents[incident.ID].Status)
	assert.Empty(t, cache.patterns)
}

func TestIncidentServiceUpdateDeletedConcurrently(t *testing.T) {
	store := newMemStore()
	site := seedSite(t, store, "Hampi", "Karnataka", "Ballari", models.RiskLow)
	svc, _ := newIncidentServiceForTest(store)

	incident, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID: site.ID, Type: models.IncidentSecurity, Severity: models.RiskLow, Description: "Broken lock",
	}, "")
	require.NoError(t, err)

	store.incidentUpdateHook = func() { delete(store.incidents, incident.ID) }
	desc := "Lock replaced"
	_, err = svc.Update(context.Background(), incident.ID, UpdateIncidentRequest{Description: &desc})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestIncidentServiceOpenToResolvedSkipsProgress(t *testing.T) {
	store := newMemStore()
	site := seedSite(t, store, "Sun Temple", "Odisha", "Puri", models.RiskLow)
	svc, _ := newIncidentServiceForTest(store)

	incident, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID: site.ID, Type: models.IncidentSecurity, Severity: models.RiskLow, Description: "Gate lock broken",
	}, "")
	require.NoError(t, err)

	resolved := models.IncidentResolved
	updated, err := svc.Update(context.Background(), incident.ID, UpdateIncidentRequest{Status: &resolved})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)
}

func TestIncidentServiceDeleteAndList(t *testing.T) {
	store := newMemStore()
	site := seedSite(t, store, "Ellora", "Maharashtra", "Aurangabad", models.RiskLow)
	svc, _ := newIncidentServiceForTest(store)

	first, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID: site.ID, Type: models.IncidentEnvironmental, Severity: models.RiskLow, Description: "Seepage",
	}, "")
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateIncidentRequest{
		SiteID: site.ID, Type: models.IncidentStructural, Severity: models.RiskHigh, Description: "Pillar crack",
	}, "")
	require.NoError(t, err)

	items, pagination, err := svc.List(context.Background(), models.IncidentFilter{SiteID: site.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, 2, pagination.Total)

	require.NoError(t, svc.Delete(context.Background(), first.ID))
	_, err = svc.Get(context.Background(), first.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
