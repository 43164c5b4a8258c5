package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/repository"
	"github.com/noah-isme/heritage-api/internal/service"
	"github.com/noah-isme/heritage-api/pkg/config"
	"github.com/noah-isme/heritage-api/pkg/database"
	"github.com/noah-isme/heritage-api/pkg/logger"
)

type sampleSite struct {
	name, state, district string
	lon, lat              float64
	protection            models.ProtectionStatus
	risk                  models.RiskLevel
	capacity              int
	description           string
}

var sampleSites = []sampleSite{
	{"Taj Mahal", "Uttar Pradesh", "Agra", 78.0421, 27.1751, models.ProtectionProtected, models.RiskMedium, 40000, "White marble mausoleum on the south bank of the Yamuna"},
	{"Qutub Minar", "Delhi", "South Delhi", 77.1855, 28.5245, models.ProtectionProtected, models.RiskLow, 15000, "Brick minaret of the Qutb complex"},
	{"Red Fort", "Delhi", "Central Delhi", 77.2410, 28.6562, models.ProtectionProtected, models.RiskHigh, 25000, "Fortified palace complex"},
	{"Charminar", "Telangana", "Hyderabad", 78.4747, 17.3616, models.ProtectionRestricted, models.RiskHigh, 10000, "Monument and mosque in the old city"},
	{"Ajanta Caves", "Maharashtra", "Aurangabad", 75.7033, 20.5519, models.ProtectionProtected, models.RiskMedium, 5000, "Rock-cut Buddhist cave monuments"},
	{"Hawa Mahal", "Rajasthan", "Jaipur", 75.8267, 26.9239, models.ProtectionOpen, models.RiskLow, 8000, "Palace of Winds"},
	{"Konark Sun Temple", "Odisha", "Puri", 86.0945, 19.8876, models.ProtectionProtected, models.RiskMedium, 12000, "Thirteenth-century sun temple"},
	{"Hampi", "Karnataka", "Ballari", 76.4629, 15.3350, models.ProtectionProtected, models.RiskLow, 6000, "Ruins of the Vijayanagara capital"},
}

func main() {
	var (
		reset      bool
		adminClerk string
		adminEmail string
		adminName  string
		days       int
	)
	flag.BoolVar(&reset, "reset", false, "truncate domain tables before seeding (users are kept)")
	flag.StringVar(&adminClerk, "admin-clerk-id", "", "provision a NATIONAL_ADMIN for this identity provider user id")
	flag.StringVar(&adminEmail, "admin-email", "", "email for the provisioned admin")
	flag.StringVar(&adminName, "admin-name", "National Admin", "display name for the provisioned admin")
	flag.IntVar(&days, "footfall-days", 14, "days of footfall history per site")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := database.RunMigrations(cfg.Database, cfg.Migrations.Path, logr); err != nil {
		logr.Fatal("migrations failed", zap.Error(err))
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if reset {
		if err := truncate(ctx, db); err != nil {
			logr.Fatal("reset failed", zap.Error(err))
		}
		logr.Info("domain tables truncated")
	}

	s := newSeeder(db, logr)
	if adminClerk != "" {
		if err := s.provisionAdmin(ctx, adminClerk, adminEmail, adminName); err != nil {
			logr.Fatal("admin provisioning failed", zap.Error(err))
		}
	}
	if err := s.run(ctx, days); err != nil {
		logr.Fatal("seeding failed", zap.Error(err))
	}
	logr.Info("seed complete", zap.Int("sites", len(sampleSites)))
}

func truncate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE footfall, approvals, conservation_projects, incidents, sites CASCADE`)
	return err
}

type seeder struct {
	sites        *service.SiteService
	incidents    *service.IncidentService
	conservation *service.ConservationService
	approvals    *service.ApprovalService
	footfall     *service.FootfallService
	users        *service.UserService
	logger       *zap.Logger
}

func newSeeder(db *sqlx.DB, logr *zap.Logger) *seeder {
	validate := validator.New()
	siteRepo := repository.NewSiteRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	conservationRepo := repository.NewConservationRepository(db)

	// Seeding runs without a cache; writes skip invalidation.
	incidents := service.NewIncidentService(incidentRepo, siteRepo, nil, validate, logr)
	conservation := service.NewConservationService(conservationRepo, siteRepo, nil, validate, logr)
	return &seeder{
		sites:        service.NewSiteService(siteRepo, nil, validate, logr),
		incidents:    incidents,
		conservation: conservation,
		approvals: service.NewApprovalService(repository.NewApprovalRepository(db), service.SubjectResolvers{
			models.SubjectIncident:     service.IncidentSubject(incidentRepo, incidents),
			models.SubjectConservation: service.ConservationSubject(conservationRepo, conservation),
		}, nil, validate, logr),
		footfall: service.NewFootfallService(repository.NewFootfallRepository(db), siteRepo, nil, validate, logr),
		users:    service.NewUserService(repository.NewUserRepository(db), validate, logr),
		logger:   logr,
	}
}

func (s *seeder) provisionAdmin(ctx context.Context, clerkID, email, name string) error {
	if email == "" {
		email = service.PlaceholderEmail(clerkID)
	}
	user, err := s.users.Create(ctx, service.CreateUserRequest{
		ClerkID: clerkID,
		Name:    name,
		Email:   email,
		Role:    models.RoleNationalAdmin,
	})
	if err != nil {
		return err
	}
	s.logger.Info("admin provisioned", zap.String("user_id", user.ID), zap.String("clerk_id", clerkID))
	return nil
}

func (s *seeder) run(ctx context.Context, days int) error {
	now := time.Now().UTC()
	sites := make([]*models.Site, 0, len(sampleSites))
	for i, sample := range sampleSites {
		lon, lat := sample.lon, sample.lat
		description := sample.description
		inspected := now.AddDate(0, 0, -(10 + 7*i))
		site, err := s.sites.Create(ctx, service.CreateSiteRequest{
			Name:               sample.name,
			Description:        &description,
			State:              sample.state,
			District:           sample.district,
			Coordinates:        models.Coordinates{Longitude: &lon, Latitude: &lat},
			ProtectionStatus:   sample.protection,
			RiskLevel:          sample.risk,
			VisitorCapacity:    sample.capacity,
			LastInspectionDate: &inspected,
		})
		if err != nil {
			return err
		}
		sites = append(sites, site)
	}

	incidentSpecs := []struct {
		site     int
		kind     models.IncidentType
		severity models.RiskLevel
		text     string
	}{
		{0, models.IncidentStructural, models.RiskMedium, "Hairline cracks on the north minaret"},
		{2, models.IncidentVandalism, models.RiskHigh, "Graffiti on the Lahori Gate wall"},
		{3, models.IncidentOvercrowding, models.RiskHigh, "Festival crowd exceeded safe capacity"},
		{4, models.IncidentEnvironmental, models.RiskMedium, "Seepage in cave 16 after monsoon"},
		{6, models.IncidentSecurity, models.RiskLow, "CCTV outage on the eastern perimeter"},
	}
	var firstIncident *models.Incident
	for _, spec := range incidentSpecs {
		incident, err := s.incidents.Create(ctx, service.CreateIncidentRequest{
			SiteID:      sites[spec.site].ID,
			Type:        spec.kind,
			Severity:    spec.severity,
			Description: spec.text,
		}, "")
		if err != nil {
			return err
		}
		if firstIncident == nil {
			firstIncident = incident
		}
	}

	start := now.AddDate(0, -1, 0)
	end := now.AddDate(0, 3, 0)
	project, err := s.conservation.Create(ctx, service.CreateConservationRequest{
		SiteID:      sites[0].ID,
		IssueType:   "Marble discolouration",
		Title:       "Mud-pack treatment of the main dome",
		Description: "Fuller's earth application to remove surface deposits",
		Contractor:  "Archaeological Conservation Works",
		Budget:      4500000,
		Status:      models.ConservationOngoing,
		StartDate:   &start,
		EndDate:     &end,
	}, "")
	if err != nil {
		return err
	}

	for _, req := range []service.CreateApprovalRequest{
		{Type: models.SubjectConservation, ReferenceID: project.ID, Title: "Approve dome treatment budget", IsPriority: true},
		{Type: models.SubjectIncident, ReferenceID: firstIncident.ID, Title: "Structural survey of the north minaret"},
		{Type: models.SubjectReport, ReferenceID: "quarterly-" + now.Format("2006-01"), Title: "Quarterly footfall report"},
	} {
		if _, err := s.approvals.Create(ctx, req, ""); err != nil {
			return err
		}
	}

	for i, site := range sites {
		for d := 0; d < days; d++ {
			date := now.AddDate(0, 0, -d)
			visitors := site.VisitorCapacity/4 + (d*37+i*101)%(site.VisitorCapacity/4+1)
			peak := 10 + (d+i)%6
			if _, err := s.footfall.Record(ctx, service.RecordFootfallRequest{
				SiteID:   site.ID,
				Date:     &date,
				Visitors: visitors,
				Revenue:  float64(visitors) * 40,
				PeakHour: &peak,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
