package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/dto"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
	"github.com/noah-isme/heritage-api/pkg/export"
)

type overviewSource interface {
	Overview(ctx context.Context, q dto.DashboardQuery) (*dto.DashboardOverview, bool, error)
}

// ExportFile is a rendered region summary ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the dashboard region summary as a document.
type ExportService struct {
	overview  overviewSource
	renderers map[export.Format]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Without renderers the CSV and PDF renderers are used.
func NewExportService(overview overviewSource, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVRenderer(), export.NewPDFRenderer()}
	}
	byFormat := make(map[export.Format]export.Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Format()] = r
	}
	return &ExportService{overview: overview, renderers: byFormat, logger: newLogger(logger), now: time.Now}
}

// RegionSummary renders the region rows of the scoped overview in the requested format.
func (s *ExportService) RegionSummary(ctx context.Context, q dto.DashboardQuery, format string) (*ExportFile, error) {
	f, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if err != nil {
		return nil, validationError(err, "format must be csv or pdf")
	}
	renderer, ok := s.renderers[f]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format %s is not available", f))
	}

	overview, _, err := s.overview.Overview(ctx, q)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	body, err := renderer.Render(regionDataset(overview, now))
	if err != nil {
		s.logger.Error("render region summary", zap.String("format", string(f)), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("region_summary_%s_%s.%s", overview.Scope, now.Format("20060102_150405"), f),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func regionDataset(overview *dto.DashboardOverview, generated time.Time) export.Dataset {
	subtitle := "Scope: " + string(overview.Scope)
	if overview.State != "" {
		subtitle += " / " + overview.State
	}
	subtitle += " | Generated " + generated.Format(time.RFC3339)

	rows := make([][]string, 0, len(overview.RegionSummary))
	for _, r := range overview.RegionSummary {
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.Sites),
			strconv.Itoa(r.HighRiskSites),
			strconv.Itoa(r.Alerts),
			r.Status,
		})
	}
	return export.Dataset{
		Title:    "Heritage Region Summary",
		Subtitle: subtitle,
		Headers:  []string{"Region", "Sites", "High Risk Sites", "Open Alerts", "Status"},
		Rows:     rows,
	}
}
