package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/sla"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// ClassificationGauge receives the latest compliance counts.
type ClassificationGauge interface {
	SetClassificationCounts(counts map[string]int)
}

// ReportService builds the dashboard snapshot.
type ReportService struct {
	tickets repository.TicketRepository
	gauge   ClassificationGauge
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs the service. gauge may be nil.
func NewReportService(tickets repository.TicketRepository, gauge ClassificationGauge, logger *zap.Logger, now func() time.Time) *ReportService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{tickets: tickets, gauge: gauge, logger: logger, now: now}
}

// Dashboard aggregates every ticket as of now.
func (s *ReportService) Dashboard(ctx context.Context) (*sla.Report, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		s.logger.Error("storage failure", zap.String("op", "build dashboard"), zap.Error(err))
		return nil, apperrors.NewStorageError("build dashboard", err)
	}

	report := sla.BuildReport(tickets, s.now().UTC())
	if s.gauge != nil {
		s.gauge.SetClassificationCounts(map[string]int{
			string(sla.Breached):    report.Breached,
			string(sla.Approaching): report.Approaching,
		})
	}
	return &report, nil
}
