package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/metrics"
	"precinctwatch/internal/models"
	"precinctwatch/internal/repositories"
	"precinctwatch/internal/services"

	"github.com/go-co-op/gocron/v2"
)

const (
	JobDashboardRefresh = "dashboard-refresh"
	JobExpiryAlerts     = "certification-expiry-alerts"

	// ExpiryAlertWindow is how close to expiry a certification must be to raise an alert.
	ExpiryAlertWindow = 7 * 24 * time.Hour

	jobTimeout = 2 * time.Minute
)

// ExecTimeframes are the executive views kept warm by the refresh job.
var ExecTimeframes = []int{30, 90, 180}

type Intervals struct {
	DashboardRefresh time.Duration
	ExpiryAlerts     time.Duration
}

// JobScheduler runs the periodic cache refresh and expiry alert jobs
type JobScheduler struct {
	scheduler    gocron.Scheduler
	engine       *compliance.Engine
	dashboardSvc services.DashboardService
	execSvc      services.ExecService
	storeRepo    repositories.StoreRepository
	log          logger.Logger
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
}

func NewJobScheduler(engine *compliance.Engine, dashboardSvc services.DashboardService, execSvc services.ExecService,
	storeRepo repositories.StoreRepository, intervals Intervals, log logger.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		engine:       engine,
		dashboardSvc: dashboardSvc,
		execSvc:      execSvc,
		storeRepo:    storeRepo,
		log:          log,
		jobs:         make(map[string]gocron.Job),
	}

	if err := js.registerJobs(intervals); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.log.Info("Starting background job scheduler", map[string]interface{}{"jobs": len(js.jobs)})
	js.scheduler.Start()
}

// Stop waits for running jobs to finish.
func (js *JobScheduler) Stop() error {
	js.log.Info("Stopping background job scheduler", nil)
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(intervals Intervals) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	refreshJob, err := js.scheduler.NewJob(
		gocron.DurationJob(intervals.DashboardRefresh),
		gocron.NewTask(js.runJob, JobDashboardRefresh, js.RefreshDashboards),
		gocron.WithName(JobDashboardRefresh),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", JobDashboardRefresh, err)
	}
	js.jobs[JobDashboardRefresh] = refreshJob

	alertsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(intervals.ExpiryAlerts),
		gocron.NewTask(js.runJob, JobExpiryAlerts, js.ScanExpiries),
		gocron.WithName(JobExpiryAlerts),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", JobExpiryAlerts, err)
	}
	js.jobs[JobExpiryAlerts] = alertsJob

	js.log.Info("Registered background jobs", map[string]interface{}{"count": len(js.jobs)})
	return nil
}

// runJob gives each run its own deadline and records the outcome.
func (js *JobScheduler) runJob(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log := js.log.WithFields(map[string]interface{}{"job": name})
	start := time.Now()
	err := fn(ctx)
	elapsed := map[string]interface{}{"duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		metrics.JobRuns.WithLabelValues(name, metrics.OutcomeError).Inc()
		log.WithError(err).Error("Background job failed", elapsed)
		return
	}
	metrics.JobRuns.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
	log.Debug("Background job completed", elapsed)
}

// RefreshDashboards rebuilds the dashboard and every executive timeframe so readers
// hit a warm cache. One failed view does not stop the others.
func (js *JobScheduler) RefreshDashboards(ctx context.Context) error {
	var failed []string
	if _, err := js.dashboardSvc.RefreshDashboard(ctx); err != nil {
		js.log.Warn("Dashboard refresh failed", map[string]interface{}{"error": err.Error()})
		failed = append(failed, "dashboard")
	}
	for _, days := range ExecTimeframes {
		if _, err := js.execSvc.RefreshExecDashboard(ctx, days); err != nil {
			js.log.Warn("Executive dashboard refresh failed", map[string]interface{}{"timeframe_days": days, "error": err.Error()})
			failed = append(failed, fmt.Sprintf("exec:%d", days))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("refresh failed for %v", failed)
	}
	return nil
}

// ExpiryAlert is one certification flagged by ScanExpiries.
type ExpiryAlert struct {
	StoreCode string
	StoreName string
	Type      models.CertificationType
	Status    models.CertificationStatus
	DaysLeft  int
}

// ScanExpiries logs every certification on an active store that has expired or
// expires within ExpiryAlertWindow.
func (js *JobScheduler) ScanExpiries(ctx context.Context) error {
	_, err := js.collectExpiryAlerts(ctx)
	return err
}

func (js *JobScheduler) collectExpiryAlerts(ctx context.Context) ([]ExpiryAlert, error) {
	stores, err := js.storeRepo.ListWithCertifications(ctx, models.StoreListFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}

	now := js.engine.Now()
	var alerts []ExpiryAlert
	for _, store := range stores {
		for _, cert := range store.Certifications {
			if cert.ExpiresAt == nil {
				continue
			}
			status := compliance.Classify(cert.ExpiresAt, now)
			if status == models.StatusValid {
				continue
			}
			if status == models.StatusExpiringSoon && cert.ExpiresAt.After(now.Add(ExpiryAlertWindow)) {
				continue
			}

			alert := ExpiryAlert{
				StoreCode: store.Code,
				StoreName: store.Name,
				Type:      cert.Type,
				Status:    status,
				DaysLeft:  compliance.DaysUntil(*cert.ExpiresAt, now),
			}
			alerts = append(alerts, alert)
			metrics.ExpiryAlerts.WithLabelValues(string(status)).Inc()
			js.log.Warn("Certification expiry alert", map[string]interface{}{
				"store_code": alert.StoreCode,
				"store_name": alert.StoreName,
				"precinct":   store.Precinct,
				"type":       string(alert.Type),
				"status":     string(alert.Status),
				"expires_at": cert.ExpiresAt.Format(time.DateOnly),
				"days_left":  alert.DaysLeft,
			})
		}
	}

	js.log.Info("Expiry alert scan completed", map[string]interface{}{"stores": len(stores), "alerts": len(alerts)})
	return alerts, nil
}

// GetJobStatus reports each job with its last and next run.
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make(map[string]interface{}, len(js.jobs))
	for name, job := range js.jobs {
		entry := map[string]interface{}{}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			entry["last_run"] = last.UTC().Format(time.RFC3339)
		}
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			entry["next_run"] = next.UTC().Format(time.RFC3339)
		}
		jobs[name] = entry
	}
	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       jobs,
	}
}
