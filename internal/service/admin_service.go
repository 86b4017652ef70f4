package service

import (
	"context"
	"time"

	"github.com/parishkeep/parishkeep/internal/db"
	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// PlatformStats is the admin dashboard aggregate. Revenue sums only settled
// rows, and settled rows are unique per invoice/session, so replayed webhook
// deliveries cannot inflate the totals.
type PlatformStats struct {
	TotalUsers           int64 `json:"total_users"`
	ActiveSubscriptions  int64 `json:"active_subscriptions"`
	PastDueSubscriptions int64 `json:"past_due_subscriptions"`
	PaymentRevenueCents  int64 `json:"payment_revenue_cents"`
	DonationRevenueCents int64 `json:"donation_revenue_cents"`
	TotalRevenueCents    int64 `json:"total_revenue_cents"`
	WebhookProcessed     int64 `json:"webhook_events_processed"`
	WebhookSkipped       int64 `json:"webhook_events_skipped"`
}

// DatabaseStatus reports pool reachability and utilization
type DatabaseStatus struct {
	Reachable       bool   `json:"reachable"`
	Error           string `json:"error,omitempty"`
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	NewConnsCount   int64  `json:"new_conns_count"`
	AcquireCount    int64  `json:"acquire_count"`
	CanceledAcquire int64  `json:"canceled_acquire_count"`
}

// BackupExport is a full JSON dump of the platform's own tables. Password
// hashes are stripped before the export leaves the service.
type BackupExport struct {
	ExportedAt    time.Time                 `json:"exported_at"`
	Users         []domain.User             `json:"users"`
	Plans         []domain.SubscriptionPlan `json:"plans"`
	Subscriptions []domain.Subscription     `json:"subscriptions"`
	Payments      []domain.Payment          `json:"payments"`
	Donations     []domain.Donation         `json:"donations"`
	Posts         []domain.Post             `json:"posts"`
}

// AdminService backs the admin dashboard endpoints
type AdminService interface {
	Stats(ctx context.Context) (PlatformStats, error)
	Export(ctx context.Context) (BackupExport, error)
	DatabaseStatus(ctx context.Context) DatabaseStatus
}

type adminService struct {
	users         repository.UserRepository
	plans         repository.PlanRepository
	subscriptions repository.SubscriptionRepository
	payments      repository.PaymentRepository
	donations     repository.DonationRepository
	posts         repository.PostRepository
	events        repository.WebhookEventRepository
	dbc           *db.Client
	log           *logger.Logger
}

// NewAdminService creates the admin service. dbc may be nil when the service
// runs against in-memory repositories; DatabaseStatus then reports
// unreachable.
func NewAdminService(
	users repository.UserRepository,
	plans repository.PlanRepository,
	subscriptions repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	donations repository.DonationRepository,
	posts repository.PostRepository,
	events repository.WebhookEventRepository,
	dbc *db.Client,
	log *logger.Logger,
) AdminService {
	return &adminService{
		users:         users,
		plans:         plans,
		subscriptions: subscriptions,
		payments:      payments,
		donations:     donations,
		posts:         posts,
		events:        events,
		dbc:           dbc,
		log:           log,
	}
}

// Stats aggregates the platform counters
func (s *adminService) Stats(ctx context.Context) (PlatformStats, error) {
	var stats PlatformStats
	var err error

	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return PlatformStats{}, err
	}
	if stats.ActiveSubscriptions, err = s.subscriptions.CountByStatus(ctx, domain.SubscriptionStatusActive); err != nil {
		return PlatformStats{}, err
	}
	if stats.PastDueSubscriptions, err = s.subscriptions.CountByStatus(ctx, domain.SubscriptionStatusPastDue); err != nil {
		return PlatformStats{}, err
	}
	if stats.PaymentRevenueCents, err = s.payments.SumSucceededCents(ctx); err != nil {
		return PlatformStats{}, err
	}
	if stats.DonationRevenueCents, err = s.donations.SumSucceededCents(ctx); err != nil {
		return PlatformStats{}, err
	}
	if stats.WebhookProcessed, err = s.events.CountByStatus(ctx, domain.WebhookEventStatusProcessed); err != nil {
		return PlatformStats{}, err
	}
	if stats.WebhookSkipped, err = s.events.CountByStatus(ctx, domain.WebhookEventStatusSkipped); err != nil {
		return PlatformStats{}, err
	}

	stats.TotalRevenueCents = stats.PaymentRevenueCents + stats.DonationRevenueCents
	return stats, nil
}

// Export dumps every table for the admin backup endpoint
func (s *adminService) Export(ctx context.Context) (BackupExport, error) {
	export := BackupExport{ExportedAt: time.Now().UTC()}
	var err error

	if export.Users, err = s.users.ListAll(ctx); err != nil {
		return BackupExport{}, err
	}
	for i := range export.Users {
		export.Users[i].PasswordHash = ""
	}
	if export.Plans, err = s.plans.GetAll(ctx, false); err != nil {
		return BackupExport{}, err
	}
	if export.Subscriptions, err = s.subscriptions.ListAll(ctx); err != nil {
		return BackupExport{}, err
	}
	if export.Payments, err = s.payments.ListAll(ctx); err != nil {
		return BackupExport{}, err
	}
	if export.Donations, err = s.donations.ListAll(ctx); err != nil {
		return BackupExport{}, err
	}
	if export.Posts, err = s.posts.ListAll(ctx); err != nil {
		return BackupExport{}, err
	}

	s.log.Infow("Backup export generated",
		"users", len(export.Users),
		"subscriptions", len(export.Subscriptions),
		"payments", len(export.Payments),
		"donations", len(export.Donations),
		"posts", len(export.Posts),
	)
	return export, nil
}

// DatabaseStatus pings the pool and returns its counters
func (s *adminService) DatabaseStatus(ctx context.Context) DatabaseStatus {
	if s.dbc == nil {
		return DatabaseStatus{Reachable: false, Error: "database is not configured"}
	}

	status := DatabaseStatus{Reachable: true}
	if err := s.dbc.Ping(ctx); err != nil {
		s.log.Errorw("Database ping failed", "error", err)
		status.Reachable = false
		status.Error = err.Error()
	}

	stat := s.dbc.Stat()
	status.TotalConns = stat.TotalConns()
	status.IdleConns = stat.IdleConns()
	status.AcquiredConns = stat.AcquiredConns()
	status.MaxConns = stat.MaxConns()
	status.NewConnsCount = stat.NewConnsCount()
	status.AcquireCount = stat.AcquireCount()
	status.CanceledAcquire = stat.CanceledAcquireCount()
	return status
}
