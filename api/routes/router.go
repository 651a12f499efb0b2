package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talentbridge/talentbridge-backend/api/controllers"
	admincontrollers "github.com/talentbridge/talentbridge-backend/api/controllers/admin"
	earningscontrollers "github.com/talentbridge/talentbridge-backend/api/controllers/earnings"
	"github.com/talentbridge/talentbridge-backend/api/middleware"
	"github.com/talentbridge/talentbridge-backend/internal/commissions"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/withdrawals"
	"github.com/talentbridge/talentbridge-backend/pkg/config"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	pkgredis "github.com/talentbridge/talentbridge-backend/pkg/redis"
)

// Store backs idempotency replay and rate limiting; *redis.Client satisfies it.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Store       Store
	Gatherer    prometheus.Gatherer
	Ledger      ledger.Service
	Commissions commissions.Service
	Withdrawals withdrawals.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	earningsPolicy := middleware.NewRateLimitPolicy("earnings", cfg.RateLimit)
	adminPolicy := middleware.NewRateLimitPolicy("admin", cfg.RateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{"db": p.DB, "redis": p.Redis}))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/earnings", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleConsultant, enums.ActorRoleSalesAgent))
		r.Use(middleware.RateLimit(earningsPolicy, p.Store, logg))
		r.Use(middleware.Idempotency(p.Store, logg))

		r.Get("/balance", earningscontrollers.Balance(p.Withdrawals, logg))
		r.Get("/ledger", earningscontrollers.ListTransactions(p.Ledger, logg))
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", earningscontrollers.ListCommissions(p.Commissions, logg))
			r.Post("/", earningscontrollers.RequestCommission(p.Commissions, logg))
		})
		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", earningscontrollers.ListWithdrawals(p.Withdrawals, logg))
			r.Post("/", earningscontrollers.RequestWithdrawal(p.Withdrawals, logg))
			r.Get("/{withdrawalId}", earningscontrollers.GetWithdrawal(p.Withdrawals, logg))
			r.Post("/{withdrawalId}/cancel", earningscontrollers.CancelWithdrawal(p.Withdrawals, logg))
			r.Post("/{withdrawalId}/execute", earningscontrollers.ExecuteWithdrawal(p.Withdrawals, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
		r.Use(middleware.RateLimit(adminPolicy, p.Store, logg))
		r.Use(middleware.Idempotency(p.Store, logg))

		r.Route("/commissions", func(r chi.Router) {
			r.Post("/", admincontrollers.AwardCommission(p.Commissions, logg))
			r.Post("/payments", admincontrollers.ProcessPayments(p.Commissions, logg))
			r.Get("/{commissionId}", admincontrollers.GetCommission(p.Commissions, logg))
			r.Post("/{commissionId}/confirm", admincontrollers.ConfirmCommission(p.Commissions, logg))
			r.Post("/{commissionId}/paid", admincontrollers.MarkCommissionPaid(p.Commissions, logg))
			r.Post("/{commissionId}/dispute", admincontrollers.DisputeCommission(p.Commissions, logg))
			r.Post("/{commissionId}/resolve", admincontrollers.ResolveDispute(p.Commissions, logg))
			r.Post("/{commissionId}/clawback", admincontrollers.ClawbackCommission(p.Commissions, logg))
			r.Post("/{commissionId}/cancel", admincontrollers.CancelCommission(p.Commissions, logg))
		})
		r.Route("/withdrawals/{withdrawalId}", func(r chi.Router) {
			r.Get("/", admincontrollers.GetWithdrawal(p.Withdrawals, logg))
			r.Post("/approve", admincontrollers.ApproveWithdrawal(p.Withdrawals, logg))
			r.Post("/reject", admincontrollers.RejectWithdrawal(p.Withdrawals, logg))
			r.Post("/complete", admincontrollers.CompleteWithdrawal(p.Withdrawals, logg))
		})
		r.Route("/ledger/accounts/{ownerType}/{ownerId}", func(r chi.Router) {
			r.Get("/", admincontrollers.GetAccount(p.Ledger, logg))
			r.Get("/verify", admincontrollers.VerifyAccount(p.Ledger, logg))
			r.Post("/credit", admincontrollers.CreditAccount(p.Ledger, logg))
			r.Post("/debit", admincontrollers.DebitAccount(p.Ledger, logg))
			r.Post("/freeze", admincontrollers.FreezeAccount(p.Ledger, logg))
			r.Post("/unfreeze", admincontrollers.UnfreezeAccount(p.Ledger, logg))
		})
	})

	return r
}
