package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// Metrics is what the router needs from monitoring.PrometheusMetrics.
type Metrics interface {
	Recorder
	MetricsMiddleware(next http.Handler) http.Handler
	Handler() http.Handler
	GetMetricsSummary() (map[string]interface{}, error)
}

// Server - HTTP слой над реестром сессий
type Server struct {
	sessions *Sessions
	hub      *Hub
	auth     *Authenticator
	limiter  *RateLimiter
	errors   *ErrorHandler
	metrics  Metrics
	started  time.Time
}

// Options - зависимости API
type Options struct {
	Sessions    *Sessions
	Hub         *Hub
	Auth        *Authenticator
	Limiter     *RateLimiter
	Metrics     Metrics // nil: без /metrics
	CORSOrigins []string
	Logger      *log.Logger
}

func NewServer(opts Options) *Server {
	return &Server{
		sessions: opts.Sessions,
		hub:      opts.Hub,
		auth:     opts.Auth,
		limiter:  opts.Limiter,
		errors:   NewErrorHandler(opts.Logger),
		metrics:  opts.Metrics,
		started:  time.Now(),
	}
}

// NewRouter builds the chi router with every route under /api/v1.
func NewRouter(opts Options) http.Handler {
	s := NewServer(opts)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.errors.RecoveryMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.MetricsMiddleware)
	}
	r.Use(corsMiddleware(opts.CORSOrigins))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware(s.errors))
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.errors))
		}

		if s.hub != nil {
			r.Get("/ws", s.hub.ServeWs)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(s.errors.ValidationMiddleware)

			r.Get("/state", s.handleGetState)
			r.Put("/state", s.handleRestoreState)
			r.Delete("/state", s.handleResetState)
			r.Get("/player", s.handlePlayer)

			r.Route("/staking", func(r chi.Router) {
				r.Get("/", s.handleStakingStats)
				r.Post("/stake", s.handleStake)
				r.Post("/unstake", s.handleUnstake)
				r.Post("/claim", s.handleClaim)
			})

			r.Route("/governance", func(r chi.Router) {
				r.Get("/", s.handleGovernanceStats)
				r.Post("/proposals", s.handleSubmitProposal)
				r.Post("/proposals/{id}/vote", s.handleVote)
			})

			r.Route("/businesses", func(r chi.Router) {
				r.Get("/", s.handleBusinessStats)
				r.Post("/", s.handleAddBusiness)
				r.Post("/{id}/upgrade", s.handleUpgradeBusiness)
				r.Post("/{id}/staff", s.handleHireStaff)
				r.Post("/{id}/supply", s.handleSupplyDeal)
				r.Delete("/{id}", s.handleSellBusiness)
			})

			r.Route("/banking", func(r chi.Router) {
				r.Get("/", s.handleBankingStats)
				r.Post("/accounts", s.handleOpenAccount)
				r.Post("/accounts/{id}/deposit", s.handleDeposit)
				r.Post("/accounts/{id}/withdraw", s.handleWithdraw)
				r.Get("/loans/eligibility", s.handleLoanEligibility)
				r.Post("/loans", s.handleTakeLoan)
				r.Post("/loans/{id}/repay", s.handleRepayLoan)
			})

			r.Route("/lifestyle", func(r chi.Router) {
				r.Post("/housing", s.handleSetHousing)
				r.Post("/education", s.handleEnroll)
				r.Post("/relationships", s.handleAddRelationship)
				r.Post("/community", s.handleCommunity)
			})

			r.Route("/time", func(r chi.Router) {
				r.Post("/advance", s.handleAdvance)
				r.Post("/fast-forward", s.handleFastForward)
				r.Post("/pause", s.handlePause)
				r.Post("/resume", s.handleResume)
				r.Post("/speed", s.handleSpeed)
				r.Post("/daily", s.handleDaily)
			})

			r.Post("/events/trigger", s.handleTriggerEvent)
			r.Get("/economy", s.handleEconomicStats)

			r.Route("/achievements", func(r chi.Router) {
				r.Get("/", s.handleAchievementStats)
				r.Post("/check", s.handleCheckAchievements)
			})
		})
	})

	return r
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed["*"] || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Player-ID")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
