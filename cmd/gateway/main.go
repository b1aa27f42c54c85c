package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/haseebafeef/mock-verse/internal/api/http"
	"github.com/haseebafeef/mock-verse/internal/audit"
	"github.com/haseebafeef/mock-verse/internal/auth"
	"github.com/haseebafeef/mock-verse/internal/billing"
	"github.com/haseebafeef/mock-verse/internal/config"
	"github.com/haseebafeef/mock-verse/internal/db"
	"github.com/haseebafeef/mock-verse/internal/exam"
	"github.com/haseebafeef/mock-verse/internal/rbac"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if cfg.DBSeed {
		if err := db.Seed(ctx, dbh); err != nil {
			log.Fatalf("db seed failed: %v", err)
		}
	}

	// --- Services ---
	events := audit.NewLog(dbh)
	examStore := exam.NewSQLStore(dbh)
	billingStore := billing.NewSQLStore(dbh)
	entitlements := exam.NewEntitlements(billingStore)
	examSvc := exam.NewService(examStore, entitlements, events)
	billingSvc := billing.NewService(billingStore, billing.DevProvider{}, events)
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsDev
	if cfg.Mode == config.ModeProd {
		origins = cfg.CORSOriginsProd
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface
	r.Post("/auth/signup", auth.SignupHandler(dbh, authSvc))
	r.Post("/auth/login", auth.LoginHandler(dbh, authSvc))
	r.Get("/plans", api.ListPlansHandler(billingSvc))

	// Protected API (JWT → principal in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode != config.ModeProd))

		pr.With(rbac.Require("exam:list")).
			Get("/exams", api.ListExamsHandler(examStore, billingStore))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(examSvc))

		// Attempt lifecycle
		pr.With(rbac.Require("attempt:start")).
			Post("/exams/{examID}/start", api.StartAttemptHandler(examSvc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/exams/{examID}/submit", api.SubmitAttemptHandler(examSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(examSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/result", api.AttemptResultHandler(examSvc))

		pr.With(rbac.Require("attempt:view-own")).
			Get("/dashboard", api.DashboardHandler(examSvc, billingStore))

		// Checkout
		pr.With(rbac.Require("checkout:create")).
			Post("/checkout", api.CheckoutHandler(billingSvc))
		pr.With(rbac.Require("checkout:create")).
			Get("/checkout/confirm", api.CheckoutConfirmHandler(billingSvc))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", auth.ChangePasswordHandler(dbh))

		// Admin
		pr.With(rbac.Require("exam:manage")).
			Post("/admin/exams", api.CreateExamHandler(examStore, billingStore))
		pr.With(rbac.Require("exam:manage")).
			Post("/admin/questions", api.CreateQuestionHandler(examStore))
		pr.With(rbac.Require("plan:manage")).
			Post("/admin/plans", api.CreatePlanHandler(billingStore))
		pr.With(rbac.Require("events:view")).
			Get("/admin/events", api.EventsHandler(events))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	// Background expiry sweep (optional)
	if cfg.ExpireSweep {
		reaper := exam.NewReaper(examStore, events, cfg.ExpireSweepInterval, cfg.ExpireSweepGrace)
		go reaper.Run(context.Background())
		log.Printf("expiry sweep enabled (interval=%s grace=%s)", cfg.ExpireSweepInterval, cfg.ExpireSweepGrace)
	}

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
