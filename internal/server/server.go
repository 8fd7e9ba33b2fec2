package server

import (
	"context"
	"net/http"
	"time"

	auditdomain "github.com/framehaus/callsheet/internal/audit/domain"
	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	clientdomain "github.com/framehaus/callsheet/internal/client/domain"
	"github.com/framehaus/callsheet/internal/config"
	memberdomain "github.com/framehaus/callsheet/internal/member/domain"
	orgdomain "github.com/framehaus/callsheet/internal/organization/domain"
	productiondomain "github.com/framehaus/callsheet/internal/production/domain"
	signupdomain "github.com/framehaus/callsheet/internal/signup/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	organizationSvc orgdomain.Service
	productionSvc   productiondomain.Service
	clientSvc       clientdomain.Service
	memberSvc       memberdomain.Service
	signupSvc       signupdomain.Service
	auditSvc        auditdomain.Service
	checkoutSvc     billingdomain.CheckoutService
	webhookSvc      billingdomain.WebhookService
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	Log *zap.Logger

	OrganizationSvc orgdomain.Service
	ProductionSvc   productiondomain.Service
	ClientSvc       clientdomain.Service
	MemberSvc       memberdomain.Service
	SignupSvc       signupdomain.Service
	AuditSvc        auditdomain.Service
	CheckoutSvc     billingdomain.CheckoutService
	WebhookSvc      billingdomain.WebhookService
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		organizationSvc: p.OrganizationSvc,
		productionSvc:   p.ProductionSvc,
		clientSvc:       p.ClientSvc,
		memberSvc:       p.MemberSvc,
		signupSvc:       p.SignupSvc,
		auditSvc:        p.AuditSvc,
		checkoutSvc:     p.CheckoutSvc,
		webhookSvc:      p.WebhookSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	api := s.engine.Group("/api")

	api.POST("/signup", s.Signup)

	// Webhook ingress authenticates with the provider signature, not the
	// tenant headers.
	api.POST("/billing/webhooks/stripe", s.HandleBillingWebhook)

	org := api.Group("", s.OrgContext())
	{
		org.GET("/organization", s.GetOrganization)
		org.PATCH("/organization", s.UpdateOrganization)

		org.GET("/productions", s.ListProductions)
		org.POST("/productions", s.CreateProduction)
		org.GET("/productions/:id", s.GetProduction)
		org.PATCH("/productions/:id", s.UpdateProduction)
		org.DELETE("/productions/:id", s.DeleteProduction)
		org.POST("/productions/:id/recalculate", s.RecalculateProduction)

		org.POST("/productions/:id/items", s.AddProductionItem)
		org.PUT("/productions/:id/items", s.ReplaceProductionItems)
		org.PATCH("/productions/:id/items/:itemId", s.UpdateProductionItem)
		org.DELETE("/productions/:id/items/:itemId", s.RemoveProductionItem)

		org.POST("/productions/:id/expenses", s.AddExpense)
		org.PUT("/productions/:id/expenses", s.ReplaceExpenses)
		org.PATCH("/productions/:id/expenses/:expenseId", s.UpdateExpense)
		org.DELETE("/productions/:id/expenses/:expenseId", s.RemoveExpense)

		org.POST("/productions/:id/crew", s.AddCrewMember)
		org.PUT("/productions/:id/crew", s.ReplaceCrew)
		org.PATCH("/productions/:id/crew/:crewId", s.UpdateCrewMember)
		org.DELETE("/productions/:id/crew/:crewId", s.RemoveCrewMember)

		org.GET("/clients", s.ListClients)
		org.POST("/clients", s.CreateClient)
		org.GET("/clients/:id", s.GetClient)
		org.PATCH("/clients/:id", s.UpdateClient)
		org.DELETE("/clients/:id", s.DeleteClient)

		org.GET("/members", s.ListMembers)
		org.POST("/members", s.CreateMember)
		org.GET("/members/:id", s.GetMember)
		org.PATCH("/members/:id", s.UpdateMember)
		org.DELETE("/members/:id", s.DeleteMember)

		org.POST("/billing/checkout", s.CreateCheckoutSession)
		org.POST("/billing/portal", s.CreatePortalSession)

		org.GET("/audit-logs", s.ListAuditLogs)
	}
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Fatal("http server failed", zap.Error(err))
				}
			}()
			s.log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
