// Package checkout is a pass-through to the payment provider's hosted
// checkout and billing portal. It creates provider sessions and returns their
// URLs; all subscription state changes arrive later via webhook.
package checkout

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v79"
	bpsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/config"
	orgdomain "github.com/framehaus/callsheet/internal/organization/domain"
	"github.com/framehaus/callsheet/pkg/repository"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	log  *zap.Logger
	cfg  config.StripeConfig
	orgs repository.Repository[orgdomain.Organization]
}

func NewService(p Params) billingdomain.CheckoutService {
	if strings.TrimSpace(p.Cfg.Stripe.SecretKey) != "" {
		stripe.Key = p.Cfg.Stripe.SecretKey
	}
	return &Service{
		log:  p.Log.Named("billing.checkout"),
		cfg:  p.Cfg.Stripe,
		orgs: repository.ProvideStore[orgdomain.Organization](p.DB),
	}
}

func (s *Service) CreateCheckoutSession(ctx context.Context, orgID snowflake.ID, plan billingdomain.Plan) (string, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return "", billingdomain.ErrCheckoutUnavailable
	}
	priceID := s.priceFor(plan)
	if priceID == "" {
		return "", billingdomain.ErrCheckoutUnavailable
	}

	org, err := s.orgs.FindOne(ctx, &orgdomain.Organization{ID: orgID})
	if err != nil {
		return "", err
	}
	if org == nil {
		return "", billingdomain.ErrOrganizationNotFound
	}

	metadata := map[string]string{
		"org_id": orgID.String(),
		"plan":   string(plan),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(orgID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if org.BillingID != nil && *org.BillingID != "" {
		params.Customer = stripe.String(*org.BillingID)
	}
	params.Context = ctx

	session, err := checkoutsession.New(params)
	if err != nil {
		s.log.Error("checkout session create failed",
			zap.String("org_id", orgID.String()),
			zap.String("plan", string(plan)),
			zap.Error(err),
		)
		return "", billingdomain.ErrCheckoutUnavailable
	}

	s.log.Info("checkout session created",
		zap.String("org_id", orgID.String()),
		zap.String("plan", string(plan)),
		zap.String("session_id", session.ID),
	)
	return session.URL, nil
}

func (s *Service) CreatePortalSession(ctx context.Context, orgID snowflake.ID) (string, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return "", billingdomain.ErrCheckoutUnavailable
	}

	org, err := s.orgs.FindOne(ctx, &orgdomain.Organization{ID: orgID})
	if err != nil {
		return "", err
	}
	if org == nil {
		return "", billingdomain.ErrOrganizationNotFound
	}
	if org.BillingID == nil || *org.BillingID == "" {
		// Never checked out: there is no provider customer to manage.
		return "", billingdomain.ErrCheckoutUnavailable
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*org.BillingID),
		ReturnURL: stripe.String(s.cfg.PortalReturnURL),
	}
	params.Context = ctx

	session, err := bpsession.New(params)
	if err != nil {
		s.log.Error("billing portal session create failed",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return "", billingdomain.ErrCheckoutUnavailable
	}
	return session.URL, nil
}

func (s *Service) priceFor(plan billingdomain.Plan) string {
	switch plan {
	case billingdomain.PlanStarter:
		return s.cfg.PriceStarter
	case billingdomain.PlanPro:
		return s.cfg.PricePro
	case billingdomain.PlanEnterprise:
		return s.cfg.PriceEnterprise
	}
	return ""
}
