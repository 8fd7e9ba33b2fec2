package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/orgcontext"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps the webhook request body at 1 MiB. Provider events are
// far smaller; anything bigger is noise.
const maxWebhookBody = 1 << 20

type checkoutRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan, ok := billingdomain.ParsePlan(req.Plan)
	if !ok || plan == billingdomain.PlanFree {
		AbortWithError(c, newValidationError("plan", "invalid_plan", "invalid plan"))
		return
	}

	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	url, err := s.checkoutSvc.CreateCheckoutSession(c.Request.Context(), orgID, plan)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"url": url}})
}

func (s *Server) CreatePortalSession(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	url, err := s.checkoutSvc.CreatePortalSession(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"url": url}})
}

// HandleBillingWebhook is the provider event ingress. Every verified event is
// acknowledged with 200, including duplicates and event types this service
// does not act on; only signature failures and transient apply errors return
// a non-2xx status so the provider retries.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(body) > maxWebhookBody {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := strings.TrimSpace(c.GetHeader("Stripe-Signature"))

	err = s.webhookSvc.HandleEvent(c.Request.Context(), body, signature)
	switch {
	case err == nil:
		s.audit(c, "billing.webhook.processed", "billing_event", "", nil)
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, billingdomain.ErrEventAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
	case errors.Is(err, billingdomain.ErrSignatureVerification):
		s.log.Warn("webhook signature rejected", zap.String("remote_addr", c.ClientIP()))
		AbortWithError(c, err)
	default:
		AbortWithError(c, err)
	}
}
