package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/framehaus/callsheet/internal/orgcontext"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrgContext resolves the tenant for the request. The gateway in front of
// this service authenticates the caller and forwards the organization and
// member identity as headers; requests without a tenant are rejected before
// any handler runs.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Org-ID"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		if memberID := strings.TrimSpace(c.GetHeader("X-Member-ID")); memberID != "" {
			ctx = orgcontext.WithMemberID(ctx, memberID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestLogger emits one structured access line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	accessLog := log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}

		switch {
		case c.Writer.Status() >= 500:
			accessLog.Error("request", fields...)
		case c.Writer.Status() >= 400:
			accessLog.Warn("request", fields...)
		default:
			accessLog.Info("request", fields...)
		}
	}
}
