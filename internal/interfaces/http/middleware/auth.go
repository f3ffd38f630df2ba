package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campus/backend/internal/infrastructure/auth"
	"github.com/campus/backend/internal/infrastructure/logger"
	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity context keys
const (
	ClaimsKey   = "auth_claims"
	TenantIDKey = "auth_tenant_id"
	ActorKey    = "auth_actor"

	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	TenantHeaderKey = "X-Tenant-ID"
	ActorHeaderKey  = "X-Actor"
)

// AuthConfig holds configuration for the identity middleware
type AuthConfig struct {
	// JWTService validates bearer tokens. Ignored when Disabled.
	JWTService *auth.JWTService
	// Disabled trusts X-Tenant-ID / X-Actor headers instead of a token.
	// Development only; config validation refuses it in production.
	Disabled bool
	// SkipPaths are paths that don't require an identity
	SkipPaths []string
	Logger    *zap.Logger
}

// Auth resolves the tenant and the actor of every request and stores them
// in the gin context and the request-scoped logger.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		var (
			tenantID uuid.UUID
			actor    string
		)
		if cfg.Disabled {
			id, err := uuid.Parse(c.GetHeader(TenantHeaderKey))
			if err != nil {
				abortUnauthorized(c, cfg.Logger, err, dto.ErrCodeUnauthorized, "Missing or invalid X-Tenant-ID header")
				return
			}
			tenantID = id
			actor = strings.TrimSpace(c.GetHeader(ActorHeaderKey))
		} else {
			claims, err := bearerClaims(c, cfg.JWTService)
			if err != nil {
				code, msg := dto.ErrCodeTokenInvalid, "Invalid token"
				switch {
				case errors.Is(err, errMissingBearer):
					code, msg = dto.ErrCodeUnauthorized, "Authentication required"
				case errors.Is(err, auth.ErrExpiredToken):
					code, msg = dto.ErrCodeTokenExpired, "Token has expired"
				}
				abortUnauthorized(c, cfg.Logger, err, code, msg)
				return
			}
			// ValidateToken has already checked the tenant claim parses
			tenantID, _ = claims.TenantUUID()
			actor = claims.Actor()
			c.Set(ClaimsKey, claims)
		}

		c.Set(TenantIDKey, tenantID)
		c.Set(ActorKey, actor)

		ctx := logger.WithTenant(c.Request.Context(), tenantID.String())
		if actor != "" {
			ctx = logger.WithActor(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

var errMissingBearer = errors.New("missing bearer token")

func bearerClaims(c *gin.Context, svc *auth.JWTService) (*auth.Claims, error) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return nil, errMissingBearer
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return nil, errMissingBearer
	}
	return svc.ValidateToken(token)
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, code, message string) {
	log.Warn("Authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", logger.RequestID(c.Request.Context())),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, logger.RequestID(c.Request.Context())))
}

// GetTenantID returns the tenant resolved by Auth
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// GetActor returns the actor resolved by Auth, or "" when the caller is anonymous
func GetActor(c *gin.Context) string {
	return c.GetString(ActorKey)
}

// GetClaims returns the token claims, or nil when auth is disabled
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
