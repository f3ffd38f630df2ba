package middleware

import (
	"fmt"
	"net/http"

	"github.com/campus/backend/internal/infrastructure/logger"
	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimits caps request bodies. Routes overrides Default per gin route
// pattern such as "/api/v1/payments".
type BodyLimits struct {
	Default int64
	Routes  map[string]int64
}

func (l BodyLimits) limitFor(fullPath string) int64 {
	if n, ok := l.Routes[fullPath]; ok {
		return n
	}
	return l.Default
}

// BodyLimit refuses declared lengths over the route's cap and cuts chunked
// bodies off while they are read; bind errors caused by the cut surface as
// 413 through HandleValidationError.
func BodyLimit(limits BodyLimits) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := limits.limitFor(c.FullPath())
		if limit <= 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, tooLargeResponse(c, limit))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func tooLargeResponse(c *gin.Context, limit int64) dto.Response {
	return dto.NewErrorResponseWithRequestID(dto.ErrCodeTooLarge,
		fmt.Sprintf("Request body exceeds %d bytes", limit),
		logger.RequestID(c.Request.Context()))
}
