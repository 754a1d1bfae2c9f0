package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/building-chat/internal/handlers/dto"
	"github.com/thereayou/building-chat/internal/services"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет ошибку сервиса; внутренняя причина только в логе
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		pkglog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
	}
	c.JSON(statusFor(kind), dto.Fail(string(kind), services.PublicMessage(err)))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.Fail(string(services.KindValidation), msg))
}
