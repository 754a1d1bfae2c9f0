package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/building-chat/internal/handlers/dto"
	"github.com/thereayou/building-chat/internal/middleware"
	"github.com/thereayou/building-chat/pkg/auth"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

// AuthHandler только отзывает токены, выдает их сервис аккаунтов
type AuthHandler struct {
	jwtManager *auth.JWTManager
	blacklist  auth.Blacklist
}

func NewAuthHandler(jwtMgr *auth.JWTManager, blacklist auth.Blacklist) *AuthHandler {
	return &AuthHandler{jwtManager: jwtMgr, blacklist: blacklist}
}

// Logout заносит токен в черный список до истечения его срока
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.TokenKey)

	exp, err := h.jwtManager.Expiry(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.Fail("UNAUTHENTICATED", "authentication required"))
		return
	}

	if err := h.blacklist.Revoke(c.Request.Context(), token, time.Until(exp)); err != nil {
		pkglog.Ctx(c.Request.Context()).Error().Err(err).Msg("revoke token")
		c.JSON(http.StatusInternalServerError, dto.Fail("INTERNAL", "internal error"))
		return
	}

	c.JSON(http.StatusOK, dto.OK(gin.H{"message": "logged out"}))
}
