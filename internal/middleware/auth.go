package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/building-chat/internal/handlers/dto"
	"github.com/thereayou/building-chat/internal/models"
	"github.com/thereayou/building-chat/internal/services"
	"github.com/thereayou/building-chat/pkg/auth"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

const (
	IdentityKey = "identity"
	TokenKey    = "token"
)

// AuthMiddleware проверяет bearer-токен REST-запроса
func AuthMiddleware(authenticator *services.Authenticator) gin.HandlerFunc {
	return authenticate(authenticator, auth.ExtractTokenFromHeader)
}

// WSAuthMiddleware аутентифицирует WebSocket до апгрейда: сначала заголовок, затем ?token=
func WSAuthMiddleware(authenticator *services.Authenticator) gin.HandlerFunc {
	return authenticate(authenticator, auth.ExtractConnectionToken)
}

func authenticate(authenticator *services.Authenticator, extract func(*http.Request) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extract(c.Request)
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		identity, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		c.Set(IdentityKey, identity)
		c.Set(TokenKey, token)
		c.Set(pkglog.FieldUserID, identity.ID)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail(string(services.KindUnauthenticated), services.ErrUnauthenticated.Message))
}

// Identity возвращает пользователя, которого положил AuthMiddleware
func Identity(c *gin.Context) models.UserIdentity {
	return c.MustGet(IdentityKey).(models.UserIdentity)
}
