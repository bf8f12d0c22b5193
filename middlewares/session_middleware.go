package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/qrdine/services"
	"github.com/yeremiapane/qrdine/utils"
)

// SessionKey -> key context untuk sesi customer yang sudah tervalidasi
const SessionKey = "table_session"

// SessionAuth me-resolve bearer session token customer lewat SessionService.
// Token yang hilang/basi/belum verified ditolak (fail closed).
func SessionAuth(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("session token missing"))
			c.Abort()
			return
		}

		session, err := sessions.ValidateToken(c.Request.Context(), token)
		if err != nil {
			utils.RespondError(c, services.HTTPStatus(err), err)
			c.Abort()
			return
		}

		c.Set(SessionKey, session)
		c.Next()
	}
}
