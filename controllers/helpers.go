package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/qrdine/middlewares"
	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/services"
	"github.com/yeremiapane/qrdine/utils"
)

// respondServiceErr memetakan error service ke HTTP. Pelanggaran aturan bisnis
// tampil apa adanya ke caller; kegagalan infrastruktur dicatat dan dibungkus.
func respondServiceErr(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	utils.RespondError(c, status, err)
}

// staffCtx -> RequestContext dari claims yang diisi StaffAuth
func staffCtx(c *gin.Context) services.RequestContext {
	return services.StaffContext(
		c.GetUint("user_id"),
		c.GetUint("restaurant_id"),
		c.GetString("role"),
	)
}

// sessionFromCtx -> sesi customer yang diisi SessionAuth
func sessionFromCtx(c *gin.Context) *models.TableSession {
	v, ok := c.Get(middlewares.SessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*models.TableSession)
	return session
}
