package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/qrdine/fanout"
	"github.com/yeremiapane/qrdine/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSController -> endpoint websocket untuk customer dan staff
type WSController struct {
	Hub *fanout.Hub
}

func NewWSController(hub *fanout.Hub) *WSController {
	return &WSController{Hub: hub}
}

// CustomerWS -> customer masuk room restoran, meja, dan sesinya sendiri.
// Autentikasi lewat SessionAuth (session token di query).
func (wc *WSController) CustomerWS(c *gin.Context) {
	session := sessionFromCtx(c)
	if session == nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	wc.Hub.Join(fanout.RestaurantRoom(session.RestaurantID), ws)
	wc.Hub.Join(fanout.TableRoom(session.TableID), ws)
	wc.Hub.Join(fanout.SessionRoom(session.ID), ws)

	wc.readUntilClose(ws)
}

// StaffWS -> staff masuk room restoran + room role-nya; chef juga room dapur
func (wc *WSController) StaffWS(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	role := c.GetString("role")
	if restaurantID == 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	wc.Hub.Join(fanout.RestaurantRoom(restaurantID), ws)
	wc.Hub.Join(fanout.StaffRoom(restaurantID), ws)
	if role == models.RoleChef || role == models.RoleAdmin {
		wc.Hub.Join(fanout.KitchenRoom(restaurantID), ws)
	}

	wc.readUntilClose(ws)
}

func (wc *WSController) readUntilClose(ws *websocket.Conn) {
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	wc.Hub.Leave(ws)
}
