package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/qrdine/controllers"
	"github.com/yeremiapane/qrdine/fanout"
	"github.com/yeremiapane/qrdine/middlewares"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/services"
)

// SetupRouter -> merakit seluruh endpoint HTTP dan websocket
func SetupRouter(
	repos repository.Repos,
	sessions *services.SessionService,
	orders *services.OrderService,
	tables *services.TableService,
	hub *fanout.Hub,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(120, 60).RateLimit())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(repos)
	menuCtrl := controllers.NewMenuController(repos)
	sessionCtrl := controllers.NewSessionController(sessions)
	orderCtrl := controllers.NewOrderController(orders)
	tableCtrl := controllers.NewTableController(tables)
	wsCtrl := controllers.NewWSController(hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------

	// Rate limiter ketat untuk login/register dan kode verifikasi
	strict := r.Group("/")
	strict.Use(middlewares.NewStrictRateLimiter())
	{
		strict.POST("/register", userCtrl.Register)
		strict.POST("/login", userCtrl.Login)
		strict.POST("/verify/request", sessionCtrl.RequestCode)
		strict.POST("/verify/confirm", sessionCtrl.VerifyCode)
	}

	// Alur scan QR (tanpa auth)
	r.GET("/qr/:qr_id", sessionCtrl.CheckEligibility)
	r.GET("/qr/:qr_id/session", sessionCtrl.LookupSession)
	r.POST("/qr/:qr_id/sessions", sessionCtrl.CreateSession)

	// Lihat menu
	r.GET("/menus/:restaurant_id", menuCtrl.ListMenu)

	// ----------------------------------------------------------------
	//                      CUSTOMER ROUTES (session token)
	// ----------------------------------------------------------------
	customer := r.Group("/")
	customer.Use(middlewares.SessionAuth(sessions))
	{
		customer.POST("/orders", orderCtrl.CreateOrder)
		customer.GET("/orders", orderCtrl.TableOrders)
		customer.GET("/orders/:order_id", orderCtrl.GetOrder)
		customer.POST("/session/end", sessionCtrl.EndSession)
		customer.POST("/table/bill", tableCtrl.RequestBill)
	}

	// ----------------------------------------------------------------
	//                      STAFF ROUTES (JWT)
	// ----------------------------------------------------------------
	staff := r.Group("/staff")
	staff.Use(middlewares.StaffAuth())
	{
		// KDS
		staff.GET("/kitchen/queue", orderCtrl.KitchenQueue)

		// ORDERS
		staff.GET("/orders", orderCtrl.ListOrders)
		staff.PATCH("/orders/:order_id/status", orderCtrl.UpdateStatus)
		staff.PATCH("/orders/:order_id/items/:item_id/status", orderCtrl.UpdateItemStatus)
		staff.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)
		staff.GET("/stats", orderCtrl.Stats)

		// TABLES
		staff.POST("/tables", tableCtrl.CreateTable)
		staff.GET("/tables", tableCtrl.GetAllTables)
		staff.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
		staff.PATCH("/tables/:table_id/activate", tableCtrl.ActivateTable)
		staff.PATCH("/tables/:table_id/close", tableCtrl.CloseTable)
		staff.POST("/tables/:table_id/release", tableCtrl.ReleaseTable)
		staff.POST("/tables/:table_id/force-release", tableCtrl.ForceReleaseTable)

		// MENUS
		staff.POST("/menus", menuCtrl.CreateMenuItem)
	}

	// WebSocket endpoint dengan middleware khusus
	ws := r.Group("/ws")
	{
		ws.GET("/customer", middlewares.SessionAuth(sessions), wsCtrl.CustomerWS)
		ws.GET("/staff", middlewares.StaffWSAuth(), wsCtrl.StaffWS)
	}

	return r
}
