package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/services"
	"github.com/yeremiapane/qrdine/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> customer (bearer session token) memasukkan order
func (oc *OrderController) CreateOrder(c *gin.Context) {
	session := sessionFromCtx(c)
	if session == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session missing"))
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.CreateOrder(c.Request.Context(), session, req)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// TableOrders -> seluruh order sesi aktif pada meja pemanggil
func (oc *OrderController) TableOrders(c *gin.Context) {
	session := sessionFromCtx(c)
	if session == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session missing"))
		return
	}

	orders, err := oc.Orders.TableOrders(c.Request.Context(), session)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table orders", orders)
}

// GetOrder -> detail satu order milik meja pemanggil
func (oc *OrderController) GetOrder(c *gin.Context) {
	session := sessionFromCtx(c)
	if session == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session missing"))
		return
	}

	orderID, _ := strconv.Atoi(c.Param("order_id"))
	order, err := oc.Orders.CustomerOrder(c.Request.Context(), session, uint(orderID))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// KitchenQueue -> antrian dapur untuk KDS
func (oc *OrderController) KitchenQueue(c *gin.Context) {
	orders, err := oc.Orders.KitchenQueue(c.Request.Context(), staffCtx(c))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen queue", orders)
}

// ListOrders -> daftar staff dengan filter status/tanggal/meja + paginasi
func (oc *OrderController) ListOrders(c *gin.Context) {
	filters := repository.OrderFilters{
		Status:     c.Query("status"),
		ActiveOnly: c.Query("active_only") == "true",
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filters.Page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filters.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("table_id")); err == nil {
		filters.TableID = uint(v)
	}
	if v, err := time.Parse("2006-01-02", c.Query("date_from")); err == nil {
		filters.DateFrom = &v
	}
	if v, err := time.Parse("2006-01-02", c.Query("date_to")); err == nil {
		end := v.AddDate(0, 0, 1)
		filters.DateTo = &end
	}

	orders, total, err := oc.Orders.ListOrders(c.Request.Context(), staffCtx(c), filters)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{
		"orders": orders,
		"total":  total,
		"page":   filters.Page,
		"limit":  filters.Limit,
	})
}

// UpdateStatus -> staff memajukan status order
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orderID, _ := strconv.Atoi(c.Param("order_id"))
	order, err := oc.Orders.TransitionStatus(c.Request.Context(), staffCtx(c), uint(orderID), req.Status, req.Reason)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// UpdateItemStatus -> progres per-item dari dapur
func (oc *OrderController) UpdateItemStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orderID, _ := strconv.Atoi(c.Param("order_id"))
	itemID, _ := strconv.Atoi(c.Param("item_id"))
	order, err := oc.Orders.UpdateItemStatus(c.Request.Context(), staffCtx(c), uint(orderID), uint(itemID), req.Status)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order item updated", order)
}

// CancelOrder -> pembatalan oleh staff dengan alasan
func (oc *OrderController) CancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orderID, _ := strconv.Atoi(c.Param("order_id"))
	order, err := oc.Orders.CancelOrder(c.Request.Context(), staffCtx(c), uint(orderID), req.Reason)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

// Stats -> revenue window (paid_at) + aktivitas hari ini (created_at)
func (oc *OrderController) Stats(c *gin.Context) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	if v, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		from = v
	}
	if v, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		to = v.AddDate(0, 0, 1)
	}

	stats, err := oc.Orders.Stats(c.Request.Context(), staffCtx(c), from, to)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order stats", stats)
}
