package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/qrdine/fanout"
	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/utils"
)

// OrderService -> siklus hidup order: pembuatan dari sesi terverifikasi dan
// state machine status order/item yang dipakai dapur dan kasir.
type OrderService struct {
	repos     repository.Repos
	publisher fanout.Publisher
}

func NewOrderService(repos repository.Repos, publisher fanout.Publisher) *OrderService {
	return &OrderService{repos: repos, publisher: publisher}
}

type OrderItemInput struct {
	MenuItemID uint     `json:"menu_item_id"`
	Quantity   int      `json:"quantity"`
	Notes      string   `json:"notes"`
	Extras     []string `json:"extras"`
}

type CreateOrderInput struct {
	Items []OrderItemInput `json:"items"`
	Notes string           `json:"notes"`
}

// CreateOrder membuat order dari sesi terverifikasi. Resolusi katalog
// all-or-nothing: satu item tidak tersedia menolak seluruh order.
func (s *OrderService) CreateOrder(ctx context.Context, session *models.TableSession, in CreateOrderInput) (*models.Order, error) {
	now := time.Now()
	if !session.Usable(now) {
		return nil, Forbiddenf("session is not verified or no longer active")
	}
	if len(in.Items) == 0 {
		return nil, BadRequestf("order must contain at least one item")
	}

	ids := make([]uint, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, BadRequestf("item quantity must be positive")
		}
		ids = append(ids, item.MenuItemID)
	}

	menuItems, err := s.repos.Menu().FindByIDs(session.RestaurantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.MenuItem, len(menuItems))
	for i := range menuItems {
		byID[menuItems[i].ID] = &menuItems[i]
	}

	var subtotal float64
	orderItems := make([]models.OrderItem, 0, len(in.Items))
	for _, req := range in.Items {
		menu, ok := byID[req.MenuItemID]
		if !ok {
			return nil, BadRequestf("menu item %d does not exist", req.MenuItemID)
		}
		if !menu.Available {
			return nil, BadRequestf("menu item %q is no longer available", menu.Name)
		}

		extras := make([]models.MenuExtra, 0, len(req.Extras))
		for _, name := range req.Extras {
			extra, ok := menu.ExtraByName(name)
			if !ok {
				return nil, BadRequestf("extra %q is not offered for %q", name, menu.Name)
			}
			extras = append(extras, extra)
		}

		line := models.LinePrice(menu.Price, extras, req.Quantity)
		subtotal += line
		orderItems = append(orderItems, models.OrderItem{
			MenuItemID: menu.ID,
			Name:       menu.Name,
			Quantity:   req.Quantity,
			UnitPrice:  menu.Price,
			Extras:     extras,
			Price:      line,
			Notes:      req.Notes,
			Status:     models.ItemPending,
		})
	}

	order := &models.Order{
		RestaurantID: session.RestaurantID,
		TableID:      session.TableID,
		SessionID:    session.ID,
		Status:       models.OrderPending,
		Subtotal:     subtotal,
		Discount:     0,
		Total:        subtotal,
		Notes:        in.Notes,
		Items:        orderItems,
	}

	err = s.repos.Transaction(func(tx repository.Repos) error {
		// Kunci baris restoran: tanpa ini dua transaksi bersamaan membaca
		// MAX(order_number) yang sama dan menulis nomor kembar.
		if _, err := tx.Restaurants().FindByIDForUpdate(session.RestaurantID); err != nil {
			return err
		}
		number, err := tx.Orders().NextOrderNumber(session.RestaurantID, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Orders().Create(order); err != nil {
			return err
		}
		if err := s.appendLog(tx, order, models.LogOrderCreated, map[string]interface{}{
			"session_id": session.ID,
			"total":      order.Total,
		}); err != nil {
			return err
		}

		table, err := tx.Tables().FindByIDForUpdate(session.RestaurantID, session.TableID)
		if err != nil {
			return err
		}
		if table.Status == models.TableActive {
			table.Status = models.TableOccupied
			return tx.Tables().Save(table)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("order #%d created on table %d (session %d)",
		order.OrderNumber, order.TableID, order.SessionID)
	s.publisher.Publish(ctx, order.RestaurantID, s.orderRooms(order), fanout.EventOrderCreated, order)
	return order, nil
}

// TransitionStatus memindahkan order sepanjang graf transisi legal. PAID tidak
// bisa dicapai lewat sini; hanya release meja yang menandai order terbayar.
func (s *OrderService) TransitionStatus(ctx context.Context, rctx RequestContext, orderID uint, newStatus, reason string) (*models.Order, error) {
	if err := requireCapability(rctx, CapOrderTransition); err != nil {
		return nil, err
	}
	if newStatus == models.OrderPaid {
		return nil, BadRequestf("orders are paid through table checkout, not a direct status change")
	}

	order, err := s.findOrder(rctx.RestaurantID, orderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status

	if !models.CanTransition(previous, newStatus) {
		return nil, BadRequestf("illegal order status transition from %s to %s", previous, newStatus)
	}

	now := time.Now()
	err = s.repos.Transaction(func(tx repository.Repos) error {
		rows, err := tx.Orders().UpdateStatusGuarded(order.ID, previous, statusUpdates(newStatus, now))
		if err != nil {
			return err
		}
		if rows == 0 {
			return Conflictf("order status changed concurrently, reload and retry")
		}

		// Order tidak boleh READY selagi ada item yang tertinggal
		if newStatus == models.OrderReady {
			if err := tx.Orders().UpdateItemsStatus(order.ID,
				[]string{models.ItemReady, models.ItemCancelled}, models.ItemReady); err != nil {
				return err
			}
		}

		return s.appendLog(tx, order, models.LogStatusChanged, map[string]interface{}{
			"from":   previous,
			"to":     newStatus,
			"actor":  rctx.ActorID,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.findOrder(rctx.RestaurantID, orderID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, updated.RestaurantID, s.orderRooms(updated), fanout.EventOrderUpdated, map[string]interface{}{
		"order":           updated,
		"previous_status": previous,
		"status":          updated.Status,
	})
	return updated, nil
}

// UpdateItemStatus mengubah satu item; saat semua item ready dan order masih
// preparing, order dipromosikan ke ready dalam transaksi yang sama.
func (s *OrderService) UpdateItemStatus(ctx context.Context, rctx RequestContext, orderID, itemID uint, newStatus string) (*models.Order, error) {
	if err := requireCapability(rctx, CapOrderTransition); err != nil {
		return nil, err
	}

	switch newStatus {
	case models.ItemPending, models.ItemPreparing, models.ItemReady, models.ItemCancelled:
	default:
		return nil, BadRequestf("unknown item status %q", newStatus)
	}

	order, err := s.findOrder(rctx.RestaurantID, orderID)
	if err != nil {
		return nil, err
	}
	if models.OrderTerminal(order.Status) {
		return nil, BadRequestf("order is %s and can no longer change", order.Status)
	}

	now := time.Now()
	promoted := false
	err = s.repos.Transaction(func(tx repository.Repos) error {
		item, err := tx.Orders().FindItem(order.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("order item not found")
			}
			return err
		}

		previous := item.Status
		item.Status = newStatus
		if err := tx.Orders().SaveItem(item); err != nil {
			return err
		}
		if err := s.appendLog(tx, order, models.LogItemStatusChanged, map[string]interface{}{
			"item_id": item.ID,
			"from":    previous,
			"to":      newStatus,
			"actor":   rctx.ActorID,
		}); err != nil {
			return err
		}

		if newStatus != models.ItemReady || order.Status != models.OrderPreparing {
			return nil
		}

		items, err := tx.Orders().ListItems(order.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.Status != models.ItemReady && it.Status != models.ItemCancelled {
				return nil
			}
		}

		// Agregasi per-item -> status order, atomik terhadap update item
		rows, err := tx.Orders().UpdateStatusGuarded(order.ID, models.OrderPreparing,
			statusUpdates(models.OrderReady, now))
		if err != nil {
			return err
		}
		if rows == 0 {
			return Conflictf("order status changed concurrently, reload and retry")
		}
		promoted = true
		return s.appendLog(tx, order, models.LogStatusChanged, map[string]interface{}{
			"from":  models.OrderPreparing,
			"to":    models.OrderReady,
			"actor": rctx.ActorID,
			"auto":  true,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.findOrder(rctx.RestaurantID, orderID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, updated.RestaurantID, s.orderRooms(updated), fanout.EventOrderItem, map[string]interface{}{
		"order":   updated,
		"item_id": itemID,
		"status":  newStatus,
	})
	if promoted {
		s.publisher.Publish(ctx, updated.RestaurantID, s.orderRooms(updated), fanout.EventOrderUpdated, map[string]interface{}{
			"order":           updated,
			"previous_status": models.OrderPreparing,
			"status":          models.OrderReady,
		})
	}
	return updated, nil
}

// CancelOrder -> legal selama order belum paid/cancelled
func (s *OrderService) CancelOrder(ctx context.Context, rctx RequestContext, orderID uint, reason string) (*models.Order, error) {
	if err := requireCapability(rctx, CapOrderCancel); err != nil {
		return nil, err
	}

	order, err := s.findOrder(rctx.RestaurantID, orderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if models.OrderTerminal(previous) {
		return nil, BadRequestf("order is already %s", previous)
	}

	now := time.Now()
	err = s.repos.Transaction(func(tx repository.Repos) error {
		rows, err := tx.Orders().UpdateStatusGuarded(order.ID, previous, statusUpdates(models.OrderCancelled, now))
		if err != nil {
			return err
		}
		if rows == 0 {
			return Conflictf("order status changed concurrently, reload and retry")
		}
		if err := tx.Orders().UpdateItemsStatus(order.ID, nil, models.ItemCancelled); err != nil {
			return err
		}
		return s.appendLog(tx, order, models.LogOrderCancelled, map[string]interface{}{
			"from":   previous,
			"actor":  rctx.ActorID,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.findOrder(rctx.RestaurantID, orderID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, updated.RestaurantID, s.orderRooms(updated), fanout.EventOrderCancelled, map[string]interface{}{
		"order":  updated,
		"reason": reason,
	})
	return updated, nil
}

// KitchenQueue -> antrian dapur, tertua lebih dulu
func (s *OrderService) KitchenQueue(ctx context.Context, rctx RequestContext) ([]models.Order, error) {
	if err := requireCapability(rctx, CapKitchenView); err != nil {
		return nil, err
	}
	return s.repos.Orders().KitchenQueue(rctx.RestaurantID)
}

// TableOrder -> order satu meja plus penanda milik sesi pemanggil
type TableOrder struct {
	models.Order
	Mine bool `json:"mine"`
}

// TableOrders mengembalikan order non-cancelled dari sesi yang MASIH aktif di
// meja ini. Order sesi lama yang sudah ditutup tidak ikut, supaya tagihan
// rombongan sebelumnya tidak bocor ke rombongan berikutnya.
func (s *OrderService) TableOrders(ctx context.Context, session *models.TableSession) ([]TableOrder, error) {
	active, err := s.repos.Sessions().ListActiveByTable(session.TableID, time.Now())
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(active))
	for _, as := range active {
		ids = append(ids, as.ID)
	}

	orders, err := s.repos.Orders().ListBySessions(session.TableID, ids)
	if err != nil {
		return nil, err
	}

	result := make([]TableOrder, 0, len(orders))
	for _, o := range orders {
		result = append(result, TableOrder{Order: o, Mine: o.SessionID == session.ID})
	}
	return result, nil
}

// CustomerOrder -> detail order, hanya jika terlihat dari sesi pemanggil
func (s *OrderService) CustomerOrder(ctx context.Context, session *models.TableSession, orderID uint) (*models.Order, error) {
	order, err := s.findOrder(session.RestaurantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.TableID != session.TableID {
		return nil, NotFoundf("order not found")
	}
	return order, nil
}

// ListOrders -> daftar staff dengan filter dan paginasi
func (s *OrderService) ListOrders(ctx context.Context, rctx RequestContext, f repository.OrderFilters) ([]models.Order, int64, error) {
	if err := requireCapability(rctx, CapOrderList); err != nil {
		return nil, 0, err
	}
	return s.repos.Orders().List(rctx.RestaurantID, f)
}

// Stats -> revenue dari order paid (difilter paid_at) terpisah dari hitungan
// order yang dibuat hari ini; keduanya tidak boleh dicampur.
type Stats struct {
	PaidOrders   int64   `json:"paid_orders"`
	PaidRevenue  float64 `json:"paid_revenue"`
	CreatedToday int64   `json:"created_today"`
}

func (s *OrderService) Stats(ctx context.Context, rctx RequestContext, from, to time.Time) (*Stats, error) {
	if err := requireCapability(rctx, CapStatsView); err != nil {
		return nil, err
	}

	count, revenue, err := s.repos.Orders().PaidStats(rctx.RestaurantID, from, to)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	created, err := s.repos.Orders().CountCreatedSince(rctx.RestaurantID, startOfDay)
	if err != nil {
		return nil, err
	}

	return &Stats{PaidOrders: count, PaidRevenue: revenue, CreatedToday: created}, nil
}

func (s *OrderService) findOrder(restaurantID, orderID uint) (*models.Order, error) {
	order, err := s.repos.Orders().FindByID(restaurantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) orderRooms(order *models.Order) []string {
	return []string{
		fanout.RestaurantRoom(order.RestaurantID),
		fanout.KitchenRoom(order.RestaurantID),
		fanout.TableRoom(order.TableID),
		fanout.SessionRoom(order.SessionID),
	}
}

func (s *OrderService) appendLog(tx repository.Repos, order *models.Order, action string, detail map[string]interface{}) error {
	blob, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return tx.Orders().AppendLog(&models.OrderLog{
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Action:       action,
		Detail:       string(blob),
	})
}

func statusUpdates(status string, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case models.OrderConfirmed:
		updates["confirmed_at"] = now
	case models.OrderPreparing:
		updates["preparing_at"] = now
	case models.OrderReady:
		updates["ready_at"] = now
	case models.OrderPaid:
		updates["paid_at"] = now
	case models.OrderCancelled:
		updates["cancelled_at"] = now
	}
	return updates
}
