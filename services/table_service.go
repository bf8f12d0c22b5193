package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/qrdine/fanout"
	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/utils"
)

// TableService -> state machine meja fisik dan operasi release (checkout)
// yang merekonsiliasi order tersisa dan menutup semua sesi.
type TableService struct {
	repos     repository.Repos
	publisher fanout.Publisher
	baseURL   string
}

func NewTableService(repos repository.Repos, publisher fanout.Publisher, baseURL string) *TableService {
	return &TableService{repos: repos, publisher: publisher, baseURL: strings.TrimRight(baseURL, "/")}
}

// CreateTable -> meja baru dengan nomor urut dan QR id unik
func (s *TableService) CreateTable(ctx context.Context, rctx RequestContext, capacity int) (*models.Table, error) {
	if err := requireCapability(rctx, CapTableManage); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, BadRequestf("table capacity must be positive")
	}

	number, err := s.repos.Tables().NextNumber(rctx.RestaurantID)
	if err != nil {
		return nil, err
	}

	qrID := uuid.NewString()
	table := &models.Table{
		RestaurantID: rctx.RestaurantID,
		Number:       number,
		Capacity:     capacity,
		Status:       models.TableActive,
		QRID:         qrID,
		QRURL:        fmt.Sprintf("%s/qr/%s", s.baseURL, qrID),
	}
	if err := s.repos.Tables().Create(table); err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("table %d created for restaurant %d", table.Number, rctx.RestaurantID)
	s.publishTable(ctx, table)
	return table, nil
}

func (s *TableService) ListTables(ctx context.Context, rctx RequestContext) ([]models.Table, error) {
	return s.repos.Tables().List(rctx.RestaurantID)
}

// DeleteTable -> hanya untuk meja yang tidak pernah punya sesi maupun order
func (s *TableService) DeleteTable(ctx context.Context, rctx RequestContext, tableID uint) error {
	if err := requireCapability(rctx, CapTableManage); err != nil {
		return err
	}

	table, err := s.findTable(rctx.RestaurantID, tableID)
	if err != nil {
		return err
	}

	used, err := s.repos.Tables().EverUsed(table.ID)
	if err != nil {
		return err
	}
	if used {
		return Conflictf("table %d has session or order history and cannot be deleted", table.Number)
	}
	return s.repos.Tables().Delete(table)
}

// Activate -> inactive/closed ke active saja
func (s *TableService) Activate(ctx context.Context, rctx RequestContext, tableID uint) (*models.Table, error) {
	if err := requireCapability(rctx, CapTableManage); err != nil {
		return nil, err
	}

	table, err := s.findTable(rctx.RestaurantID, tableID)
	if err != nil {
		return nil, err
	}

	switch table.Status {
	case models.TableActive:
		return nil, Conflictf("table %d is already active", table.Number)
	case models.TableInactive, models.TableClosed:
		table.Status = models.TableActive
	default:
		return nil, BadRequestf("table %d cannot be activated while %s", table.Number, table.Status)
	}

	if err := s.repos.Tables().Save(table); err != nil {
		return nil, err
	}
	s.publishTable(ctx, table)
	return table, nil
}

// Close menarik meja dari rotasi: semua sesi dinonaktifkan, status closed.
func (s *TableService) Close(ctx context.Context, rctx RequestContext, tableID uint) (*models.Table, error) {
	if err := requireCapability(rctx, CapTableManage); err != nil {
		return nil, err
	}

	var table *models.Table
	var closedSessions []models.TableSession
	err := s.repos.Transaction(func(tx repository.Repos) error {
		var err error
		table, err = tx.Tables().FindByIDForUpdate(rctx.RestaurantID, tableID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("table not found")
			}
			return err
		}

		closedSessions, err = s.deactivateSessions(tx, table.ID)
		if err != nil {
			return err
		}

		table.Status = models.TableClosed
		return tx.Tables().Save(table)
	})
	if err != nil {
		return nil, err
	}

	s.notifySessionsClosed(ctx, table, closedSessions, "table closed by staff")
	s.publishTable(ctx, table)
	return table, nil
}

// RequestBill -> customer minta tagihan; occupied -> bill_requested
func (s *TableService) RequestBill(ctx context.Context, session *models.TableSession) (*models.Table, error) {
	table, err := s.findTable(session.RestaurantID, session.TableID)
	if err != nil {
		return nil, err
	}
	if table.Status != models.TableOccupied {
		return nil, BadRequestf("bill can only be requested while the table is occupied (status: %s)", table.Status)
	}

	table.Status = models.TableBillRequested
	if err := s.repos.Tables().Save(table); err != nil {
		return nil, err
	}
	s.publishTable(ctx, table)
	return table, nil
}

// Release -> checkout. Gagal tanpa mutasi jika dapur masih memegang order;
// jika bersih: semua order ready jadi paid, semua sesi ditutup, meja kembali
// active. Satu-satunya tempat order mencapai PAID.
func (s *TableService) Release(ctx context.Context, rctx RequestContext, tableID uint) (*models.Table, error) {
	if err := requireCapability(rctx, CapTableRelease); err != nil {
		return nil, err
	}
	return s.release(ctx, rctx, tableID, false)
}

// ForceRelease -> jalur admin: batalkan semua order tersisa lalu release.
func (s *TableService) ForceRelease(ctx context.Context, rctx RequestContext, tableID uint) (*models.Table, error) {
	if err := requireCapability(rctx, CapTableForce); err != nil {
		return nil, err
	}
	return s.release(ctx, rctx, tableID, true)
}

func (s *TableService) release(ctx context.Context, rctx RequestContext, tableID uint, force bool) (*models.Table, error) {
	now := time.Now()
	var table *models.Table
	var closedSessions []models.TableSession

	err := s.repos.Transaction(func(tx repository.Repos) error {
		var err error
		table, err = tx.Tables().FindByIDForUpdate(rctx.RestaurantID, tableID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("table not found")
			}
			return err
		}

		blocking, err := tx.Orders().BlockingOrderNumbers(table.ID)
		if err != nil {
			return err
		}
		if len(blocking) > 0 {
			if !force {
				return BadRequestf("cannot release table %d, kitchen still holds order(s) %s",
					table.Number, joinNumbers(blocking))
			}
			if err := s.cancelOutstanding(tx, rctx, table.ID, now); err != nil {
				return err
			}
		}

		if err := s.payReadyOrders(tx, rctx, table.ID, now); err != nil {
			return err
		}

		closedSessions, err = s.deactivateSessions(tx, table.ID)
		if err != nil {
			return err
		}

		table.Status = models.TableActive
		return tx.Tables().Save(table)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("table %d released by actor %d (%d sessions closed)",
		table.Number, rctx.ActorID, len(closedSessions))
	s.notifySessionsClosed(ctx, table, closedSessions, "table checked out, thank you for your visit")
	s.publishTable(ctx, table)
	return table, nil
}

// payReadyOrders mempromosikan setiap order READY menjadi PAID dengan stempel
// waktu pembayaran.
func (s *TableService) payReadyOrders(tx repository.Repos, rctx RequestContext, tableID uint, now time.Time) error {
	ready, err := tx.Orders().ListByTableStatus(tableID, []string{models.OrderReady})
	if err != nil {
		return err
	}
	for i := range ready {
		order := &ready[i]
		rows, err := tx.Orders().UpdateStatusGuarded(order.ID, models.OrderReady, statusUpdates(models.OrderPaid, now))
		if err != nil {
			return err
		}
		if rows == 0 {
			return Conflictf("order #%d changed concurrently, retry release", order.OrderNumber)
		}
		if err := s.appendOrderLog(tx, order, models.LogOrderPaid, map[string]interface{}{
			"actor": rctx.ActorID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *TableService) cancelOutstanding(tx repository.Repos, rctx RequestContext, tableID uint, now time.Time) error {
	outstanding, err := tx.Orders().ListByTableStatus(tableID,
		[]string{models.OrderPending, models.OrderConfirmed, models.OrderPreparing})
	if err != nil {
		return err
	}
	for i := range outstanding {
		order := &outstanding[i]
		rows, err := tx.Orders().UpdateStatusGuarded(order.ID, order.Status, statusUpdates(models.OrderCancelled, now))
		if err != nil {
			return err
		}
		if rows == 0 {
			return Conflictf("order #%d changed concurrently, retry release", order.OrderNumber)
		}
		if err := tx.Orders().UpdateItemsStatus(order.ID, nil, models.ItemCancelled); err != nil {
			return err
		}
		if err := s.appendOrderLog(tx, order, models.LogOrderCancelled, map[string]interface{}{
			"actor":  rctx.ActorID,
			"reason": "force release",
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *TableService) deactivateSessions(tx repository.Repos, tableID uint) ([]models.TableSession, error) {
	sessions, err := tx.Sessions().ListActiveByTable(tableID, time.Now())
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Active = false
		if err := tx.Sessions().Save(&sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// notifySessionsClosed mengirim session:closed ke room meja DAN tiap room
// sesi; client bisa saja hanya subscribe ke salah satunya.
func (s *TableService) notifySessionsClosed(ctx context.Context, table *models.Table, sessions []models.TableSession, message string) {
	rooms := []string{fanout.TableRoom(table.ID)}
	for _, session := range sessions {
		rooms = append(rooms, fanout.SessionRoom(session.ID))
	}
	s.publisher.Publish(ctx, table.RestaurantID, rooms, fanout.EventSessionClosed, map[string]interface{}{
		"table_id": table.ID,
		"message":  message,
	})
}

func (s *TableService) publishTable(ctx context.Context, table *models.Table) {
	s.publisher.Publish(ctx, table.RestaurantID,
		[]string{fanout.RestaurantRoom(table.RestaurantID), fanout.StaffRoom(table.RestaurantID)},
		fanout.EventTableUpdated, table)
}

func (s *TableService) findTable(restaurantID, tableID uint) (*models.Table, error) {
	table, err := s.repos.Tables().FindByID(restaurantID, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("table not found")
		}
		return nil, err
	}
	return table, nil
}

func (s *TableService) appendOrderLog(tx repository.Repos, order *models.Order, action string, detail map[string]interface{}) error {
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

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("#%d", n)
	}
	return strings.Join(parts, ", ")
}
