package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/qrdine/models"
)

type orderRepo struct {
	db *gorm.DB
}

func (r *orderRepo) FindByID(restaurantID, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").
		Where("restaurant_id = ?", restaurantID).
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) Create(o *models.Order) error {
	return r.db.Create(o).Error
}

func (r *orderRepo) Save(o *models.Order) error {
	return r.db.Save(o).Error
}

func (r *orderRepo) UpdateStatusGuarded(orderID uint, from string, updates map[string]interface{}) (int64, error) {
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// NextOrderNumber -> nomor urut per restoran per hari kalender. Pola
// baca-MAX-lalu-insert: pemanggil wajib memegang lock baris restoran
// (FindByIDForUpdate) supaya dua transaksi tidak membaca MAX yang sama.
func (r *orderRepo) NextOrderNumber(restaurantID uint, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var max int
	err := r.db.Model(&models.Order{}).
		Where("restaurant_id = ? AND created_at >= ? AND created_at < ?", restaurantID, start, end).
		Select("COALESCE(MAX(order_number), 0)").Scan(&max).Error
	return max + 1, err
}

func (r *orderRepo) KitchenQueue(restaurantID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("restaurant_id = ? AND status IN ?", restaurantID,
			[]string{models.OrderPending, models.OrderConfirmed, models.OrderPreparing, models.OrderReady}).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) ListBySessions(tableID uint, sessionIDs []uint) ([]models.Order, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("table_id = ? AND session_id IN ? AND status <> ?", tableID, sessionIDs, models.OrderCancelled).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) List(restaurantID uint, f OrderFilters) ([]models.Order, int64, error) {
	q := r.db.Model(&models.Order{}).Where("orders.restaurant_id = ?", restaurantID)

	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	if f.TableID != 0 {
		q = q.Where("orders.table_id = ?", f.TableID)
	}
	if f.DateFrom != nil {
		q = q.Where("orders.created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("orders.created_at < ?", *f.DateTo)
	}
	if f.ActiveOnly {
		// Hanya order dari sesi yang masih aktif; mencegah tagihan sesi lama
		// yang sudah ditutup ikut tampil di kasir.
		q = q.Joins("JOIN table_sessions ON table_sessions.id = orders.session_id").
			Where("table_sessions.active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	var orders []models.Order
	err := q.Preload("Items").
		Order("orders.created_at DESC").
		Limit(f.Limit).Offset((f.Page - 1) * f.Limit).
		Find(&orders).Error
	return orders, total, err
}

// BlockingOrderNumbers -> nomor order yang menahan release meja
func (r *orderRepo) BlockingOrderNumbers(tableID uint) ([]int, error) {
	var numbers []int
	err := r.db.Model(&models.Order{}).
		Where("table_id = ? AND status IN ?", tableID,
			[]string{models.OrderPending, models.OrderConfirmed, models.OrderPreparing}).
		Order("order_number ASC").
		Pluck("order_number", &numbers).Error
	return numbers, err
}

func (r *orderRepo) ListByTableStatus(tableID uint, statuses []string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("table_id = ? AND status IN ?", tableID, statuses).Find(&orders).Error
	return orders, err
}

func (r *orderRepo) FindItem(orderID, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.Where("order_id = ?", orderID).First(&item, itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *orderRepo) SaveItem(i *models.OrderItem) error {
	return r.db.Save(i).Error
}

func (r *orderRepo) ListItems(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.Where("order_id = ?", orderID).Find(&items).Error
	return items, err
}

// UpdateItemsStatus menyamakan status semua item order kecuali yang sudah
// berada pada status dalam `except`.
func (r *orderRepo) UpdateItemsStatus(orderID uint, except []string, status string) error {
	q := r.db.Model(&models.OrderItem{}).Where("order_id = ?", orderID)
	if len(except) > 0 {
		q = q.Where("status NOT IN ?", except)
	}
	return q.Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *orderRepo) AppendLog(l *models.OrderLog) error {
	return r.db.Create(l).Error
}

// PaidStats -> jumlah dan revenue order paid difilter berdasarkan paid_at.
// Terpisah dari hitungan created_at yang dipakai "aktivitas hari ini".
func (r *orderRepo) PaidStats(restaurantID uint, from, to time.Time) (int64, float64, error) {
	var count int64
	var revenue float64

	where := "restaurant_id = ? AND status = ? AND paid_at >= ? AND paid_at < ?"
	if err := r.db.Model(&models.Order{}).
		Where(where, restaurantID, models.OrderPaid, from, to).
		Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.Model(&models.Order{}).
		Where(where, restaurantID, models.OrderPaid, from, to).
		Select("COALESCE(SUM(total), 0)").Scan(&revenue).Error; err != nil {
		return 0, 0, err
	}
	return count, revenue, nil
}

func (r *orderRepo) CountCreatedSince(restaurantID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("restaurant_id = ? AND created_at >= ?", restaurantID, since).
		Count(&count).Error
	return count, err
}
