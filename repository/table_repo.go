package repository

import (
	"gorm.io/gorm"

	"github.com/yeremiapane/qrdine/models"
)

type tableRepo struct {
	db *gorm.DB
}

func (r *tableRepo) FindByQR(qrID string) (*models.Table, error) {
	var table models.Table
	if err := r.db.Where("qr_id = ?", qrID).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *tableRepo) FindByID(restaurantID, id uint) (*models.Table, error) {
	var table models.Table
	if err := r.db.Where("restaurant_id = ?", restaurantID).First(&table, id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *tableRepo) FindByIDForUpdate(restaurantID, id uint) (*models.Table, error) {
	var table models.Table
	if err := lockForUpdate(r.db).Where("restaurant_id = ?", restaurantID).First(&table, id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *tableRepo) Create(t *models.Table) error {
	return r.db.Create(t).Error
}

func (r *tableRepo) Save(t *models.Table) error {
	return r.db.Save(t).Error
}

func (r *tableRepo) Delete(t *models.Table) error {
	return r.db.Delete(t).Error
}

func (r *tableRepo) List(restaurantID uint) ([]models.Table, error) {
	var tables []models.Table
	err := r.db.Where("restaurant_id = ?", restaurantID).Order("number ASC").Find(&tables).Error
	return tables, err
}

func (r *tableRepo) NextNumber(restaurantID uint) (int, error) {
	var max int
	err := r.db.Model(&models.Table{}).
		Where("restaurant_id = ?", restaurantID).
		Select("COALESCE(MAX(number), 0)").Scan(&max).Error
	return max + 1, err
}

// EverUsed -> meja hanya boleh dihapus jika tidak pernah punya sesi atau order
func (r *tableRepo) EverUsed(tableID uint) (bool, error) {
	var sessions int64
	if err := r.db.Model(&models.TableSession{}).Where("table_id = ?", tableID).Count(&sessions).Error; err != nil {
		return false, err
	}
	if sessions > 0 {
		return true, nil
	}
	var orders int64
	if err := r.db.Model(&models.Order{}).Where("table_id = ?", tableID).Count(&orders).Error; err != nil {
		return false, err
	}
	return orders > 0, nil
}
