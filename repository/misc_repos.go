package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/qrdine/models"
)

type restaurantRepo struct {
	db *gorm.DB
}

func (r *restaurantRepo) FindByID(id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.First(&restaurant, id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepo) FindByIDForUpdate(id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := lockForUpdate(r.db).First(&restaurant, id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepo) Create(m *models.Restaurant) error {
	return r.db.Create(m).Error
}

func (r *restaurantRepo) Save(m *models.Restaurant) error {
	return r.db.Save(m).Error
}

type verificationRepo struct {
	db *gorm.DB
}

func (r *verificationRepo) Create(v *models.VerificationCode) error {
	return r.db.Create(v).Error
}

// MarkUsed menandai baris audit terbaru yang cocok dan belum terpakai.
func (r *verificationRepo) MarkUsed(restaurantID, tableID uint, phone, code string, usedAt time.Time) error {
	return r.db.Model(&models.VerificationCode{}).
		Where("restaurant_id = ? AND table_id = ? AND phone = ? AND code = ? AND used_at IS NULL",
			restaurantID, tableID, phone, code).
		Update("used_at", usedAt).Error
}

type menuRepo struct {
	db *gorm.DB
}

func (r *menuRepo) FindByIDs(restaurantID uint, ids []uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := r.db.Where("restaurant_id = ? AND id IN ?", restaurantID, ids).Find(&items).Error
	return items, err
}

func (r *menuRepo) Create(m *models.MenuItem) error {
	return r.db.Create(m).Error
}

func (r *menuRepo) List(restaurantID uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := r.db.Where("restaurant_id = ?", restaurantID).Order("name ASC").Find(&items).Error
	return items, err
}

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Create(u *models.User) error {
	return r.db.Create(u).Error
}
