package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/qrdine/models"
)

type sessionRepo struct {
	db *gorm.DB
}

func (r *sessionRepo) FindByID(restaurantID, id uint) (*models.TableSession, error) {
	var session models.TableSession
	if err := r.db.Where("restaurant_id = ?", restaurantID).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) FindActiveByFingerprint(tableID uint, fingerprint string, now time.Time) (*models.TableSession, error) {
	var session models.TableSession
	err := r.db.
		Where("table_id = ? AND device_fingerprint = ? AND active = ? AND expires_at > ?",
			tableID, fingerprint, true, now).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) FindPendingVerification(tableID uint, phone, fingerprint string, now time.Time) (*models.TableSession, error) {
	var session models.TableSession
	err := r.db.
		Where("table_id = ? AND customer_phone = ? AND device_fingerprint = ? AND verified = ? AND active = ? AND expires_at > ?",
			tableID, phone, fingerprint, false, true, now).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) CountActive(tableID uint, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.TableSession{}).
		Where("table_id = ? AND active = ? AND expires_at > ?", tableID, true, now).
		Count(&count).Error
	return count, err
}

func (r *sessionRepo) ListActiveByTable(tableID uint, now time.Time) ([]models.TableSession, error) {
	var sessions []models.TableSession
	err := r.db.
		Where("table_id = ? AND active = ? AND expires_at > ?", tableID, true, now).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) Create(s *models.TableSession) error {
	return r.db.Create(s).Error
}

func (r *sessionRepo) Save(s *models.TableSession) error {
	return r.db.Save(s).Error
}
