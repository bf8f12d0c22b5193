package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/qrdine/config"
	"github.com/yeremiapane/qrdine/ephemeral"
	"github.com/yeremiapane/qrdine/fanout"
	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/utils"
)

// SessionService -> state machine sesi meja: eligibility, pembuatan sesi,
// hand-off verifikasi, penerbitan/validasi session token, dan penutupan sesi.
type SessionService struct {
	repos        repository.Repos
	store        ephemeral.Store
	verification *VerificationService
	publisher    fanout.Publisher
	cfg          config.Config
	defaults     models.RestaurantSettings
}

func NewSessionService(repos repository.Repos, store ephemeral.Store, verification *VerificationService, publisher fanout.Publisher, cfg config.Config) *SessionService {
	return &SessionService{
		repos:        repos,
		store:        store,
		verification: verification,
		publisher:    publisher,
		cfg:          cfg,
		defaults:     models.DefaultSettings(cfg.DefaultGeofenceRadiusM),
	}
}

// tokenRecord -> isi session token di ephemeral store
type tokenRecord struct {
	SessionID    uint `json:"session_id"`
	TableID      uint `json:"table_id"`
	RestaurantID uint `json:"restaurant_id"`
}

func tokenKey(token string) string {
	return fmt.Sprintf("session_token:%s", token)
}

type Eligibility struct {
	Table           *models.Table `json:"table"`
	RestaurantName  string        `json:"restaurant_name"`
	Open            bool          `json:"open"`
	NextOpening     *time.Time    `json:"next_opening,omitempty"`
	ActiveSessions  int64         `json:"active_sessions"`
	CanJoin         bool          `json:"can_join"`
	RequireGeofence bool          `json:"require_geofence"`
	GeofenceRadiusM float64       `json:"geofence_radius_m,omitempty"`
}

// resolveQR memetakan QR id ke meja + restoran (settings sudah dinormalkan).
func (s *SessionService) resolveQR(qrID string) (*models.Table, *models.Restaurant, error) {
	table, err := s.repos.Tables().FindByQR(qrID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NotFoundf("table not found for this QR code")
		}
		return nil, nil, err
	}

	restaurant, err := s.repos.Restaurants().FindByID(table.RestaurantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NotFoundf("restaurant not found")
		}
		return nil, nil, err
	}
	restaurant.Settings = restaurant.Settings.Normalize(s.defaults)

	return table, restaurant, nil
}

// CheckEligibility -> status meja untuk halaman landing QR
func (s *SessionService) CheckEligibility(ctx context.Context, qrID string) (*Eligibility, error) {
	table, restaurant, err := s.resolveQR(qrID)
	if err != nil {
		return nil, err
	}

	if !restaurant.Active {
		return nil, BadRequestf("restaurant is not active")
	}
	if !table.Joinable() {
		return nil, BadRequestf("table is not open for sessions (status: %s)", table.Status)
	}

	now := time.Now()
	open := restaurant.IsOpenAt(now)

	active, err := s.repos.Sessions().CountActive(table.ID, now)
	if err != nil {
		return nil, err
	}

	elig := &Eligibility{
		Table:           table,
		RestaurantName:  restaurant.Name,
		Open:            open,
		ActiveSessions:  active,
		CanJoin:         open && active < int64(table.Capacity),
		RequireGeofence: s.cfg.GeofenceEnabled && restaurant.Settings.RequireGeofence,
		GeofenceRadiusM: restaurant.Settings.GeofenceRadiusM,
	}
	if !open {
		elig.NextOpening = restaurant.NextOpening(now)
	}
	return elig, nil
}

// LookupExistingSession -> re-scan dari device yang sama mengembalikan sesi
// yang ada, bukan membuat duplikat.
func (s *SessionService) LookupExistingSession(ctx context.Context, qrID, fingerprint string) (*models.TableSession, error) {
	table, _, err := s.resolveQR(qrID)
	if err != nil {
		return nil, err
	}

	session, err := s.repos.Sessions().FindActiveByFingerprint(table.ID, fingerprint, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("no session for this device")
		}
		return nil, err
	}
	return session, nil
}

type CreateSessionInput struct {
	QRID              string
	CustomerName      string
	CustomerPhone     string
	DeviceFingerprint string
	IP                string
	UserAgent         string
	Latitude          *float64
	Longitude         *float64
}

// CreateSession membuat sesi unverified. Kapasitas ditegakkan ulang di dalam
// transaksi dengan row lock pada meja, jadi dua request bersamaan tidak bisa
// melewati batas bersama-sama.
func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*models.TableSession, error) {
	table, restaurant, err := s.resolveQR(in.QRID)
	if err != nil {
		return nil, err
	}

	if !restaurant.Active {
		return nil, BadRequestf("restaurant is not active")
	}
	if !table.Joinable() {
		return nil, BadRequestf("table is not open for sessions (status: %s)", table.Status)
	}

	now := time.Now()
	if !restaurant.IsOpenAt(now) {
		if next := restaurant.NextOpening(now); next != nil {
			return nil, BadRequestf("restaurant is closed, next opening at %s", next.Format("Mon 15:04"))
		}
		return nil, BadRequestf("restaurant is closed")
	}

	phone := utils.NormalizePhone(in.CustomerPhone)
	if len(phone) < 8 {
		return nil, BadRequestf("invalid phone number")
	}
	if in.DeviceFingerprint == "" {
		return nil, BadRequestf("device fingerprint is required")
	}

	if err := s.checkGeofence(restaurant, in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	var session *models.TableSession
	err = s.repos.Transaction(func(tx repository.Repos) error {
		locked, err := tx.Tables().FindByIDForUpdate(table.RestaurantID, table.ID)
		if err != nil {
			return err
		}
		if !locked.Joinable() {
			return BadRequestf("table is not open for sessions (status: %s)", locked.Status)
		}

		// Idempoten per fingerprint: re-scan mengembalikan sesi yang ada
		existing, err := tx.Sessions().FindActiveByFingerprint(locked.ID, in.DeviceFingerprint, now)
		if err == nil {
			session = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		active, err := tx.Sessions().CountActive(locked.ID, now)
		if err != nil {
			return err
		}
		if active >= int64(locked.Capacity) {
			return BadRequestf("table %d is at capacity (%d of %d sessions in use)",
				locked.Number, active, locked.Capacity)
		}

		session = &models.TableSession{
			RestaurantID:      locked.RestaurantID,
			TableID:           locked.ID,
			CustomerName:      in.CustomerName,
			CustomerPhone:     phone,
			DeviceFingerprint: in.DeviceFingerprint,
			IP:                in.IP,
			UserAgent:         in.UserAgent,
			Active:            true,
			ExpiresAt:         now.Add(s.cfg.SessionWindow),
		}
		if err := tx.Sessions().Create(session); err != nil {
			return err
		}

		// Sesi pertama menempati meja
		if active == 0 && locked.Status == models.TableActive {
			locked.Status = models.TableOccupied
			if err := tx.Tables().Save(locked); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("session %d created on table %d (fingerprint %s)",
		session.ID, table.ID, in.DeviceFingerprint)
	return session, nil
}

// checkGeofence menolak koordinat di luar radius; tanpa koordinat dianggap
// lolos (browser boleh menolak izin lokasi) dan hanya dicatat sebagai warning.
func (s *SessionService) checkGeofence(restaurant *models.Restaurant, lat, lng *float64) error {
	if !s.cfg.GeofenceEnabled || !restaurant.Settings.RequireGeofence {
		return nil
	}
	if restaurant.Latitude == nil || restaurant.Longitude == nil {
		return nil
	}
	if lat == nil || lng == nil {
		utils.InfoLogger.Printf("geofence: no client coordinates for restaurant %d, skipping check", restaurant.ID)
		return nil
	}

	distance := utils.HaversineDistance(*restaurant.Latitude, *restaurant.Longitude, *lat, *lng)
	radius := restaurant.Settings.GeofenceRadiusM
	if distance > radius {
		return BadRequestf("you appear to be %.0f meters from the restaurant, maximum allowed is %.0f meters",
			distance, radius)
	}
	return nil
}

// RequestCode -> delegasi ke Verification Service setelah resolve QR
func (s *SessionService) RequestCode(ctx context.Context, qrID, phone string) (int, error) {
	table, restaurant, err := s.resolveQR(qrID)
	if err != nil {
		return 0, err
	}
	if !restaurant.Active || !table.Joinable() {
		return 0, BadRequestf("table is not open for sessions")
	}
	return s.verification.SendCode(ctx, table.RestaurantID, table.ID, phone)
}

// VerifyAndActivate -> cek kode, tandai sesi verified, terbitkan session token.
// Token (bukan id sesi mentah) adalah capability yang dibawa customer.
func (s *SessionService) VerifyAndActivate(ctx context.Context, qrID, phone, code, fingerprint string) (*models.TableSession, string, error) {
	table, _, err := s.resolveQR(qrID)
	if err != nil {
		return nil, "", err
	}

	if err := s.verification.CheckCode(ctx, table.RestaurantID, table.ID, phone, code); err != nil {
		return nil, "", err
	}

	now := time.Now()
	normalized := utils.NormalizePhone(phone)
	session, err := s.repos.Sessions().FindPendingVerification(table.ID, normalized, fingerprint, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", NotFoundf("no pending session for this phone and device")
		}
		return nil, "", err
	}

	session.Verified = true
	session.VerifiedAt = &now
	if err := s.repos.Sessions().Save(session); err != nil {
		return nil, "", err
	}

	token := uuid.NewString()
	rec := tokenRecord{
		SessionID:    session.ID,
		TableID:      session.TableID,
		RestaurantID: session.RestaurantID,
	}
	ttl := time.Until(session.ExpiresAt)
	if err := s.store.Set(ctx, tokenKey(token), rec, ttl); err != nil {
		return nil, "", err
	}

	utils.InfoLogger.Printf("session %d verified on table %d", session.ID, session.TableID)
	return session, token, nil
}

// ValidateToken me-resolve token ke sesi dan mengecek ulang liveness di store
// of record. Token basi dievict dan akses ditolak (fail closed).
func (s *SessionService) ValidateToken(ctx context.Context, token string) (*models.TableSession, error) {
	var rec tokenRecord
	found, err := s.store.Get(ctx, tokenKey(token), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, Forbiddenf("session token expired or invalid")
	}

	session, err := s.repos.Sessions().FindByID(rec.RestaurantID, rec.SessionID)
	if err != nil {
		// Evict hanya saat sesi benar-benar hilang; error infrastruktur
		// diteruskan apa adanya tanpa membakar token.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.store.Delete(ctx, tokenKey(token))
			return nil, Forbiddenf("session is no longer active")
		}
		return nil, err
	}
	if !session.Usable(time.Now()) {
		_ = s.store.Delete(ctx, tokenKey(token))
		return nil, Forbiddenf("session is no longer active")
	}
	return session, nil
}

// EndSession menonaktifkan sesi (idempoten); sesi aktif terakhir mengembalikan
// meja occupied -> active.
func (s *SessionService) EndSession(ctx context.Context, restaurantID, sessionID uint) error {
	session, err := s.repos.Sessions().FindByID(restaurantID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundf("session not found")
		}
		return err
	}
	if !session.Active {
		return nil
	}

	err = s.repos.Transaction(func(tx repository.Repos) error {
		table, err := tx.Tables().FindByIDForUpdate(restaurantID, session.TableID)
		if err != nil {
			return err
		}

		session.Active = false
		if err := tx.Sessions().Save(session); err != nil {
			return err
		}

		remaining, err := tx.Sessions().CountActive(table.ID, time.Now())
		if err != nil {
			return err
		}
		if remaining == 0 && table.Status == models.TableOccupied {
			table.Status = models.TableActive
			return tx.Tables().Save(table)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(ctx, restaurantID,
		[]string{fanout.SessionRoom(session.ID)},
		fanout.EventSessionClosed,
		map[string]interface{}{
			"session_id": session.ID,
			"message":    "session ended",
		})
	return nil
}
