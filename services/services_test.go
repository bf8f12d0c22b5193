package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/qrdine/config"
	"github.com/yeremiapane/qrdine/ephemeral"
	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/utils"
)

var dbSeq int64

// setupTestDB -> SQLite in-memory dengan nama unik supaya antar test tidak
// berbagi skema maupun data.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	return db
}

type publishedEvent struct {
	RestaurantID uint
	Rooms        []string
	Event        string
	Data         interface{}
}

// recordingPublisher merekam semua publish untuk diperiksa test
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, restaurantID uint, rooms []string, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{
		RestaurantID: restaurantID,
		Rooms:        rooms,
		Event:        event,
		Data:         data,
	})
}

func (p *recordingPublisher) byEvent(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// recordingSender merekam kode verifikasi terakhir per nomor telepon
type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
}

func (s *recordingSender) SendCode(_ context.Context, phone, code string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[phone] = code
	s.sent++
	return nil
}

func (s *recordingSender) lastCode(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[utils.NormalizePhone(phone)]
}

func alwaysOpenSettings() models.RestaurantSettings {
	settings := models.DefaultSettings(200)
	for day := range settings.Hours {
		settings.Hours[day] = models.DaySchedule{Open: "00:00", Close: "23:59"}
	}
	return settings
}

type fixture struct {
	db           *gorm.DB
	repos        repository.Repos
	store        ephemeral.Store
	pub          *recordingPublisher
	sender       *recordingSender
	cfg          config.Config
	verification *VerificationService
	sessions     *SessionService
	orders       *OrderService
	tables       *TableService

	restaurant *models.Restaurant
	table      *models.Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	utils.InitLogger()

	db := setupTestDB(t)
	repos := repository.NewStore(db)
	store := ephemeral.NewMemoryStore()
	pub := &recordingPublisher{}
	sender := &recordingSender{}

	cfg := config.Config{
		PublicBaseURL:          "http://localhost:8080",
		VerifyCodeTTL:          5 * time.Minute,
		VerifyMaxAttempts:      3,
		VerifyCooldown:         time.Minute,
		SessionWindow:          4 * time.Hour,
		GeofenceEnabled:        true,
		DefaultGeofenceRadiusM: 200,
	}

	restaurant := &models.Restaurant{
		Name:     "Warung Nusantara",
		Active:   true,
		Settings: alwaysOpenSettings(),
	}
	require.NoError(t, repos.Restaurants().Create(restaurant))

	table := &models.Table{
		RestaurantID: restaurant.ID,
		Number:       1,
		Capacity:     2,
		Status:       models.TableActive,
		QRID:         "qr-meja-1",
		QRURL:        "http://localhost:8080/qr/qr-meja-1",
	}
	require.NoError(t, repos.Tables().Create(table))

	verification := NewVerificationService(repos, store, sender, cfg)
	sessions := NewSessionService(repos, store, verification, pub, cfg)
	orders := NewOrderService(repos, pub)
	tables := NewTableService(repos, pub, cfg.PublicBaseURL)

	return &fixture{
		db:           db,
		repos:        repos,
		store:        store,
		pub:          pub,
		sender:       sender,
		cfg:          cfg,
		verification: verification,
		sessions:     sessions,
		orders:       orders,
		tables:       tables,
		restaurant:   restaurant,
		table:        table,
	}
}

// seedVerifiedSession -> jalan pintas test: sesi langsung verified tanpa
// lewat alur kode OTP.
func (f *fixture) seedVerifiedSession(t *testing.T, fingerprint, phone string) *models.TableSession {
	t.Helper()
	session, err := f.sessions.CreateSession(context.Background(), CreateSessionInput{
		QRID:              f.table.QRID,
		CustomerName:      "Tester",
		CustomerPhone:     phone,
		DeviceFingerprint: fingerprint,
	})
	require.NoError(t, err)

	now := time.Now()
	session.Verified = true
	session.VerifiedAt = &now
	require.NoError(t, f.repos.Sessions().Save(session))
	return session
}

func (f *fixture) seedMenuItem(t *testing.T, name string, price float64, extras []models.MenuExtra) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		RestaurantID: f.restaurant.ID,
		Name:         name,
		Price:        price,
		Available:    true,
		Extras:       extras,
	}
	require.NoError(t, f.repos.Menu().Create(item))
	return item
}

func (f *fixture) reloadTable(t *testing.T) *models.Table {
	t.Helper()
	table, err := f.repos.Tables().FindByID(f.restaurant.ID, f.table.ID)
	require.NoError(t, err)
	return table
}

func (f *fixture) adminCtx() RequestContext {
	return StaffContext(1, f.restaurant.ID, models.RoleAdmin)
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind)
	return se
}
