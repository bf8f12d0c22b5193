// Package repository mengekspresikan akses persistensi sebagai interface
// sempit per entitas, supaya logika state machine di services bisa diuji
// tanpa database produksi (test memakai sqlite in-memory).
package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/qrdine/models"
)

type RestaurantRepo interface {
	FindByID(id uint) (*models.Restaurant, error)
	// FindByIDForUpdate mengunci baris restoran selama transaksi berjalan;
	// dipakai untuk menserialkan alokasi nomor order per restoran.
	FindByIDForUpdate(id uint) (*models.Restaurant, error)
	Create(r *models.Restaurant) error
	Save(r *models.Restaurant) error
}

type TableRepo interface {
	FindByQR(qrID string) (*models.Table, error)
	FindByID(restaurantID, id uint) (*models.Table, error)
	// FindByIDForUpdate mengunci baris meja selama transaksi berjalan;
	// dipakai untuk check-then-act (kapasitas sesi, release).
	FindByIDForUpdate(restaurantID, id uint) (*models.Table, error)
	Create(t *models.Table) error
	Save(t *models.Table) error
	Delete(t *models.Table) error
	List(restaurantID uint) ([]models.Table, error)
	NextNumber(restaurantID uint) (int, error)
	EverUsed(tableID uint) (bool, error)
}

type SessionRepo interface {
	FindByID(restaurantID, id uint) (*models.TableSession, error)
	FindActiveByFingerprint(tableID uint, fingerprint string, now time.Time) (*models.TableSession, error)
	FindPendingVerification(tableID uint, phone, fingerprint string, now time.Time) (*models.TableSession, error)
	CountActive(tableID uint, now time.Time) (int64, error)
	ListActiveByTable(tableID uint, now time.Time) ([]models.TableSession, error)
	Create(s *models.TableSession) error
	Save(s *models.TableSession) error
}

type OrderFilters struct {
	Status      string
	TableID     uint
	DateFrom    *time.Time
	DateTo      *time.Time
	ActiveOnly  bool
	Page, Limit int
}

type OrderRepo interface {
	FindByID(restaurantID, id uint) (*models.Order, error)
	Create(o *models.Order) error
	Save(o *models.Order) error
	// UpdateStatusGuarded menulis status baru hanya jika status tersimpan masih
	// `from` (optimistic guard); mengembalikan jumlah baris yang berubah.
	UpdateStatusGuarded(orderID uint, from string, updates map[string]interface{}) (int64, error)
	NextOrderNumber(restaurantID uint, day time.Time) (int, error)
	KitchenQueue(restaurantID uint) ([]models.Order, error)
	ListBySessions(tableID uint, sessionIDs []uint) ([]models.Order, error)
	List(restaurantID uint, f OrderFilters) ([]models.Order, int64, error)
	BlockingOrderNumbers(tableID uint) ([]int, error)
	ListByTableStatus(tableID uint, statuses []string) ([]models.Order, error)
	FindItem(orderID, itemID uint) (*models.OrderItem, error)
	SaveItem(i *models.OrderItem) error
	ListItems(orderID uint) ([]models.OrderItem, error)
	UpdateItemsStatus(orderID uint, except []string, status string) error
	AppendLog(l *models.OrderLog) error
	PaidStats(restaurantID uint, from, to time.Time) (int64, float64, error)
	CountCreatedSince(restaurantID uint, since time.Time) (int64, error)
}

type VerificationRepo interface {
	Create(v *models.VerificationCode) error
	MarkUsed(restaurantID, tableID uint, phone, code string, usedAt time.Time) error
}

type MenuRepo interface {
	FindByIDs(restaurantID uint, ids []uint) ([]models.MenuItem, error)
	Create(m *models.MenuItem) error
	List(restaurantID uint) ([]models.MenuItem, error)
}

type UserRepo interface {
	FindByEmail(email string) (*models.User, error)
	Create(u *models.User) error
}

// Repos -> akses ke seluruh repo plus batas transaksi
type Repos interface {
	Restaurants() RestaurantRepo
	Tables() TableRepo
	Sessions() SessionRepo
	Orders() OrderRepo
	Verifications() VerificationRepo
	Menu() MenuRepo
	Users() UserRepo
	// Transaction menjalankan fn dengan seluruh repo terikat ke satu transaksi;
	// error dari fn me-rollback semuanya.
	Transaction(fn func(Repos) error) error
}

// Store -> implementasi gorm untuk Repos
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ Repos = (*Store)(nil)

func (s *Store) Restaurants() RestaurantRepo   { return &restaurantRepo{db: s.db} }
func (s *Store) Tables() TableRepo             { return &tableRepo{db: s.db} }
func (s *Store) Sessions() SessionRepo         { return &sessionRepo{db: s.db} }
func (s *Store) Orders() OrderRepo             { return &orderRepo{db: s.db} }
func (s *Store) Verifications() VerificationRepo { return &verificationRepo{db: s.db} }
func (s *Store) Menu() MenuRepo                { return &menuRepo{db: s.db} }
func (s *Store) Users() UserRepo               { return &userRepo{db: s.db} }

func (s *Store) Transaction(fn func(Repos) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// lockForUpdate menambahkan SELECT ... FOR UPDATE pada dialek yang
// mendukungnya; sqlite (test) mengunci di level database jadi clause dilewati.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// AutoMigrate menjalankan migrasi skema seluruh model inti.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Restaurant{},
		&models.Table{},
		&models.TableSession{},
		&models.VerificationCode{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderLog{},
		&models.User{},
	)
}
