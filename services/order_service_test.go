package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/repository"
)

func (f *fixture) seedOrder(t *testing.T, session *models.TableSession, status string, itemCount int) *models.Order {
	t.Helper()
	menu := f.seedMenuItem(t, fmt.Sprintf("Menu %s %d", status, itemCount), 25000, nil)

	items := make([]OrderItemInput, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		items = append(items, OrderItemInput{MenuItemID: menu.ID, Quantity: 1})
	}
	order, err := f.orders.CreateOrder(context.Background(), session, CreateOrderInput{Items: items})
	require.NoError(t, err)

	if status != models.OrderPending {
		now := time.Now()
		rows, err := f.repos.Orders().UpdateStatusGuarded(order.ID, models.OrderPending, statusUpdates(status, now))
		require.NoError(t, err)
		require.EqualValues(t, 1, rows)
		order, err = f.repos.Orders().FindByID(f.restaurant.ID, order.ID)
		require.NoError(t, err)
	}
	return order
}

func TestCreateOrderPricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")

	nasi := f.seedMenuItem(t, "Nasi Goreng", 30000, []models.MenuExtra{
		{Name: "Telur", Price: 5000},
		{Name: "Kerupuk", Price: 2000},
	})
	teh := f.seedMenuItem(t, "Es Teh", 8000, nil)

	order, err := f.orders.CreateOrder(ctx, session, CreateOrderInput{
		Items: []OrderItemInput{
			{MenuItemID: nasi.ID, Quantity: 2, Extras: []string{"Telur"}},
			{MenuItemID: teh.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	// (30000 + 5000) x 2 + 8000
	assert.Equal(t, float64(78000), order.Subtotal)
	assert.Equal(t, float64(78000), order.Total)
	assert.Equal(t, 1, order.OrderNumber)
	assert.Equal(t, models.OrderPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Nasi Goreng", order.Items[0].Name)
	assert.Equal(t, float64(70000), order.Items[0].Price)

	created := f.pub.byEvent("order:created")
	require.Len(t, created, 1)
	assert.Contains(t, created[0].Rooms, fmt.Sprintf("kitchen:%d", f.restaurant.ID))
	assert.Contains(t, created[0].Rooms, fmt.Sprintf("session:%d", session.ID))

	// Log CREATED tercatat
	var logs int64
	require.NoError(t, f.db.Model(&models.OrderLog{}).
		Where("order_id = ? AND action = ?", order.ID, models.LogOrderCreated).
		Count(&logs).Error)
	assert.EqualValues(t, 1, logs)
}

func TestCreateOrderRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	menu := f.seedMenuItem(t, "Sate Ayam", 35000, nil)

	// Order kosong
	_, err := f.orders.CreateOrder(ctx, session, CreateOrderInput{})
	requireKind(t, err, KindBadRequest)

	// Menu tidak ada: seluruh order ditolak (all-or-nothing)
	_, err = f.orders.CreateOrder(ctx, session, CreateOrderInput{Items: []OrderItemInput{
		{MenuItemID: menu.ID, Quantity: 1},
		{MenuItemID: 9999, Quantity: 1},
	}})
	requireKind(t, err, KindBadRequest)

	// Extra tidak dikenal
	_, err = f.orders.CreateOrder(ctx, session, CreateOrderInput{Items: []OrderItemInput{
		{MenuItemID: menu.ID, Quantity: 1, Extras: []string{"Keju"}},
	}})
	requireKind(t, err, KindBadRequest)

	// Menu tidak available
	menu.Available = false
	require.NoError(t, f.db.Save(menu).Error)
	_, err = f.orders.CreateOrder(ctx, session, CreateOrderInput{Items: []OrderItemInput{
		{MenuItemID: menu.ID, Quantity: 1},
	}})
	requireKind(t, err, KindBadRequest)

	// Sesi belum verified tidak boleh order
	unverified, err := f.sessions.CreateSession(ctx, sessionInput(f.table.QRID, "628122222222", "device-2"))
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, unverified, CreateOrderInput{Items: []OrderItemInput{
		{MenuItemID: menu.ID, Quantity: 1},
	}})
	requireKind(t, err, KindForbidden)
}

func TestTransitionLegality(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	rctx := f.adminCtx()

	illegal := []struct {
		from, to string
	}{
		{models.OrderPending, models.OrderReady},
		{models.OrderConfirmed, models.OrderReady},
		{models.OrderReady, models.OrderPreparing},
		{models.OrderReady, models.OrderConfirmed},
		{models.OrderPaid, models.OrderPreparing},
		{models.OrderPaid, models.OrderCancelled},
		{models.OrderCancelled, models.OrderPending},
		{models.OrderCancelled, models.OrderPreparing},
	}
	for _, tc := range illegal {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			order := f.seedOrder(t, session, tc.from, 1)
			_, err := f.orders.TransitionStatus(ctx, rctx, order.ID, tc.to, "")
			requireKind(t, err, KindBadRequest)

			// Gagal tanpa mutasi
			reloaded, err := f.repos.Orders().FindByID(f.restaurant.ID, order.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.from, reloaded.Status)
		})
	}

	// pending -> preparing legal (accept & start dalam satu aksi)
	order := f.seedOrder(t, session, models.OrderPending, 1)
	updated, err := f.orders.TransitionStatus(ctx, rctx, order.ID, models.OrderPreparing, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, updated.Status)
	assert.NotNil(t, updated.PreparingAt)
}

func TestTransitionToPaidRejected(t *testing.T) {
	f := newFixture(t)
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	order := f.seedOrder(t, session, models.OrderReady, 1)

	_, err := f.orders.TransitionStatus(context.Background(), f.adminCtx(), order.ID, models.OrderPaid, "")
	se := requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, "table checkout")
}

func TestItemAggregationPromotesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	rctx := f.adminCtx()

	order := f.seedOrder(t, session, models.OrderPreparing, 2)
	require.Len(t, order.Items, 2)

	updated, err := f.orders.UpdateItemStatus(ctx, rctx, order.ID, order.Items[0].ID, models.ItemReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, updated.Status)

	updated, err = f.orders.UpdateItemStatus(ctx, rctx, order.ID, order.Items[1].ID, models.ItemReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, updated.Status)
	assert.NotNil(t, updated.ReadyAt)

	// Promosi otomatis ikut disiarkan sebagai order:updated
	assert.NotEmpty(t, f.pub.byEvent("order:updated"))
}

func TestItemAggregationIgnoresCancelledItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	rctx := f.adminCtx()

	order := f.seedOrder(t, session, models.OrderPreparing, 2)

	_, err := f.orders.UpdateItemStatus(ctx, rctx, order.ID, order.Items[0].ID, models.ItemCancelled)
	require.NoError(t, err)

	// Item cancelled tidak menahan agregasi
	updated, err := f.orders.UpdateItemStatus(ctx, rctx, order.ID, order.Items[1].ID, models.ItemReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, updated.Status)
}

func TestReadyForceSyncsLaggingItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")

	order := f.seedOrder(t, session, models.OrderPreparing, 2)

	updated, err := f.orders.TransitionStatus(ctx, f.adminCtx(), order.ID, models.OrderReady, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, updated.Status)
	for _, item := range updated.Items {
		assert.Equal(t, models.ItemReady, item.Status)
	}
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	rctx := f.adminCtx()

	order := f.seedOrder(t, session, models.OrderPreparing, 2)
	updated, err := f.orders.CancelOrder(ctx, rctx, order.ID, "customer left")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, updated.Status)
	assert.NotNil(t, updated.CancelledAt)
	for _, item := range updated.Items {
		assert.Equal(t, models.ItemCancelled, item.Status)
	}

	// Terminal states beku
	_, err = f.orders.CancelOrder(ctx, rctx, order.ID, "again")
	requireKind(t, err, KindBadRequest)

	paid := f.seedOrder(t, session, models.OrderPaid, 1)
	_, err = f.orders.CancelOrder(ctx, rctx, paid.ID, "")
	requireKind(t, err, KindBadRequest)
}

func TestTableOrdersExcludesClosedSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	previous := f.seedVerifiedSession(t, "device-old", "628111111111")
	f.seedOrder(t, previous, models.OrderReady, 1)
	require.NoError(t, f.sessions.EndSession(ctx, f.restaurant.ID, previous.ID))

	// Rombongan berikutnya di meja yang sama
	current := f.seedVerifiedSession(t, "device-new", "628122222222")
	mine := f.seedOrder(t, current, models.OrderPending, 1)

	visible, err := f.orders.TableOrders(ctx, current)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)
	assert.True(t, visible[0].Mine)

	// Detail order sesi lama tetap bisa dibaca selama satu meja
	_, err = f.orders.CustomerOrder(ctx, current, mine.ID)
	require.NoError(t, err)
}

func TestCustomerOrderScopedToTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	order := f.seedOrder(t, session, models.OrderPending, 1)

	other := &models.Table{
		RestaurantID: f.restaurant.ID,
		Number:       2,
		Capacity:     2,
		Status:       models.TableActive,
		QRID:         "qr-meja-2",
	}
	require.NoError(t, f.repos.Tables().Create(other))
	stranger := &models.TableSession{
		RestaurantID:      f.restaurant.ID,
		TableID:           other.ID,
		CustomerPhone:     "628133333333",
		DeviceFingerprint: "device-x",
		Verified:          true,
		Active:            true,
		ExpiresAt:         time.Now().Add(time.Hour),
	}
	require.NoError(t, f.repos.Sessions().Create(stranger))

	_, err := f.orders.CustomerOrder(ctx, stranger, order.ID)
	requireKind(t, err, KindNotFound)
}

func TestOrderNumberingPerDay(t *testing.T) {
	f := newFixture(t)
	session := f.seedVerifiedSession(t, "device-1", "628111111111")

	first := f.seedOrder(t, session, models.OrderPending, 1)
	second := f.seedOrder(t, session, models.OrderPending, 1)
	assert.Equal(t, 1, first.OrderNumber)
	assert.Equal(t, 2, second.OrderNumber)

	// Hari kalender lain mulai lagi dari 1
	tomorrow, err := f.repos.Orders().NextOrderNumber(f.restaurant.ID, time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, tomorrow)
}

func TestOrderNumberingUniqueUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	menu := f.seedMenuItem(t, "Es Teh", 5000, nil)

	// Satu koneksi saja: sqlite tidak punya FOR UPDATE, jadi serialisasi
	// alokasi nomor ditegakkan lewat pool
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const n = 8
	var (
		mu      sync.Mutex
		numbers = make(map[int]bool, n)
		wg      sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.orders.CreateOrder(ctx, session, CreateOrderInput{
				Items: []OrderItemInput{{MenuItemID: menu.ID, Quantity: 1}},
			})
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			numbers[order.OrderNumber] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Tidak ada nomor kembar: tepat 1..n
	require.Len(t, numbers, n)
	for i := 1; i <= n; i++ {
		assert.True(t, numbers[i], "missing order number %d", i)
	}
}

func TestStaffListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := f.adminCtx()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")

	f.seedOrder(t, session, models.OrderPending, 1)
	paidOrder := f.seedOrder(t, session, models.OrderPaid, 1)

	orders, total, err := f.orders.ListOrders(ctx, rctx, repository.OrderFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)

	orders, total, err = f.orders.ListOrders(ctx, rctx, repository.OrderFilters{Status: models.OrderPaid})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, paidOrder.ID, orders[0].ID)

	stats, err := f.orders.Stats(ctx, rctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.PaidOrders)
	assert.Equal(t, paidOrder.Total, stats.PaidRevenue)
	assert.EqualValues(t, 2, stats.CreatedToday)
}

func TestStaffCapabilities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	order := f.seedOrder(t, session, models.OrderPreparing, 1)

	// Chef tidak boleh membatalkan order
	chef := StaffContext(7, f.restaurant.ID, models.RoleChef)
	_, err := f.orders.CancelOrder(ctx, chef, order.ID, "")
	requireKind(t, err, KindForbidden)

	// Cleaner tidak punya akses dapur sama sekali
	cleaner := StaffContext(8, f.restaurant.ID, models.RoleCleaner)
	_, err = f.orders.KitchenQueue(ctx, cleaner)
	requireKind(t, err, KindForbidden)
	_, err = f.orders.TransitionStatus(ctx, cleaner, order.ID, models.OrderReady, "")
	requireKind(t, err, KindForbidden)

	// Chef boleh memajukan status dan melihat antrian
	queue, err := f.orders.KitchenQueue(ctx, chef)
	require.NoError(t, err)
	assert.NotEmpty(t, queue)
}
