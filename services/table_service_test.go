package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/qrdine/models"
)

func TestCreateTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := f.adminCtx()

	table, err := f.tables.CreateTable(ctx, rctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Number) // fixture sudah punya meja nomor 1
	assert.Equal(t, models.TableActive, table.Status)
	assert.NotEmpty(t, table.QRID)
	assert.Equal(t, fmt.Sprintf("http://localhost:8080/qr/%s", table.QRID), table.QRURL)

	_, err = f.tables.CreateTable(ctx, rctx, 0)
	requireKind(t, err, KindBadRequest)

	// Staff biasa tidak boleh mengelola meja
	staff := StaffContext(2, f.restaurant.ID, models.RoleStaff)
	_, err = f.tables.CreateTable(ctx, staff, 4)
	requireKind(t, err, KindForbidden)
}

func TestDeleteTableGuardedByHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := f.adminCtx()

	fresh, err := f.tables.CreateTable(ctx, rctx, 4)
	require.NoError(t, err)
	require.NoError(t, f.tables.DeleteTable(ctx, rctx, fresh.ID))

	// Meja dengan riwayat sesi tidak bisa dihapus
	f.seedVerifiedSession(t, "device-1", "628111111111")
	err = f.tables.DeleteTable(ctx, rctx, f.table.ID)
	requireKind(t, err, KindConflict)
}

func TestActivateAndCloseRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := f.adminCtx()

	_, err := f.tables.Activate(ctx, rctx, f.table.ID)
	requireKind(t, err, KindConflict) // sudah active

	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	require.Equal(t, models.TableOccupied, f.reloadTable(t).Status)

	// Occupied tidak bisa langsung diaktifkan
	_, err = f.tables.Activate(ctx, rctx, f.table.ID)
	requireKind(t, err, KindBadRequest)

	closed, err := f.tables.Close(ctx, rctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableClosed, closed.Status)

	// Semua sesi dinonaktifkan
	reloaded, err := f.repos.Sessions().FindByID(f.restaurant.ID, session.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Active)

	reopened, err := f.tables.Activate(ctx, rctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableActive, reopened.Status)
}

func TestRequestBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session := f.seedVerifiedSession(t, "device-1", "628111111111")

	table, err := f.tables.RequestBill(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.TableBillRequested, table.Status)

	// Hanya dari occupied
	_, err = f.tables.RequestBill(ctx, session)
	requireKind(t, err, KindBadRequest)
}

func TestReleaseBlockedByOutstandingOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := f.adminCtx()

	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	blocking := f.seedOrder(t, session, models.OrderPreparing, 1)

	_, err := f.tables.Release(ctx, rctx, f.table.ID)
	se := requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, fmt.Sprintf("#%d", blocking.OrderNumber))

	// Gagal tanpa mutasi: order, sesi, dan meja tidak berubah
	order, err := f.repos.Orders().FindByID(f.restaurant.ID, blocking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, order.Status)

	reloaded, err := f.repos.Sessions().FindByID(f.restaurant.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Active)
	assert.Equal(t, models.TableOccupied, f.reloadTable(t).Status)
}

func TestReleaseHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := f.adminCtx()

	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	ready := f.seedOrder(t, session, models.OrderReady, 1)
	cancelled := f.seedOrder(t, session, models.OrderCancelled, 1)

	table, err := f.tables.Release(ctx, rctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableActive, table.Status)

	// Order ready menjadi paid dengan stempel waktu
	paid, err := f.repos.Orders().FindByID(f.restaurant.ID, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	// Order cancelled dibiarkan apa adanya
	untouched, err := f.repos.Orders().FindByID(f.restaurant.ID, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, untouched.Status)

	// Semua sesi ditutup
	reloaded, err := f.repos.Sessions().FindByID(f.restaurant.ID, session.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Active)

	count, err := f.repos.Sessions().CountActive(f.table.ID, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// session:closed sampai ke room meja dan room sesi
	closed := f.pub.byEvent("session:closed")
	require.NotEmpty(t, closed)
	last := closed[len(closed)-1]
	assert.Contains(t, last.Rooms, fmt.Sprintf("table:%d", f.table.ID))
	assert.Contains(t, last.Rooms, fmt.Sprintf("session:%d", session.ID))
	assert.NotEmpty(t, f.pub.byEvent("table:updated"))
}

func TestForceReleaseCancelsOutstanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session := f.seedVerifiedSession(t, "device-1", "628111111111")
	pending := f.seedOrder(t, session, models.OrderPending, 1)
	ready := f.seedOrder(t, session, models.OrderReady, 1)

	// Staff biasa tidak boleh force release
	staff := StaffContext(2, f.restaurant.ID, models.RoleStaff)
	_, err := f.tables.ForceRelease(ctx, staff, f.table.ID)
	requireKind(t, err, KindForbidden)

	table, err := f.tables.ForceRelease(ctx, f.adminCtx(), f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableActive, table.Status)

	dropped, err := f.repos.Orders().FindByID(f.restaurant.ID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, dropped.Status)
	for _, item := range dropped.Items {
		assert.Equal(t, models.ItemCancelled, item.Status)
	}

	paid, err := f.repos.Orders().FindByID(f.restaurant.ID, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, paid.Status)
}
