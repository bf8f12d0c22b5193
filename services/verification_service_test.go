package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/qrdine/models"
)

func TestSendCodeCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := "+62 811 2345 678"

	expiresIn, err := f.verification.SendCode(ctx, f.restaurant.ID, f.table.ID, phone)
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)
	assert.NotEmpty(t, f.sender.lastCode(phone))

	// Permintaan kedua dalam jendela cooldown harus ditolak
	_, err = f.verification.SendCode(ctx, f.restaurant.ID, f.table.ID, phone)
	requireKind(t, err, KindTooManyRequests)
	assert.Equal(t, 1, f.sender.sent)
}

func TestSendCodeRejectsShortPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.verification.SendCode(context.Background(), f.restaurant.ID, f.table.ID, "12345")
	requireKind(t, err, KindBadRequest)
}

func TestCheckCodeHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := "628112345678"

	_, err := f.verification.SendCode(ctx, f.restaurant.ID, f.table.ID, phone)
	require.NoError(t, err)
	code := f.sender.lastCode(phone)

	require.NoError(t, f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, code))

	// Baris audit ditandai used
	var audit models.VerificationCode
	require.NoError(t, f.db.Where("phone = ? AND code = ?", phone, code).First(&audit).Error)
	assert.NotNil(t, audit.UsedAt)

	// Kode single-use: pemakaian kedua gagal
	err = f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, code)
	requireKind(t, err, KindBadRequest)
}

func TestCheckCodeAttemptBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := "628112345678"

	_, err := f.verification.SendCode(ctx, f.restaurant.ID, f.table.ID, phone)
	require.NoError(t, err)
	code := f.sender.lastCode(phone)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	err = f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, wrong)
	se := requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, "2 attempts remaining")

	err = f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, wrong)
	se = requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, "1 attempts remaining")

	err = f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, wrong)
	se = requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, "maximum verification attempts exceeded")

	// Budget habis menghapus record: kode yang benar pun tidak bisa dipakai lagi
	err = f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, code)
	se = requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, "expired or not found")
}

func TestCheckCodeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := "628112345678"

	rec := codeRecord{Code: "482913", Attempts: 0, ExpiresAt: time.Now().Add(time.Millisecond)}
	require.NoError(t, f.store.Set(ctx, verifyKey(f.restaurant.ID, f.table.ID, phone), rec, time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	err := f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, "482913")
	se := requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, "expired or not found")
}

func TestCheckCodeFailureKeepsRemainingTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := "628112345678"

	// Record yang hampir kadaluarsa: percobaan gagal tidak boleh memperpanjangnya
	rec := codeRecord{Code: "482913", Attempts: 0, ExpiresAt: time.Now().Add(20 * time.Millisecond)}
	require.NoError(t, f.store.Set(ctx, verifyKey(f.restaurant.ID, f.table.ID, phone), rec, 20*time.Millisecond))

	err := f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, "111111")
	requireKind(t, err, KindBadRequest)

	time.Sleep(40 * time.Millisecond)
	err = f.verification.CheckCode(ctx, f.restaurant.ID, f.table.ID, phone, "482913")
	se := requireKind(t, err, KindBadRequest)
	assert.Contains(t, se.Message, "expired or not found")
}
