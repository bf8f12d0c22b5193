package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/yeremiapane/qrdine/config"
	"github.com/yeremiapane/qrdine/ephemeral"
	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/utils"
)

// VerificationService menerbitkan dan memeriksa kode one-time yang terikat
// pada (phone, table). Baris database hanya untuk audit; pengecekan otoritatif
// terjadi pada record ephemeral ber-TTL.
type VerificationService struct {
	repos  repository.Repos
	store  ephemeral.Store
	sender CodeSender

	codeTTL     time.Duration
	maxAttempts int
	cooldown    time.Duration
}

func NewVerificationService(repos repository.Repos, store ephemeral.Store, sender CodeSender, cfg config.Config) *VerificationService {
	return &VerificationService{
		repos:       repos,
		store:       store,
		sender:      sender,
		codeTTL:     cfg.VerifyCodeTTL,
		maxAttempts: cfg.VerifyMaxAttempts,
		cooldown:    cfg.VerifyCooldown,
	}
}

// codeRecord -> entitas hot-path di ephemeral store. ExpiresAt ikut disimpan
// supaya rewrite (increment attempts) tidak pernah memperpanjang umur kode.
type codeRecord struct {
	Code      string    `json:"code"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

func verifyKey(restaurantID, tableID uint, phone string) string {
	return fmt.Sprintf("verify:%d:%d:%s", restaurantID, tableID, phone)
}

func cooldownKey(phone string) string {
	return fmt.Sprintf("cooldown:%s", phone)
}

// SendCode -> terbitkan kode 6 digit untuk (phone, table); tolak saat cooldown.
// Mengembalikan umur kode dalam detik.
func (s *VerificationService) SendCode(ctx context.Context, restaurantID, tableID uint, phone string) (int, error) {
	phone = utils.NormalizePhone(phone)
	if len(phone) < 8 {
		return 0, BadRequestf("invalid phone number")
	}

	fresh, err := s.store.SetNX(ctx, cooldownKey(phone), 1, s.cooldown)
	if err != nil {
		return 0, err
	}
	if !fresh {
		return 0, TooManyf("a code was recently sent to this phone, wait up to %d seconds before requesting another",
			int(s.cooldown.Seconds()))
	}

	code, err := randomCode()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	audit := &models.VerificationCode{
		RestaurantID: restaurantID,
		TableID:      tableID,
		Phone:        phone,
		Code:         code,
		ExpiresAt:    now.Add(s.codeTTL),
		CreatedAt:    now,
	}
	if err := s.repos.Verifications().Create(audit); err != nil {
		return 0, err
	}

	rec := codeRecord{Code: code, Attempts: 0, ExpiresAt: audit.ExpiresAt}
	if err := s.store.Set(ctx, verifyKey(restaurantID, tableID, phone), rec, s.codeTTL); err != nil {
		return 0, err
	}

	if err := s.sender.SendCode(ctx, phone, code, s.codeTTL); err != nil {
		utils.ErrorLogger.Printf("verification: dispatch code to %s: %v", phone, err)
		return 0, err
	}

	return int(s.codeTTL.Seconds()), nil
}

// CheckCode -> satu percobaan verifikasi. Kode single-use; mencapai batas
// percobaan menghapus record sehingga kode benar pun tidak bisa lolos lagi.
func (s *VerificationService) CheckCode(ctx context.Context, restaurantID, tableID uint, phone, code string) error {
	phone = utils.NormalizePhone(phone)
	key := verifyKey(restaurantID, tableID, phone)

	var rec codeRecord
	found, err := s.store.Get(ctx, key, &rec)
	if err != nil {
		return err
	}
	if !found {
		return BadRequestf("verification code expired or not found, request a new one")
	}

	if rec.Code != code {
		rec.Attempts++
		if rec.Attempts >= s.maxAttempts {
			if err := s.store.Delete(ctx, key); err != nil {
				return err
			}
			return BadRequestf("maximum verification attempts exceeded, request a new code")
		}
		// Rewrite dengan sisa TTL; kegagalan tidak boleh memperpanjang umur kode
		remaining := time.Until(rec.ExpiresAt)
		if remaining <= 0 {
			_ = s.store.Delete(ctx, key)
			return BadRequestf("verification code expired or not found, request a new one")
		}
		if err := s.store.Set(ctx, key, rec, remaining); err != nil {
			return err
		}
		return BadRequestf("invalid code, %d attempts remaining", s.maxAttempts-rec.Attempts)
	}

	if err := s.repos.Verifications().MarkUsed(restaurantID, tableID, phone, code, time.Now()); err != nil {
		return err
	}
	return s.store.Delete(ctx, key)
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
