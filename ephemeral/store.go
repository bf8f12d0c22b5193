// Package ephemeral menyimpan state ber-TTL dengan churn tinggi: kode
// verifikasi yang sedang berjalan, marker cooldown, dan session token.
// Nilai di-encode sebagai JSON supaya backend bisa ditukar (Redis di produksi,
// in-memory untuk development dan test).
package ephemeral

import (
	"context"
	"time"
)

type Store interface {
	// Set menulis nilai dengan TTL, menimpa record lama.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Get membaca nilai ke dest; (false, nil) jika key tidak ada / kadaluarsa.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// SetNX menulis hanya jika key belum ada; mengembalikan true jika tertulis.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, key string) error
}
