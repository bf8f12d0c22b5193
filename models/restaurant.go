package models

import (
	"strings"
	"time"
)

type Restaurant struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	Name      string             `gorm:"type:varchar(100);not null" json:"name"`
	Active    bool               `gorm:"not null;default:true" json:"active"`
	Latitude  *float64           `json:"latitude,omitempty"`
	Longitude *float64           `json:"longitude,omitempty"`
	Settings  RestaurantSettings `gorm:"serializer:json" json:"settings"`
	CreatedAt time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time          `gorm:"not null" json:"updated_at"`
}

// DaySchedule -> jam buka/tutup satu hari ("HH:MM", 24 jam)
type DaySchedule struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

type RestaurantSettings struct {
	Timezone        string                 `json:"timezone"`
	Hours           map[string]DaySchedule `json:"hours"`
	RequireGeofence bool                   `json:"require_geofence"`
	GeofenceRadiusM float64                `json:"geofence_radius_m"`
}

var weekdayKeys = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DefaultSettings -> jadwal penuh 10:00-22:00 setiap hari, geofence nonaktif
func DefaultSettings(defaultRadiusM float64) RestaurantSettings {
	hours := make(map[string]DaySchedule, len(weekdayKeys))
	for _, day := range weekdayKeys {
		hours[day] = DaySchedule{Open: "10:00", Close: "22:00"}
	}
	return RestaurantSettings{
		Timezone:        "UTC",
		Hours:           hours,
		GeofenceRadiusM: defaultRadiusM,
	}
}

// Normalize mengisi field yang hilang dari settings tersimpan dengan default,
// supaya dokumen lama yang belum lengkap tetap aman dibaca.
func (s RestaurantSettings) Normalize(defaults RestaurantSettings) RestaurantSettings {
	if s.Timezone == "" {
		s.Timezone = defaults.Timezone
	}
	if s.GeofenceRadiusM <= 0 {
		s.GeofenceRadiusM = defaults.GeofenceRadiusM
	}
	if s.Hours == nil {
		s.Hours = make(map[string]DaySchedule, len(weekdayKeys))
	}
	for _, day := range weekdayKeys {
		if _, ok := s.Hours[day]; !ok {
			s.Hours[day] = defaults.Hours[day]
		}
	}
	return s
}

// IsOpenAt memeriksa apakah restoran buka pada waktu tertentu.
// Jadwal dengan close < open dianggap melewati tengah malam
// (mis. open 18:00 close 02:00 berarti buka sampai 02:00 hari berikutnya).
func (r *Restaurant) IsOpenAt(t time.Time) bool {
	loc, err := time.LoadLocation(r.Settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	day := strings.ToLower(local.Weekday().String())
	sched, ok := r.Settings.Hours[day]
	if ok && !sched.Closed && withinSchedule(local, sched) {
		return true
	}

	// Cek sisa jendela overnight dari hari sebelumnya
	prev := local.AddDate(0, 0, -1)
	prevDay := strings.ToLower(prev.Weekday().String())
	prevSched, ok := r.Settings.Hours[prevDay]
	if !ok || prevSched.Closed {
		return false
	}
	open := parseClock(prevSched.Open)
	close := parseClock(prevSched.Close)
	if close >= open {
		return false
	}
	return minutesOfDay(local) < close
}

// NextOpening mengembalikan waktu buka berikutnya setelah t (untuk pesan error),
// atau nil jika tidak ada jadwal buka sama sekali.
func (r *Restaurant) NextOpening(t time.Time) *time.Time {
	loc, err := time.LoadLocation(r.Settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	for i := 0; i < 8; i++ {
		day := local.AddDate(0, 0, i)
		sched, ok := r.Settings.Hours[strings.ToLower(day.Weekday().String())]
		if !ok || sched.Closed {
			continue
		}
		open := parseClock(sched.Open)
		candidate := time.Date(day.Year(), day.Month(), day.Day(), open/60, open%60, 0, 0, loc)
		if candidate.After(local) {
			return &candidate
		}
	}
	return nil
}

func withinSchedule(t time.Time, sched DaySchedule) bool {
	open := parseClock(sched.Open)
	close := parseClock(sched.Close)
	now := minutesOfDay(t)

	if close >= open {
		return now >= open && now < close
	}
	// Jendela overnight: bagian sebelum tengah malam
	return now >= open
}

func parseClock(v string) int {
	var h, m int
	if len(v) >= 5 {
		h = int(v[0]-'0')*10 + int(v[1]-'0')
		m = int(v[3]-'0')*10 + int(v[4]-'0')
	}
	return h*60 + m
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
