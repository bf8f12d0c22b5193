package models

import "time"

// MenuExtra -> add-on opsional dengan harga sendiri
type MenuExtra struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type MenuItem struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RestaurantID uint        `gorm:"not null;index" json:"restaurant_id"`
	Name         string      `gorm:"type:varchar(100);not null" json:"name"`
	Price        float64     `gorm:"type:decimal(10,2);not null" json:"price"`
	Available    bool        `gorm:"not null;default:true" json:"available"`
	Extras       []MenuExtra `gorm:"serializer:json" json:"extras,omitempty"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}

// ExtraByName mencari add-on yang tersedia untuk item ini.
func (m *MenuItem) ExtraByName(name string) (MenuExtra, bool) {
	for _, e := range m.Extras {
		if e.Name == name {
			return e, true
		}
	}
	return MenuExtra{}, false
}
