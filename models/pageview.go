package models

import (
	"time"

	"gorm.io/gorm"
)

// PageView stores aggregated page view counts per day and path.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_pv_date_path,unique;type:date;not null" json:"date"`
	Path      string    `gorm:"index:idx_pv_date_path,unique;size:255;not null" json:"path"`
	Views     int64     `gorm:"not null;default:0" json:"views"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Midnight truncates t to the start of its local day, the granularity of PageView.Date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ViewsOn sums the recorded page views for the day containing t.
func ViewsOn(db *gorm.DB, t time.Time) (int64, error) {
	var total int64
	err := db.Model(&PageView{}).Where("date = ?", Midnight(t)).
		Select("COALESCE(SUM(views), 0)").Scan(&total).Error
	return total, err
}
