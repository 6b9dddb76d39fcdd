package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ContactMessage is an inquiry submitted through the public contact form.
type ContactMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:254;not null" json:"email"`
	Subject   string    `gorm:"size:200;not null" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	IsRead    bool      `gorm:"not null;default:false;index" json:"is_read"`
	Resolved  bool      `gorm:"not null;default:false;index" json:"resolved"`
}

func (m ContactMessage) String() string {
	return m.Subject + " - " + m.Name
}

// BeforeCreate keeps new inquiries unread and unresolved.
func (m *ContactMessage) BeforeCreate(tx *gorm.DB) error {
	m.IsRead = false
	m.Resolved = false
	return nil
}

// CreateContactMessage stores a new inquiry.
func CreateContactMessage(db *gorm.DB, m *ContactMessage) error {
	return db.Create(m).Error
}

// ContactFilter narrows the staff listing. Nil fields match everything.
// Since and Until are whole days: Until includes messages received on that day.
type ContactFilter struct {
	IsRead   *bool
	Resolved *bool
	Search   string
	Since    *time.Time
	Until    *time.Time
}

// ParseDay parses a YYYY-MM-DD date in local time. An empty string yields nil.
func ParseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

// ListContactMessages returns one page of inquiries, newest first.
func ListContactMessages(db *gorm.DB, f ContactFilter, page, pageSize int) ([]ContactMessage, int64, error) {
	q := db.Model(&ContactMessage{})
	if f.IsRead != nil {
		q = q.Where("is_read = ?", *f.IsRead)
	}
	if f.Resolved != nil {
		q = q.Where("resolved = ?", *f.Resolved)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("name LIKE ? OR email LIKE ? OR subject LIKE ? OR message LIKE ?", like, like, like, like)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", Midnight(*f.Since))
	}
	if f.Until != nil {
		q = q.Where("created_at < ?", Midnight(*f.Until).AddDate(0, 0, 1))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []ContactMessage
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(pageOffset(page, pageSize)).Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// MarkContactMessagesRead sets is_read on the selected inquiries and returns how many were selected.
func MarkContactMessagesRead(db *gorm.DB, ids []uint) (int64, error) {
	return updateContactMessages(db, ids, map[string]interface{}{"is_read": true})
}

// MarkContactMessagesResolved sets resolved and is_read on the selected inquiries.
func MarkContactMessagesResolved(db *gorm.DB, ids []uint) (int64, error) {
	return updateContactMessages(db, ids, map[string]interface{}{"resolved": true, "is_read": true})
}

// updateContactMessages counts matches before updating; some drivers report only changed rows.
func updateContactMessages(db *gorm.DB, ids []uint, values map[string]interface{}) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ContactMessage{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
			return err
		}
		return tx.Model(&ContactMessage{}).Where("id IN ?", ids).Updates(values).Error
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
