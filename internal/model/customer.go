package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a billing counterparty. Customers are globally readable
// by any authenticated actor; mutation still goes through the
// permission table and the fine-grained gate.
type Customer struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name    string    `gorm:"type:varchar(255);not null" json:"name"`
	Email   string    `gorm:"type:varchar(255);not null" json:"email"`
	Phone   string    `gorm:"type:varchar(20)" json:"phone"`
	Mobile  string    `gorm:"type:varchar(20);not null" json:"mobile"`
	Address string    `gorm:"type:text" json:"address"`
	Audit
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
