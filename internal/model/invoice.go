package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice status enum constants
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusRefused = "refused"
)

// Invoice is created only as a unit with its line items by the invoice
// transaction engine. Total and items are immutable afterwards; only
// the status field transitions, and only out of pending.
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
	InvoiceDate *time.Time      `gorm:"type:date" json:"invoice_date"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Items       []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Audit
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceItem is one product-quantity-amount line within an invoice.
// Amount is unit price times quantity at the moment of creation and
// never changes, even if the product is later repriced. A referenced
// product cannot be deleted while line items point at it.
type InvoiceItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Audit
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
