package service

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRanking struct {
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	TotalQuantity int       `json:"total_quantity"`
	TotalValue    float64   `json:"total_value"`
}

type StatisticsResponse struct {
	TimeRangeStartDate time.Time        `json:"start_date"`
	TimeRangeEndDate   time.Time        `json:"end_date"`
	TotalRevenue       float64          `json:"total_revenue"`
	PendingAmount      float64          `json:"pending_amount"`
	InvoiceCount       int64            `json:"invoice_count"`
	PaidCount          int64            `json:"paid_count"`
	TopProducts        []ProductRanking `json:"top_products"`
}

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates settled revenue and sales volume over a time
// bracket. Only paid invoices count toward revenue; pending amounts are
// reported separately and refused invoices count toward neither.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (StatisticsResponse, error) {
	var response StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	var revenue struct {
		Value float64
	}
	s.db.WithContext(ctx).Table("invoices").
		Select("COALESCE(SUM(total_amount), 0) as value").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.InvoiceStatusPaid, startDate, endDate).
		Scan(&revenue)
	response.TotalRevenue = revenue.Value

	var pending struct {
		Value float64
	}
	s.db.WithContext(ctx).Table("invoices").
		Select("COALESCE(SUM(total_amount), 0) as value").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.InvoiceStatusPending, startDate, endDate).
		Scan(&pending)
	response.PendingAmount = pending.Value

	s.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Count(&response.InvoiceCount)
	s.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.InvoiceStatusPaid, startDate, endDate).
		Count(&response.PaidCount)

	var topProducts []ProductRanking
	s.db.WithContext(ctx).Table("invoice_items").
		Select("products.id as product_id, products.name as product_name, SUM(invoice_items.quantity) as total_quantity, SUM(invoice_items.amount) as total_value").
		Joins("JOIN products ON products.id = invoice_items.product_id").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.status = ? AND invoices.created_at >= ? AND invoices.created_at <= ?", model.InvoiceStatusPaid, startDate, endDate).
		Group("products.id, products.name").
		Order("total_quantity DESC").
		Limit(5).
		Scan(&topProducts)
	response.TopProducts = topProducts

	return response, nil
}
