package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FieldTaken(ctx context.Context, field, value string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, scope Scope, page, limit int, search string) ([]model.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Customer{}).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FieldTaken checks uniqueness of a column value, optionally excluding
// one row (the record being updated). Field is caller-controlled and
// limited to the columns the customer validator probes.
func (r *customerRepository) FieldTaken(ctx context.Context, field, value string, excludeID *uuid.UUID) (bool, error) {
	query := GetDB(ctx, r.db).Model(&model.Customer{}).Where(field+" = ?", value)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *customerRepository) List(ctx context.Context, scope Scope, page, limit int, search string) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	base := GetDB(ctx, r.db).Model(&model.Customer{}).Scopes(scope)
	if search != "" {
		base = base.Where("name LIKE ?", "%"+search+"%")
	}
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := GetDB(ctx, r.db).Scopes(scope)
	if search != "" {
		fetch = fetch.Where("name LIKE ?", "%"+search+"%")
	}
	offset := (page - 1) * limit
	if err := fetch.Order("created_at desc").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}
