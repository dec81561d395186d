package catalog

import (
	"context"
	"errors"

	"github.com/tallix-com/prodgo/internal/database"
	"github.com/tallix-com/prodgo/internal/models"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when no active product matches a code.
var ErrProductNotFound = errors.New("product not found")

// Service resolves scanned codes against the product catalog. Read-only:
// catalog maintenance happens elsewhere.
type Service struct {
	db *database.DB
}

// New builds a catalog lookup service.
func New(db *database.DB) *Service {
	return &Service{db: db}
}

// FindByCode resolves a product by SKU or retail barcode.
func (s *Service) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Where("(default_code = ? OR barcode = ?) AND active", code, code).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByID resolves a product by its identifier.
func (s *Service) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
