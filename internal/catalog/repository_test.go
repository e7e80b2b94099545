package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmarceau/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.InventoryLine{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, name string, priceCents, qty int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, PriceCents: priceCents, IsActive: active}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	line := &models.InventoryLine{ProductID: product.ID, Size: "M", Color: "black", AvailableQty: qty}
	if err := db.Create(line).Error; err != nil {
		t.Fatalf("seed inventory line: %v", err)
	}
	return product
}

func TestReserveStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	product := seedVariant(t, db, "Crew Tee", 1000, 5, true)

	ok, err := repo.ReserveStock(ctx, product.ID, "M", "black", 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok {
		t.Fatal("expected first reservation to succeed")
	}

	ok, err = repo.ReserveStock(ctx, product.ID, "M", "black", 4)
	if err != nil {
		t.Fatalf("reserve past stock: %v", err)
	}
	if ok {
		t.Fatal("expected reservation past stock to be refused")
	}

	var line models.InventoryLine
	if err := db.First(&line, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load line: %v", err)
	}
	if line.AvailableQty != 2 {
		t.Fatalf("expected 2 remaining, got %d", line.AvailableQty)
	}
}

func TestReserveStockInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.ReserveStock(context.Background(), uuid.New(), "M", "black", 0)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRestockStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	product := seedVariant(t, db, "Crew Tee", 1000, 1, true)

	if err := repo.RestockStock(ctx, product.ID, "M", "black", 2); err != nil {
		t.Fatalf("restock: %v", err)
	}

	var line models.InventoryLine
	if err := db.First(&line, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load line: %v", err)
	}
	if line.AvailableQty != 3 {
		t.Fatalf("expected 3 available, got %d", line.AvailableQty)
	}

	err := repo.RestockStock(ctx, uuid.New(), "M", "black", 2)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown variant, got %v", err)
	}
}

func TestGetVariant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	product := seedVariant(t, db, "Crew Tee", 1250, 4, true)

	variant, err := svc.GetVariant(ctx, product.ID, "M", "black")
	if err != nil {
		t.Fatalf("get variant: %v", err)
	}
	if variant.PriceCents != 1250 || variant.AvailableQty != 4 || !variant.IsActive {
		t.Fatalf("unexpected variant: %+v", variant)
	}
	if variant.Name != "Crew Tee" {
		t.Fatalf("expected product name on variant, got %q", variant.Name)
	}

	if _, err := svc.GetVariant(ctx, product.ID, "XL", "black"); err == nil {
		t.Fatal("expected not found for missing inventory line")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetVariant(ctx, uuid.New(), "M", "black"); err == nil {
		t.Fatal("expected not found for missing product")
	}
}
