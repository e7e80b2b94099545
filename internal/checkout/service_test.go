package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarceau/storefront-backend/internal/cart"
	"github.com/dmarceau/storefront-backend/internal/catalog"
	"github.com/dmarceau/storefront-backend/pkg/config"
	"github.com/dmarceau/storefront-backend/pkg/db"
	"github.com/dmarceau/storefront-backend/pkg/db/models"
	"github.com/dmarceau/storefront-backend/pkg/logger"
	"github.com/dmarceau/storefront-backend/pkg/types"
)

func newCheckoutTestDB(t *testing.T) *db.Client {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	err = client.DB().AutoMigrate(
		&models.Product{}, &models.InventoryLine{},
		&models.CartSyncRecord{}, &models.CartSyncItem{},
		&models.Order{}, &models.OrderLineItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func defaultPolicy() TotalsPolicy {
	return TotalsPolicy{
		TaxRate:                    decimal.RequireFromString("0.18"),
		FreeShippingThresholdCents: 2000,
		FlatShippingFeeCents:       500,
	}
}

func newCheckoutService(t *testing.T, client *db.Client, cache cart.Cache) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:          client,
		Repo:        NewRepository(client.DB()),
		CartRepo:    cart.NewRepository(client.DB()),
		CatalogRepo: catalog.NewRepository(client.DB()),
		Cache:       cache,
		Logger:      logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
		Policy:      defaultPolicy(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedCommitFixture(t *testing.T, client *db.Client, userID uuid.UUID, qty, stock int) *models.Product {
	t.Helper()
	gdb := client.DB()

	product := &models.Product{Name: "Crew Tee", PriceCents: 1000, IsActive: true}
	if err := gdb.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	line := &models.InventoryLine{ProductID: product.ID, Size: "M", Color: "black", AvailableQty: stock}
	if err := gdb.Create(line).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	record := &models.CartSyncRecord{
		UserID:          userID,
		TotalItems:      qty,
		TotalPriceCents: qty * product.PriceCents,
		LastModified:    time.Now().UTC(),
		DeviceID:        "device-a",
		SyncVersion:     1,
		Items: []models.CartSyncItem{
			{ProductID: product.ID, Size: "M", Color: "black", Quantity: qty, UnitPriceCents: product.PriceCents},
		},
	}
	if err := cart.NewRepository(gdb).SaveSnapshot(context.Background(), record); err != nil {
		t.Fatalf("seed cart record: %v", err)
	}
	return product
}

func commitInput(userID uuid.UUID) CommitInput {
	addr := types.Address{Line1: "12 Rue Cler", City: "Paris", PostalCode: "75007", Country: "FR"}
	return CommitInput{
		UserID:          userID,
		DeviceID:        "device-a",
		ShippingAddress: addr,
		BillingAddress:  addr,
		PaymentRef:      "pay_123",
	}
}

func TestCommitHappyPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newCheckoutTestDB(t)
	cache := cart.NewMemoryCache()
	userID := uuid.New()
	product := seedCommitFixture(t, client, userID, 2, 10)
	svc := newCheckoutService(t, client, cache)

	order, err := svc.Commit(ctx, commitInput(userID))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if order.SubtotalCents != 2000 || order.TaxCents != 360 || order.ShippingCents != 0 {
		t.Fatalf("unexpected totals: %+v", order)
	}
	if order.TotalCents != 2360 {
		t.Fatalf("expected total 2360, got %d", order.TotalCents)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected line items: %+v", order.Items)
	}

	var line models.InventoryLine
	if err := client.DB().First(&line, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if line.AvailableQty != 8 {
		t.Fatalf("expected stock 8 after commit, got %d", line.AvailableQty)
	}

	record, err := cart.NewRepository(client.DB()).GetRecord(ctx, userID)
	if err != nil {
		t.Fatalf("load cart record: %v", err)
	}
	if len(record.Items) != 0 || record.TotalItems != 0 {
		t.Fatalf("expected cleared remote cart after commit, got %+v", record)
	}

	local, err := cache.Get(ctx, userID)
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if !local.IsEmpty() {
		t.Fatalf("expected cleared cache after commit, got %d items", len(local.Items))
	}
}

func TestCommitBelowFreeShippingThreshold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newCheckoutTestDB(t)
	userID := uuid.New()
	seedCommitFixture(t, client, userID, 1, 10)
	svc := newCheckoutService(t, client, cart.NewMemoryCache())

	order, err := svc.Commit(ctx, commitInput(userID))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if order.ShippingCents != 500 {
		t.Fatalf("expected flat shipping fee, got %d", order.ShippingCents)
	}
	if order.TotalCents != 1000+180+500 {
		t.Fatalf("unexpected total: %d", order.TotalCents)
	}
}

func TestCommitEmptyCart(t *testing.T) {
	t.Parallel()

	client := newCheckoutTestDB(t)
	svc := newCheckoutService(t, client, cart.NewMemoryCache())

	_, err := svc.Commit(context.Background(), commitInput(uuid.New()))
	commitErr, ok := err.(*CommitError)
	if !ok || commitErr.Reason != ReasonEmptyCart {
		t.Fatalf("expected empty cart rejection, got %v", err)
	}
}

func TestCommitInsufficientInventory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newCheckoutTestDB(t)
	userID := uuid.New()
	product := seedCommitFixture(t, client, userID, 2, 1)
	svc := newCheckoutService(t, client, cart.NewMemoryCache())

	_, err := svc.Commit(ctx, commitInput(userID))
	commitErr, ok := err.(*CommitError)
	if !ok || commitErr.Reason != ReasonInsufficientInventory {
		t.Fatalf("expected insufficient inventory rejection, got %v", err)
	}
	if commitErr.ProductID != product.ID {
		t.Fatalf("rejection must name the product, got %s", commitErr.ProductID)
	}

	var line models.InventoryLine
	if err := client.DB().First(&line, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if line.AvailableQty != 1 {
		t.Fatalf("stock must be untouched after rejection, got %d", line.AvailableQty)
	}

	var count int64
	if err := client.DB().Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no order rows, got %d", count)
	}
}

func TestCommitRollsBackEarlierReservations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newCheckoutTestDB(t)
	gdb := client.DB()
	userID := uuid.New()

	good := &models.Product{Name: "Crew Tee", PriceCents: 1000, IsActive: true}
	short := &models.Product{Name: "Hoodie", PriceCents: 3000, IsActive: true}
	for _, p := range []*models.Product{good, short} {
		if err := gdb.Create(p).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	for _, line := range []models.InventoryLine{
		{ProductID: good.ID, Size: "M", Color: "black", AvailableQty: 5},
		{ProductID: short.ID, Size: "L", Color: "grey", AvailableQty: 0},
	} {
		if err := gdb.Create(&line).Error; err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
	}

	record := &models.CartSyncRecord{
		UserID: userID, TotalItems: 3, TotalPriceCents: 5000,
		LastModified: time.Now().UTC(), DeviceID: "device-a", SyncVersion: 1,
		Items: []models.CartSyncItem{
			{ProductID: good.ID, Size: "M", Color: "black", Quantity: 2, UnitPriceCents: 1000},
			{ProductID: short.ID, Size: "L", Color: "grey", Quantity: 1, UnitPriceCents: 3000},
		},
	}
	if err := cart.NewRepository(gdb).SaveSnapshot(ctx, record); err != nil {
		t.Fatalf("seed cart record: %v", err)
	}

	svc := newCheckoutService(t, client, cart.NewMemoryCache())
	_, err := svc.Commit(ctx, commitInput(userID))
	commitErr, ok := err.(*CommitError)
	if !ok || commitErr.Reason != ReasonInsufficientInventory {
		t.Fatalf("expected insufficient inventory rejection, got %v", err)
	}

	var goodLine models.InventoryLine
	if err := gdb.First(&goodLine, "product_id = ?", good.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if goodLine.AvailableQty != 5 {
		t.Fatalf("rollback must restore the first line's stock, got %d", goodLine.AvailableQty)
	}
}

func TestCommitInactiveProduct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newCheckoutTestDB(t)
	userID := uuid.New()
	product := seedCommitFixture(t, client, userID, 1, 10)
	if err := client.DB().Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	svc := newCheckoutService(t, client, cart.NewMemoryCache())
	_, err := svc.Commit(ctx, commitInput(userID))
	commitErr, ok := err.(*CommitError)
	if !ok || commitErr.Reason != ReasonProductUnavailable {
		t.Fatalf("expected product unavailable rejection, got %v", err)
	}
}

func TestCommitMissingPaymentRef(t *testing.T) {
	t.Parallel()

	client := newCheckoutTestDB(t)
	svc := newCheckoutService(t, client, cart.NewMemoryCache())

	input := commitInput(uuid.New())
	input.PaymentRef = ""
	_, err := svc.Commit(context.Background(), input)
	commitErr, ok := err.(*CommitError)
	if !ok || commitErr.Reason != ReasonUnknown {
		t.Fatalf("expected unknown-reason rejection, got %v", err)
	}
}

func TestCommitConcurrentReservationsNeverOversell(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := "file:checkout_conc_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(ctx, config.DBConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(
		&models.Product{}, &models.InventoryLine{},
		&models.CartSyncRecord{}, &models.CartSyncItem{},
		&models.Order{}, &models.OrderLineItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	userA := uuid.New()
	userB := uuid.New()
	product := seedCommitFixture(t, client, userA, 3, 5)

	recordB := &models.CartSyncRecord{
		UserID:          userB,
		TotalItems:      3,
		TotalPriceCents: 3 * product.PriceCents,
		LastModified:    time.Now().UTC(),
		DeviceID:        "device-b",
		SyncVersion:     1,
		Items: []models.CartSyncItem{
			{ProductID: product.ID, Size: "M", Color: "black", Quantity: 3, UnitPriceCents: product.PriceCents},
		},
	}
	if err := cart.NewRepository(client.DB()).SaveSnapshot(ctx, recordB); err != nil {
		t.Fatalf("seed second cart: %v", err)
	}

	svc := newCheckoutService(t, client, cart.NewMemoryCache())

	results := make(chan error, 2)
	for _, userID := range []uuid.UUID{userA, userB} {
		go func(id uuid.UUID) {
			_, err := svc.Commit(ctx, commitInput(id))
			results <- err
		}(userID)
	}

	var committed, shortfalls int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			committed++
			continue
		}
		commitErr, ok := err.(*CommitError)
		if !ok || commitErr.Reason != ReasonInsufficientInventory {
			t.Fatalf("expected insufficient inventory failure, got %v", err)
		}
		shortfalls++
	}
	if committed != 1 || shortfalls != 1 {
		t.Fatalf("expected exactly one commit and one shortfall, got %d/%d", committed, shortfalls)
	}

	var line models.InventoryLine
	if err := client.DB().First(&line, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if line.AvailableQty != 2 {
		t.Fatalf("expected stock 2 after one reservation, got %d", line.AvailableQty)
	}

	var orderCount int64
	if err := client.DB().Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected one order, got %d", orderCount)
	}
}
