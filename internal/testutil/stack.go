package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	importapp "github.com/erp/warehouse/internal/application/import"
	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	productionapp "github.com/erp/warehouse/internal/application/production"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/production"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/event"
	"github.com/erp/warehouse/internal/infrastructure/lock"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the default stack clock reading
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// Clock is a settable clock shared by the engine and the tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock reading t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current reading
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Stack is a wired engine with its services over an in-memory SQLite database
type Stack struct {
	Database *persistence.Database
	DB       *gorm.DB
	Clock    *Clock
	Logger   *zap.Logger
	Bus      *event.InMemoryEventBus
	Events   *EventRecorder

	Warehouses   *persistence.GormWarehouseRepository
	Products     *persistence.GormProductRepository
	Batches      *persistence.GormStockBatchRepository
	Records      *persistence.GormInventoryRecordRepository
	Transactions *persistence.GormStockTransactionRepository
	Orders       *persistence.GormProductionOrderRepository

	Engine     *inventoryapp.Engine
	Inventory  *inventoryapp.InventoryService
	Transfers  *inventoryapp.TransferCoordinator
	Production *productionapp.Service
	Import     *importapp.ReceiptImportService

	RawMaterial   *catalog.Warehouse
	FinishedGoods *catalog.Warehouse
}

// Option customizes NewStack
type Option func(*stackOptions)

type stackOptions struct {
	logger       *zap.Logger
	now          time.Time
	importConfig importapp.Config
	lockTimeout  time.Duration
}

// WithLogger sets the logger handed to the engine and services
func WithLogger(l *zap.Logger) Option {
	return func(o *stackOptions) { o.logger = l }
}

// WithNow sets the initial clock reading
func WithNow(t time.Time) Option {
	return func(o *stackOptions) { o.now = t }
}

// WithImportConfig overrides the import limits
func WithImportConfig(cfg importapp.Config) Option {
	return func(o *stackOptions) { o.importConfig = cfg }
}

// WithLockTimeout overrides how long a unit waits for its keys
func WithLockTimeout(d time.Duration) Option {
	return func(o *stackOptions) { o.lockTimeout = d }
}

// NewStack builds the stack and seeds the raw material and finished goods
// warehouses. The database is closed when t finishes.
func NewStack(t testing.TB, opts ...Option) *Stack {
	t.Helper()

	o := stackOptions{
		logger:      zap.NewNop(),
		now:         Epoch,
		lockTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	database, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { _ = database.Close() })

	db := database.DB
	s := &Stack{
		Database:     database,
		DB:           db,
		Clock:        NewClock(o.now),
		Logger:       o.logger,
		Bus:          event.NewInMemoryEventBus(o.logger),
		Events:       NewEventRecorder(),
		Warehouses:   persistence.NewGormWarehouseRepository(db),
		Products:     persistence.NewGormProductRepository(db),
		Batches:      persistence.NewGormStockBatchRepository(db),
		Records:      persistence.NewGormInventoryRecordRepository(db),
		Transactions: persistence.NewGormStockTransactionRepository(db),
		Orders:       persistence.NewGormProductionOrderRepository(db),
	}
	s.Bus.Subscribe(s.Events)

	scope := persistence.NewGormTransactionScope(db, lock.NewInMemoryKeyLocker(o.lockTimeout))
	s.Engine = inventoryapp.NewEngine(scope,
		inventoryapp.WithClock(s.Clock.Now),
		inventoryapp.WithLogger(o.logger),
	)
	s.Engine.SetEventPublisher(s.Bus)

	s.RawMaterial = s.Warehouse(t, "RAW")
	s.FinishedGoods = s.Warehouse(t, "FG")

	s.Inventory = inventoryapp.NewInventoryService(s.Engine, s.Batches, s.Records, s.Transactions, s.Warehouses, s.Products)
	s.Transfers = inventoryapp.NewTransferCoordinator(s.Engine, s.Warehouses, s.Products)
	s.Production = productionapp.NewService(s.Engine, s.Orders, s.Warehouses, s.Products, production.WarehouseRoles{
		RawMaterial:   s.RawMaterial.ID,
		FinishedGoods: s.FinishedGoods.ID,
	}, o.logger)
	s.Import = importapp.NewReceiptImportService(s.Engine, s.Warehouses, s.Products, s.Transactions, o.importConfig, o.logger)

	return s
}

// Warehouse stores a warehouse with code
func (s *Stack) Warehouse(t testing.TB, code string) *catalog.Warehouse {
	t.Helper()
	w, err := catalog.NewWarehouse(code, code+" warehouse")
	require.NoError(t, err)
	require.NoError(t, s.Warehouses.Create(context.Background(), w))
	return w
}

// Product stores a product with code and a unit weight in kilograms
func (s *Stack) Product(t testing.TB, code, unitWeight string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(code, code+" product", "pcs", decimal.RequireFromString(unitWeight))
	require.NoError(t, err)
	require.NoError(t, s.Products.Create(context.Background(), p))
	return p
}

// Receive books qty of product into warehouse and fails the test on error
func (s *Stack) Receive(t testing.TB, warehouse *catalog.Warehouse, product *catalog.Product, qty string, expire *time.Time) *inventoryapp.ReceiveResponse {
	t.Helper()
	resp, err := s.Inventory.Receive(context.Background(), inventoryapp.ReceiveRequest{
		WarehouseID: warehouse.ID,
		ProductID:   product.ID,
		Quantity:    decimal.RequireFromString(qty),
		ExpireDate:  expire,
	})
	require.NoError(t, err)
	return resp
}

// Quantity returns the ledger quantity of a pair, zero when it has no record
func (s *Stack) Quantity(t testing.TB, warehouse *catalog.Warehouse, product *catalog.Product) decimal.Decimal {
	t.Helper()
	rec, err := s.Inventory.GetRecord(context.Background(), warehouse.ID, product.ID)
	if err != nil {
		return decimal.Zero
	}
	return rec.Quantity
}

// RequireConsistent fails the test when any ledger disagrees with its batches
func (s *Stack) RequireConsistent(t testing.TB) {
	t.Helper()
	resp, err := s.Inventory.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, resp.Consistent, "discrepancies: %+v", resp.Discrepancies)
}
