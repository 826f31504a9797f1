package importapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	csvimport "github.com/erp/warehouse/internal/infrastructure/import"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Receipt file columns
const (
	ColWarehouseID   = "WarehouseId"
	ColProductID     = "ProductId"
	ColQuantity      = "Quantity"
	ColBatchCode     = "BatchCode"
	ColExpireDate    = "ExpireDate"
	ColTransactionID = "TransactionId"
	ColNote          = "Note"
)

// RequiredColumns must be present in every receipt file
var RequiredColumns = []string{ColWarehouseID, ColProductID, ColQuantity}

// Defaults for Config
const (
	DefaultMaxRows     = 10000
	DefaultMaxFileSize = 10 << 20
	DefaultMaxErrors   = 200
)

// Archiver stores the raw upload and returns the object key
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

// Config bounds an import
type Config struct {
	MaxRows       int
	MaxFileSize   int64
	MaxErrors     int
	DefaultPrefix string
}

func (c Config) withDefaults() Config {
	if c.MaxRows <= 0 {
		c.MaxRows = DefaultMaxRows
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = DefaultMaxErrors
	}
	c.DefaultPrefix = inventoryapp.NormalizeBatchPrefix(c.DefaultPrefix, inventory.PrefixReceipt)
	return c
}

// ReceiptImportRequest is one uploaded receipt file
type ReceiptImportRequest struct {
	FileName     string
	Data         []byte
	Encoding     string
	ValidateOnly bool
}

// ReceiptImportResult summarizes an import. Row failures do not fail the
// import; they are listed in ErrorMessages as "row N: message".
type ReceiptImportResult struct {
	TotalRows       int                          `json:"total_rows"`
	SuccessCount    int                          `json:"success_count"`
	FailedCount     int                          `json:"failed_count"`
	ErrorMessages   []string                     `json:"error_messages"`
	ErrorsTruncated bool                         `json:"errors_truncated,omitempty"`
	ImportedBatches []inventoryapp.BatchResponse `json:"imported_batches"`
	ValidateOnly    bool                         `json:"validate_only,omitempty"`
	ArchiveKey      string                       `json:"archive_key,omitempty"`
}

// receiptRow is a parsed, catalog-resolved row
type receiptRow struct {
	line          int
	warehouseID   uuid.UUID
	productID     uuid.UUID
	quantity      decimal.Decimal
	prefix        string
	expireDate    *time.Time
	transactionID *uuid.UUID
	note          string
}

// ReceiptImportService books bulk receipts from CSV. Every row is its own
// unit of work; rows share one code sequence per prefix.
type ReceiptImportService struct {
	engine          *inventoryapp.Engine
	warehouseRepo   catalog.WarehouseRepository
	productRepo     catalog.ProductRepository
	transactionRepo inventory.StockTransactionRepository
	archiver        Archiver
	cfg             Config
	logger          *zap.Logger
}

// NewReceiptImportService creates a ReceiptImportService
func NewReceiptImportService(
	engine *inventoryapp.Engine,
	warehouseRepo catalog.WarehouseRepository,
	productRepo catalog.ProductRepository,
	transactionRepo inventory.StockTransactionRepository,
	cfg Config,
	logger *zap.Logger,
) *ReceiptImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptImportService{
		engine:          engine,
		warehouseRepo:   warehouseRepo,
		productRepo:     productRepo,
		transactionRepo: transactionRepo,
		cfg:             cfg.withDefaults(),
		logger:          logger,
	}
}

// SetArchiver enables archiving of raw uploads
func (s *ReceiptImportService) SetArchiver(a Archiver) {
	s.archiver = a
}

// Import parses, validates and books every row of a receipt file
func (s *ReceiptImportService) Import(ctx context.Context, req ReceiptImportRequest) (*ReceiptImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "import", "receipts")
	defer span.End()

	rows, err := s.parse(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRows, len(rows))

	result := &ReceiptImportResult{
		TotalRows:       len(rows),
		ErrorMessages:   []string{},
		ImportedBatches: []inventoryapp.BatchResponse{},
		ValidateOnly:    req.ValidateOnly,
	}

	if s.archiver != nil && !req.ValidateOnly {
		key, err := s.archiver.Archive(ctx, req.FileName, req.Data)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("archive upload: %w", err)
		}
		result.ArchiveKey = key
	}

	importID := uuid.New()
	lookups := newCatalogCache(s.warehouseRepo, s.productRepo)
	sequences := make(map[string]*inventoryapp.CodeSequence)
	errs := csvimport.NewErrorCollection(s.cfg.MaxErrors)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parsed, err := s.parseRow(ctx, lookups, row)
		if err != nil {
			errs.Add(csvimport.NewRowError(row.LineNumber, "", errorMessage(err)))
			continue
		}
		if req.ValidateOnly {
			result.SuccessCount++
			continue
		}

		seq, ok := sequences[parsed.prefix]
		if !ok {
			seq = inventoryapp.NewCodeSequence(parsed.prefix)
			sequences[parsed.prefix] = seq
		}
		batch, err := s.bookRow(ctx, importID, req.FileName, parsed, seq)
		if err != nil {
			errs.Add(csvimport.NewRowError(row.LineNumber, "", errorMessage(err)))
			continue
		}
		result.SuccessCount++
		result.ImportedBatches = append(result.ImportedBatches, inventoryapp.ToBatchResponse(batch))
	}

	result.FailedCount = errs.TotalCount()
	result.ErrorMessages = errs.Messages()
	result.ErrorsTruncated = errs.IsTruncated()

	if !req.ValidateOnly {
		s.engine.Metrics().RecordImportRows(ctx, result.SuccessCount, result.FailedCount)
		s.engine.Metrics().RecordBatchesMinted(ctx, string(inventory.SourceReceipt), result.SuccessCount)
	}
	s.logger.Info("receipt import finished",
		zap.String("import_id", importID.String()),
		zap.String("file", req.FileName),
		zap.Int("rows", result.TotalRows),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
		zap.Bool("validate_only", req.ValidateOnly),
	)
	return result, nil
}

func (s *ReceiptImportService) parse(req ReceiptImportRequest) ([]*csvimport.Row, error) {
	if int64(len(req.Data)) > s.cfg.MaxFileSize {
		return nil, shared.NewValidationError("%s: %d bytes, limit is %d", csvimport.ErrFileTooLarge, len(req.Data), s.cfg.MaxFileSize)
	}
	enc, err := csvimport.LookupEncoding(req.Encoding)
	if err != nil {
		return nil, shared.NewValidationError("%s", err)
	}

	parser, err := csvimport.NewCSVParser(bytes.NewReader(req.Data),
		csvimport.WithEncoding(enc),
		csvimport.WithMaxRows(s.cfg.MaxRows),
	)
	if err != nil {
		return nil, fileError(err)
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, fileError(err)
	}
	if missing := parser.ValidateHeaders(RequiredColumns); len(missing) > 0 {
		return nil, shared.NewValidationError("missing required columns: %v", missing).
			WithDetail("missing_columns", missing)
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, fileError(err)
	}
	if len(rows) == 0 {
		return nil, fileError(csvimport.ErrNoDataRows)
	}
	return rows, nil
}

func (s *ReceiptImportService) parseRow(ctx context.Context, lookups *catalogCache, row *csvimport.Row) (*receiptRow, error) {
	out := &receiptRow{
		line:   row.LineNumber,
		prefix: inventoryapp.NormalizeBatchPrefix(row.Get(ColBatchCode), s.cfg.DefaultPrefix),
		note:   row.Get(ColNote),
	}
	if len(out.prefix) > 32 {
		return nil, shared.NewValidationError("%s prefix %q exceeds 32 characters", ColBatchCode, out.prefix)
	}
	if len(out.note) > 500 {
		return nil, shared.NewValidationError("%s exceeds 500 characters", ColNote)
	}

	var err error
	if out.warehouseID, err = lookups.warehouse(ctx, row.Get(ColWarehouseID)); err != nil {
		return nil, err
	}
	if out.productID, err = lookups.product(ctx, row.Get(ColProductID)); err != nil {
		return nil, err
	}

	qty := row.Get(ColQuantity)
	if out.quantity, err = decimal.NewFromString(qty); err != nil {
		return nil, shared.NewValidationError("%s %q is not a number", ColQuantity, qty)
	}

	if raw := row.Get(ColExpireDate); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return nil, shared.NewValidationError("%s: %s", ColExpireDate, err)
		}
		out.expireDate = &d
	}
	if err := inventoryapp.ValidateReceipt(out.quantity, out.expireDate, s.engine.Now()); err != nil {
		return nil, err
	}

	if raw := row.Get(ColTransactionID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, shared.NewValidationError("%s %q is not a valid id", ColTransactionID, raw)
		}
		exists, err := s.transactionRepo.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, shared.NewNotFoundError("transaction", id)
		}
		out.transactionID = &id
	}
	return out, nil
}

func (s *ReceiptImportService) bookRow(ctx context.Context, importID uuid.UUID, fileName string, row *receiptRow, seq *inventoryapp.CodeSequence) (*inventory.StockBatch, error) {
	product, err := s.productRepo.FindByID(ctx, row.productID)
	if err != nil {
		return nil, err
	}

	var batch *inventory.StockBatch
	keys := []string{
		inventoryapp.StockKey(row.warehouseID, row.productID),
		inventoryapp.BatchCodeKey(row.prefix),
	}
	err = s.engine.Run(ctx, "import_row", keys, func(u *inventoryapp.Unit) error {
		u.UseSequence(seq)
		now := s.engine.Now()

		tx := inventory.NewStockTransaction(inventory.TransactionReceipt, now)
		tx.DestWarehouseID = &row.warehouseID
		tx.ReferenceID = &importID
		tx.Note = fmt.Sprintf("import %s row %d", fileName, row.line)

		sourceID := tx.ID
		if row.transactionID != nil {
			sourceID = *row.transactionID
		}
		var err error
		batch, err = s.engine.Minter.Mint(ctx, u, inventoryapp.MintSpec{
			WarehouseID: row.warehouseID,
			ProductID:   row.productID,
			Prefix:      row.prefix,
			Quantity:    row.quantity,
			ImportDate:  now,
			ExpireDate:  row.expireDate,
			SourceType:  inventory.SourceReceipt,
			SourceID:    &sourceID,
			Note:        row.note,
		})
		if err != nil {
			return err
		}
		tx.RecordIn(batch)
		tx.AddTotals(row.quantity, product.UnitWeight)
		return u.Repos().TransactionRepo().Create(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func parseDate(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: %s", s)
}

func fileError(err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewValidationError("%s", err)
}

func errorMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
