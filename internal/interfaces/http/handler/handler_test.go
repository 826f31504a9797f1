package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	productionapp "github.com/erp/warehouse/internal/application/production"
	"github.com/erp/warehouse/internal/infrastructure/storage"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/erp/warehouse/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type server struct {
	*testutil.Stack
	engine  *gin.Engine
	archive *storage.MemoryArchiver
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := testutil.NewStack(t)
	archive := storage.NewMemoryArchiver()
	s.Import.SetArchiver(archive)

	engine := router.NewEngine(router.EngineConfig{
		Logger:      zap.NewNop(),
		ServiceName: "warehouse-test",
		MaxBodySize: 1 << 20,
	})
	router.NewRouter(engine).
		Register(handler.NewHealthHandler(s.Database)).
		Register(handler.NewInventoryHandler(s.Inventory)).
		Register(handler.NewTransferHandler(s.Transfers)).
		Register(handler.NewProductionHandler(s.Production)).
		Register(handler.NewImportHandler(s.Import, archive, 1<<20)).
		Setup()

	return &server{Stack: s, engine: engine, archive: archive}
}

func (s *server) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.serve(t, req)
}

func (s *server) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestInventoryRoutes(t *testing.T) {
	s := newServer(t)
	wh := s.Warehouse(t, "WH1")
	p := s.Product(t, "SKU1", "1")

	var receipts []inventoryapp.ReceiveResponse
	for _, qty := range []string{"10", "10"} {
		w, env := s.do(t, http.MethodPost, "/api/v1/inventory/receipts", map[string]any{
			"warehouse_id": wh.ID,
			"product_id":   p.ID,
			"quantity":     qty,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		receipts = append(receipts, decode[inventoryapp.ReceiveResponse](t, env))
		s.Clock.Advance(time.Minute)
	}

	w, env := s.do(t, http.MethodPost, "/api/v1/inventory/allocations", map[string]any{
		"warehouse_id": wh.ID,
		"product_id":   p.ID,
		"quantity":     12,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	alloc := decode[inventoryapp.AllocationResponse](t, env)
	require.Len(t, alloc.Lines, 2)
	assert.Equal(t, receipts[0].Batch.ID, alloc.Lines[0].BatchID)
	assert.True(t, alloc.Remaining.Equal(decimal.NewFromInt(8)))

	t.Run("record", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/inventory/records/"+wh.ID.String()+"/"+p.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		rec := decode[inventoryapp.RecordResponse](t, env)
		assert.True(t, rec.Quantity.Equal(decimal.NewFromInt(8)))
	})

	t.Run("records list", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/inventory/records?warehouse_id="+wh.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
	})

	t.Run("batches hide empty lots by default", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/inventory/batches?product_id="+p.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), env.Meta.Total)

		w, env = s.do(t, http.MethodGet, "/api/v1/inventory/batches?include_empty=true&product_id="+p.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(2), env.Meta.Total)
	})

	t.Run("batch", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/inventory/batches/"+receipts[1].Batch.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		b := decode[inventoryapp.BatchResponse](t, env)
		assert.Equal(t, "BATCH0002", b.BatchCode)
		assert.True(t, b.Remaining.Equal(decimal.NewFromInt(8)))
	})

	t.Run("transaction", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/transactions/"+alloc.TransactionID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		tx := decode[inventoryapp.TransactionResponse](t, env)
		assert.Len(t, tx.Movements, 2)
	})

	t.Run("reconciliation", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/inventory/reconciliation", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[inventoryapp.ReconcileResponse](t, env).Consistent)
	})

	t.Run("write-off", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/inventory/write-offs/expired?as_of=2030-01-01", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, decode[inventoryapp.WriteOffResponse](t, env).BatchCount)
	})
}

func TestErrorResponses(t *testing.T) {
	s := newServer(t)
	wh := s.Warehouse(t, "WH1")
	p := s.Product(t, "SKU1", "1")
	s.Receive(t, wh, p, "5", nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "zero quantity",
			method: http.MethodPost,
			path:   "/api/v1/inventory/allocations",
			body:   map[string]any{"warehouse_id": wh.ID, "product_id": p.ID, "quantity": "0"},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "malformed json",
			method: http.MethodPost,
			path:   "/api/v1/inventory/allocations",
			body:   `{"warehouse_id":`,
			status: http.StatusBadRequest,
			code:   dto.ErrCodeInvalidJSON,
		},
		{
			name:   "insufficient stock",
			method: http.MethodPost,
			path:   "/api/v1/inventory/allocations",
			body:   map[string]any{"warehouse_id": wh.ID, "product_id": p.ID, "quantity": "6"},
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeInsufficientStock,
		},
		{
			name:   "unknown warehouse",
			method: http.MethodPost,
			path:   "/api/v1/inventory/receipts",
			body:   map[string]any{"warehouse_id": uuid.New(), "product_id": p.ID, "quantity": "1"},
			status: http.StatusNotFound,
			code:   dto.ErrCodeNotFound,
		},
		{
			name:   "malformed id",
			method: http.MethodGet,
			path:   "/api/v1/inventory/batches/not-a-uuid",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "missing batch",
			method: http.MethodGet,
			path:   "/api/v1/inventory/batches/" + uuid.NewString(),
			status: http.StatusNotFound,
			code:   dto.ErrCodeNotFound,
		},
		{
			name:   "malformed query id",
			method: http.MethodGet,
			path:   "/api/v1/inventory/records?warehouse_id=nope",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "malformed as_of",
			method: http.MethodPost,
			path:   "/api/v1/inventory/write-offs/expired?as_of=yesterday",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "same warehouse transfer",
			method: http.MethodPost,
			path:   "/api/v1/transfers",
			body: map[string]any{
				"source_warehouse_id": wh.ID,
				"dest_warehouse_id":   wh.ID,
				"lines":               []map[string]any{{"product_id": p.ID, "quantity": "1"}},
			},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "unknown route",
			method: http.MethodGet,
			path:   "/api/v1/nowhere",
			status: http.StatusNotFound,
			code:   dto.ErrCodeRouteNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.RequestID)
		})
	}

	t.Run("validation names the field", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/inventory/allocations",
			map[string]any{"warehouse_id": wh.ID, "product_id": p.ID, "quantity": "-2"})
		require.NotNil(t, env.Error)
		require.Len(t, env.Error.Fields, 1)
		assert.Equal(t, "quantity", env.Error.Fields[0].Field)
	})

	t.Run("insufficient stock carries details", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/inventory/allocations",
			map[string]any{"warehouse_id": wh.ID, "product_id": p.ID, "quantity": "9"})
		require.NotNil(t, env.Error)
		assert.Equal(t, "5", env.Error.Details["available"])
	})
}

func TestTransferRoute(t *testing.T) {
	s := newServer(t)
	src := s.Warehouse(t, "SRC")
	dst := s.Warehouse(t, "DST")
	p := s.Product(t, "SKU1", "2")
	s.Receive(t, src, p, "10", nil)

	w, env := s.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{
		"source_warehouse_id": src.ID,
		"dest_warehouse_id":   dst.ID,
		"lines":               []map[string]any{{"product_id": p.ID, "quantity": "4"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[inventoryapp.TransferResponse](t, env)
	require.Len(t, resp.Batches, 1)
	assert.Equal(t, dst.ID, resp.Batches[0].WarehouseID)
	assert.True(t, resp.Transaction.TotalWeight.Equal(decimal.NewFromInt(8)))
	assert.True(t, s.Quantity(t, src, p).Equal(decimal.NewFromInt(6)))
}

func TestProductionRoutes(t *testing.T) {
	s := newServer(t)
	steel := s.Product(t, "STEEL", "1")
	widget := s.Product(t, "WIDGET", "1")
	s.Receive(t, s.RawMaterial, steel, "10", nil)

	w, env := s.do(t, http.MethodPost, "/api/v1/production-orders", map[string]any{
		"order_number": "PO-7",
		"materials":    []map[string]any{{"product_id": steel.ID, "quantity": "3"}},
		"outputs":      []map[string]any{{"product_id": widget.ID, "quantity": "1"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[productionapp.OrderResponse](t, env)
	base := "/api/v1/production-orders/" + order.ID.String()

	w, env = s.do(t, http.MethodPost, base+"/finish", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidStateTransition, env.Error.Code)

	w, env = s.do(t, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PROCESSING", decode[productionapp.OrderResponse](t, env).Status)

	w, env = s.do(t, http.MethodPost, base+"/cancel", map[string]any{"reason": "too late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidStateTransition, env.Error.Code)

	w, env = s.do(t, http.MethodPost, base+"/finish", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "FINISHED", decode[productionapp.OrderResponse](t, env).Status)

	w, env = s.do(t, http.MethodGet, "/api/v1/production-orders?status=FINISHED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), env.Meta.Total)

	w, _ = s.do(t, http.MethodGet, "/api/v1/production-orders?status=DONE", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/production-orders", map[string]any{
		"order_number": "PO-7",
		"outputs":      []map[string]any{{"product_id": widget.ID, "quantity": "1"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeDuplicateCode, env.Error.Code)
}

func multipartUpload(t *testing.T, path, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportRoutes(t *testing.T) {
	s := newServer(t)
	s.Warehouse(t, "WH1")
	s.Product(t, "SKU1", "1")

	csv := []byte("WarehouseId,ProductId,Quantity\nWH1,SKU1,5\nWH1,SKU1,x\n")

	type importResult struct {
		TotalRows    int    `json:"total_rows"`
		SuccessCount int    `json:"success_count"`
		FailedCount  int    `json:"failed_count"`
		ArchiveKey   string `json:"archive_key"`
	}

	t.Run("validate only", func(t *testing.T) {
		req := multipartUpload(t, "/api/v1/inventory/receipts/import", "in.csv", csv, map[string]string{"validate_only": "true"})
		w, env := s.serve(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[importResult](t, env)
		assert.Equal(t, 2, res.TotalRows)
		assert.Equal(t, 1, res.SuccessCount)
		assert.Empty(t, res.ArchiveKey)
	})

	var key string
	t.Run("books rows and archives the file", func(t *testing.T) {
		req := multipartUpload(t, "/api/v1/inventory/receipts/import", "in.csv", csv, nil)
		w, env := s.serve(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[importResult](t, env)
		assert.Equal(t, 1, res.SuccessCount)
		assert.Equal(t, 1, res.FailedCount)
		require.NotEmpty(t, res.ArchiveKey)
		key = res.ArchiveKey
	})

	t.Run("archive link", func(t *testing.T) {
		require.NotEmpty(t, key)
		w, env := s.do(t, http.MethodGet, "/api/v1/inventory/receipts/archives/"+key, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		link := decode[handler.ArchiveLinkResponse](t, env)
		assert.Equal(t, key, link.Key)
		assert.NotEmpty(t, link.URL)
		assert.False(t, link.ExpiresAt.IsZero())

		w, env = s.do(t, http.MethodGet, "/api/v1/inventory/receipts/archives/missing.csv", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)
	})

	rejects := []struct {
		name     string
		fileName string
		fields   map[string]string
		content  []byte
	}{
		{name: "no file"},
		{name: "not csv", fileName: "in.xlsx", content: csv},
		{name: "bad flag", fileName: "in.csv", content: csv, fields: map[string]string{"validate_only": "maybe"}},
		{name: "missing column", fileName: "in.csv", content: []byte("WarehouseId\nWH1\n")},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartUpload(t, "/api/v1/inventory/receipts/import", tt.fileName, tt.content, tt.fields)
			w, env := s.serve(t, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		})
	}
}

type failingPinger struct{}

func (failingPinger) Ping() error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	s := newServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	h := decode[handler.HealthResponse](t, env)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "ok", h.Database)

	engine := router.NewEngine(router.EngineConfig{Logger: zap.NewNop()})
	router.NewRouter(engine).Register(handler.NewHealthHandler(failingPinger{})).Setup()
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), dto.ErrCodeServiceUnavailable)
}
