package handler

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	importapp "github.com/erp/warehouse/internal/application/import"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DefaultArchiveLinkTTL is how long an archive download link stays valid
const DefaultArchiveLinkTTL = 15 * time.Minute

// ArchiveLinker issues download links for archived uploads
type ArchiveLinker interface {
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// ArchiveLinkResponse is a time limited download link
type ArchiveLinkResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImportHandler accepts bulk receipt files
type ImportHandler struct {
	BaseHandler
	importService *importapp.ReceiptImportService
	linker        ArchiveLinker
	maxFileSize   int64
	linkTTL       time.Duration
}

// NewImportHandler creates a new ImportHandler. linker may be nil when
// uploads are not archived.
func NewImportHandler(importService *importapp.ReceiptImportService, linker ArchiveLinker, maxFileSize int64) *ImportHandler {
	if maxFileSize <= 0 {
		maxFileSize = importapp.DefaultMaxFileSize
	}
	return &ImportHandler{
		importService: importService,
		linker:        linker,
		maxFileSize:   maxFileSize,
		linkTTL:       DefaultArchiveLinkTTL,
	}
}

// Import books every row of an uploaded CSV receipt file. Form fields:
// file (required), validate_only (bool), encoding (utf-8, gbk, ...).
// POST /inventory/receipts/import
func (h *ImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.Error(c, dto.ErrCodeValidation, "A CSV file is required in the 'file' form field")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		h.Error(c, dto.ErrCodePayloadTooLarge,
			fmt.Sprintf("File exceeds the %d byte limit", h.maxFileSize))
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		h.Error(c, dto.ErrCodeValidation, "Only .csv files are accepted")
		return
	}

	validateOnly := false
	if raw := c.PostForm("validate_only"); raw != "" {
		validateOnly, err = strconv.ParseBool(raw)
		if err != nil {
			h.Error(c, dto.ErrCodeValidation, "validate_only must be a boolean")
			return
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		h.HandleError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	result, err := h.importService.Import(c.Request.Context(), importapp.ReceiptImportRequest{
		FileName:     fileHeader.Filename,
		Data:         data,
		Encoding:     c.PostForm("encoding"),
		ValidateOnly: validateOnly,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ArchiveLink returns a download link for an archived upload
// GET /inventory/receipts/archives/*key
func (h *ImportHandler) ArchiveLink(c *gin.Context) {
	if h.linker == nil {
		h.Error(c, dto.ErrCodeNotFound, "Upload archiving is not enabled")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		h.Error(c, dto.ErrCodeValidation, "Archive key is required")
		return
	}

	url, expiresAt, err := h.linker.DownloadURL(c.Request.Context(), key, h.linkTTL)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ArchiveLinkResponse{
		Key:       key,
		URL:       url,
		ExpiresAt: expiresAt.UTC(),
	})
}

// RegisterRoutes registers the receipt import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/inventory/receipts/import", h.Import)
	rg.GET("/inventory/receipts/archives/*key", h.ArchiveLink)
}
