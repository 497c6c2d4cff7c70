package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"receiptvault/internal/auth"
	"receiptvault/internal/models"
	"receiptvault/internal/report"
	"receiptvault/internal/repository"
	"receiptvault/internal/stats"
	"receiptvault/internal/storage"
)

const userIDKey = "user_id"

// Handlers contains all HTTP request handlers
type Handlers struct {
	auth       *auth.Service
	receipts   *repository.ReceiptRepository
	images     *storage.ImageStore
	composer   *report.Composer
	serializer *report.DocumentSerializer
	exporter   *stats.Exporter
	logger     *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	authService *auth.Service,
	receipts *repository.ReceiptRepository,
	images *storage.ImageStore,
	composer *report.Composer,
	serializer *report.DocumentSerializer,
	exporter *stats.Exporter,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		auth:       authService,
		receipts:   receipts,
		images:     images,
		composer:   composer,
		serializer: serializer,
		exporter:   exporter,
		logger:     logger,
	}
}

// AuthRequest is the payload for signup and login.
type AuthRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UploadRequest is the payload for receipt uploads. The image travels as a
// base64 string inside the JSON body.
type UploadRequest struct {
	Filename string  `json:"filename" binding:"required"`
	Image    string  `json:"image" binding:"required"`
	Amount   float64 `json:"amount"`
	BillDate string  `json:"bill_date" binding:"required"`
	BillTime string  `json:"bill_time" binding:"required"`
	Shop     string  `json:"shop" binding:"required"`
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "receiptvault",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// RequireAuth resolves the caller's token (Authorization bearer header or
// token query parameter) to a user id before any owner-scoped handler runs.
func (h *Handlers) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if header := c.GetHeader("Authorization"); header != "" {
			token = strings.TrimPrefix(header, "Bearer ")
		}

		userID, err := h.auth.ResolveToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// Signup registers a new user and returns their session token.
func (h *Handlers) Signup(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := h.auth.Signup(req.Username, req.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Signup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Login authenticates a user and returns their session token.
func (h *Handlers) Login(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// UploadReceipt stores a receipt image plus its metadata. Amount validation
// happens here, at the upload boundary; the report engine renders whatever
// was stored.
func (h *Handlers) UploadReceipt(c *gin.Context) {
	userID := c.GetInt64(userIDKey)

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required receipt fields"})
		return
	}
	if req.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}

	ref, err := h.images.SaveImage(req.Filename, imageData)
	if err != nil {
		h.logger.Error("Failed to store receipt image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	receipt := &models.Receipt{
		UserID:     userID,
		ImageRef:   ref,
		Amount:     req.Amount,
		BillDate:   req.BillDate,
		BillTime:   req.BillTime,
		Shop:       req.Shop,
		UploadedAt: time.Now().UTC(),
	}
	if err := h.receipts.Create(receipt); err != nil {
		h.logger.Error("Failed to store receipt record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store receipt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "id": receipt.ID})
}

// Stats returns aggregated monthly spending as a map of YYYY-MM to total.
func (h *Handlers) Stats(c *gin.Context) {
	userID := c.GetInt64(userIDKey)

	receipts, err := h.receipts.ListAll(userID)
	if err != nil {
		h.logger.Error("Failed to load receipts for stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats.MonthlyTotals(receipts)})
}

// StatsExport returns the monthly spending totals as an Excel workbook.
func (h *Handlers) StatsExport(c *gin.Context) {
	userID := c.GetInt64(userIDKey)

	receipts, err := h.receipts.ListAll(userID)
	if err != nil {
		h.logger.Error("Failed to load receipts for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	workbook, err := h.exporter.Export(stats.MonthlyTotals(receipts))
	if err != nil {
		h.logger.Error("Failed to export stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export stats"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="monthly_spending.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

// MonthlyReport generates the PDF report for one calendar month and streams
// it back. Month keys that are not exactly YYYY-MM are rejected here; a
// well-formed month with no receipts still yields a (one-page) document.
func (h *Handlers) MonthlyReport(c *gin.Context) {
	userID := c.GetInt64(userIDKey)

	month, err := report.ParseMonthKey(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.composer.Compose(c.Request.Context(), userID, month)
	if err != nil {
		h.logger.Error("Failed to compose report",
			zap.Int64("user_id", userID),
			zap.String("month", month.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate report"})
		return
	}

	handle, err := h.serializer.Publish(doc)
	if err != nil {
		h.logger.Error("Failed to publish report",
			zap.Int64("user_id", userID),
			zap.String("month", month.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", handle.Filename))
	c.Header("Content-Type", handle.ContentType)
	c.File(handle.Path)
}
