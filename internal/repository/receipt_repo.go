package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"receiptvault/internal/models"
	"receiptvault/internal/report"
)

// ReceiptRepository handles receipt database operations
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new receipt record
func (r *ReceiptRepository) Create(receipt *models.Receipt) error {
	query := `
		INSERT INTO receipts (user_id, image_ref, amount, bill_date, bill_time, shop, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		receipt.UserID,
		receipt.ImageRef,
		receipt.Amount,
		receipt.BillDate,
		receipt.BillTime,
		receipt.Shop,
		receipt.UploadedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create receipt", zap.Error(err))
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	receipt.ID = id
	return nil
}

// ListForMonth returns all receipts of one user whose bill date falls in the
// given month, ordered by bill date with the record id as stable tie-break.
// The month key is matched as a left-anchored prefix of the stored date.
func (r *ReceiptRepository) ListForMonth(userID int64, month report.MonthKey) ([]models.Receipt, error) {
	query := `
		SELECT id, user_id, image_ref, amount, bill_date, bill_time, shop, uploaded_at
		FROM receipts
		WHERE user_id = ? AND bill_date LIKE ?
		ORDER BY bill_date, id
	`

	rows, err := r.db.Query(query, userID, string(month)+"%")
	if err != nil {
		r.logger.Error("Failed to list receipts for month",
			zap.Int64("user_id", userID),
			zap.String("month", month.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

// ListAll returns every receipt of one user, ordered by bill date.
func (r *ReceiptRepository) ListAll(userID int64) ([]models.Receipt, error) {
	query := `
		SELECT id, user_id, image_ref, amount, bill_date, bill_time, shop, uploaded_at
		FROM receipts
		WHERE user_id = ?
		ORDER BY bill_date, id
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("Failed to list receipts", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

func scanReceipts(rows *sql.Rows) ([]models.Receipt, error) {
	var receipts []models.Receipt
	for rows.Next() {
		var receipt models.Receipt
		err := rows.Scan(
			&receipt.ID,
			&receipt.UserID,
			&receipt.ImageRef,
			&receipt.Amount,
			&receipt.BillDate,
			&receipt.BillTime,
			&receipt.Shop,
			&receipt.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}
