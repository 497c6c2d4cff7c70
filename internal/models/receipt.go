package models

import "time"

// Receipt represents one stored purchase receipt: the photographed image
// reference plus user-supplied metadata. Immutable once uploaded; the report
// engine only ever reads these.
type Receipt struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ImageRef   string    `json:"image_ref"` // filename within the image store
	Amount     float64   `json:"amount"`
	BillDate   string    `json:"bill_date"` // YYYY-MM-DD
	BillTime   string    `json:"bill_time"` // HH:MM
	Shop       string    `json:"shop"`
	UploadedAt time.Time `json:"uploaded_at"`
}
