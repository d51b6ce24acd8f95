package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/supportdesk/supportgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// requestLogRow is the request_logs table. Bodies are stored as the JSON
// text of the redacted values.
type requestLogRow struct {
	ID              string    `gorm:"primaryKey;size:36"`
	Timestamp       time.Time `gorm:"column:logged_at;index:idx_request_logs_user_ts,priority:2,sort:desc"`
	User            string    `gorm:"column:username;size:255;index:idx_request_logs_user_ts,priority:1"`
	Method          string    `gorm:"size:16"`
	Endpoint        string    `gorm:"type:text"`
	StatusCode      int
	DurationSeconds float64
	Details         string `gorm:"type:text"`
	RequestBody     string `gorm:"type:text"`
	ResponseBody    string `gorm:"type:text"`
}

func (requestLogRow) TableName() string { return "request_logs" }

type PostgresAuditRepo struct {
	db *gorm.DB
}

func NewPostgresAuditRepo(db *gorm.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, record *model.LogRecord) error {
	if record == nil {
		return nil
	}
	row := requestLogRow{
		ID:              record.ID,
		Timestamp:       record.Timestamp,
		User:            record.User,
		Method:          record.Method,
		Endpoint:        record.Path,
		StatusCode:      record.StatusCode,
		DurationSeconds: record.DurationSeconds,
		Details:         record.Details,
		RequestBody:     encodeBody(record.RequestBody),
		ResponseBody:    encodeBody(record.ResponseBody),
	}
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error)
}

func (r *PostgresAuditRepo) List(ctx context.Context, user string, limit int) ([]*model.LogRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Order("logged_at DESC").Limit(limit)
	if user != "" {
		query = query.Where("username = ?", user)
	}
	var rows []requestLogRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err)
	}

	records := make([]*model.LogRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &model.LogRecord{
			ID:              row.ID,
			Timestamp:       row.Timestamp.UTC(),
			User:            row.User,
			Method:          row.Method,
			Path:            row.Endpoint,
			StatusCode:      row.StatusCode,
			DurationSeconds: row.DurationSeconds,
			Details:         row.Details,
			RequestBody:     decodeBody(row.RequestBody),
			ResponseBody:    decodeBody(row.ResponseBody),
		})
	}
	return records, nil
}

func encodeBody(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func decodeBody(raw string) any {
	if raw == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
