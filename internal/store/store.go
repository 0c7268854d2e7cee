// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coachme-notifier/internal/models"
)

// Collection names used in change events. They mirror the record paths the
// mobile app writes to, not the table names.
const (
	CollectionOrderNotifications   = "orderNotifications"
	CollectionAppointmentReminders = "appointmentReminders"
	CollectionAppointments         = "appointments"
)

var ErrRecordNotFound = errors.New("record not found")

const (
	deleteOrderNotificationSQL = `DELETE FROM order_notifications WHERE id = $1`

	remindersBookedBetweenSQL = `
		SELECT id, title, description, device_token, booked_date
		FROM appointment_reminders
		WHERE booked_date >= $1 AND booked_date < $2
		ORDER BY booked_date, id`
)

// RecordStore is the Postgres-backed record store shared by every trigger.
type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// DeleteOrderNotification removes an order notification request by id.
// ErrRecordNotFound is returned when nothing was deleted.
func (s *RecordStore) DeleteOrderNotification(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, deleteOrderNotificationSQL, id)
	if err != nil {
		return fmt.Errorf("delete order notification %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order notification %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete order notification %s: %w", id, ErrRecordNotFound)
	}
	return nil
}

// RemindersBookedBetween returns reminders with start <= bookedDate < end.
// An empty window yields an empty slice and no error.
func (s *RecordStore) RemindersBookedBetween(ctx context.Context, start, end time.Time) ([]models.AppointmentReminder, error) {
	rows, err := s.db.QueryContext(ctx, remindersBookedBetweenSQL, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	reminders := []models.AppointmentReminder{}
	for rows.Next() {
		var r models.AppointmentReminder
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.DeviceToken, &r.BookedDate); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}
	return reminders, nil
}

// InitSchema creates the record tables and the change triggers that publish
// row changes on channel.
func (s *RecordStore) InitSchema(ctx context.Context, channel string) error {
	for _, stmt := range SchemaStatements(channel) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks the underlying connection.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
