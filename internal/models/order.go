// internal/models/order.go
package models

// OrderNotificationRequest is written by the order flow and removed by the
// notifier once its push has been sent.
type OrderNotificationRequest struct {
	ID          string `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	DeviceToken string `json:"deviceToken" db:"device_token"`
}

func (o OrderNotificationRequest) Notification() NotificationRecord {
	return NotificationRecord{
		Title:            o.Title,
		Body:             o.Description,
		DestinationToken: o.DeviceToken,
	}
}
