// internal/workers/order/order-notification/models.go
package ordernotification

import (
	"context"

	"coachme-notifier/internal/models"
)

// Input is the newly created order notification request.
type Input = models.OrderNotificationRequest

// RecordStore deletes the request once its push has been sent.
type RecordStore interface {
	DeleteOrderNotification(ctx context.Context, id string) error
}
