// internal/models/notification.go
package models

// NotificationRecord is the provider-neutral payload built from a domain
// record at dispatch time. It is never persisted.
type NotificationRecord struct {
	Title            string            `json:"title"`
	Body             string            `json:"body"`
	DestinationToken string            `json:"destinationToken"`
	ExtraData        map[string]string `json:"extraData,omitempty"`
}

// HasDestination reports whether the record can be addressed to a device.
func (n NotificationRecord) HasDestination() bool {
	return n.DestinationToken != ""
}
