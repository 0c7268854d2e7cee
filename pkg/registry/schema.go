// pkg/registry/schema.go
package registry

const (
	SourceChangeFeed = "change-feed"
	SourceSchedule   = "schedule"
)

// TriggerRegistry describes every notification trigger the service can run
// and the record event that starts each one.
type TriggerRegistry struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated"`
	Triggers    []Trigger `json:"triggers"`
}

type Trigger struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Source      string   `json:"source"`               // change-feed | schedule
	Collection  string   `json:"collection,omitempty"` // change-feed only
	Event       string   `json:"event,omitempty"`      // create | update | delete
	Schedule    string   `json:"schedule,omitempty"`   // human readable, schedule only
	Cleanup     bool     `json:"cleanup"`              // source record deleted after a successful send
	ErrorCodes  []string `json:"errorCodes"`
	Tags        []string `json:"tags"`
}
