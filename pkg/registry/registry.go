// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*TriggerRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TriggerRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Default returns the built-in trigger set.
func Default() *TriggerRegistry {
	return &TriggerRegistry{
		Version:     "1.0.0",
		LastUpdated: "2024-05-01T00:00:00Z",
		Triggers: []Trigger{
			{
				Name:        "order-notification",
				DisplayName: "Order Notification",
				Description: "Sends the push for a newly created order notification request, then deletes the request",
				Source:      SourceChangeFeed,
				Collection:  "orderNotifications",
				Event:       "create",
				Cleanup:     true,
				ErrorCodes:  []string{"DELIVERY_FAILED", "MISSING_DESTINATION_TOKEN", "CLEANUP_FAILED", "PAYLOAD_INVALID"},
				Tags:        []string{"orders"},
			},
			{
				Name:        "appointment-reminder-sweep",
				DisplayName: "Appointment Reminder Sweep",
				Description: "Sends every appointment reminder booked on the current calendar day",
				Source:      SourceSchedule,
				Schedule:    "daily 06:00",
				ErrorCodes:  []string{"QUERY_FAILED", "DELIVERY_FAILED", "MISSING_DESTINATION_TOKEN"},
				Tags:        []string{"appointments", "scheduled"},
			},
			{
				Name:        "appointment-status",
				DisplayName: "Appointment Status",
				Description: "Sends fixed copy when an appointment moves to started (4) or finished (5)",
				Source:      SourceChangeFeed,
				Collection:  "appointments",
				Event:       "update",
				ErrorCodes:  []string{"DELIVERY_FAILED", "MISSING_DESTINATION_TOKEN", "PAYLOAD_INVALID"},
				Tags:        []string{"appointments"},
			},
		},
	}
}

// Validate checks names are unique and each trigger is fully described for
// its source.
func (r *TriggerRegistry) Validate() error {
	if len(r.Triggers) == 0 {
		return fmt.Errorf("registry contains no triggers")
	}

	names := make(map[string]bool, len(r.Triggers))
	for _, t := range r.Triggers {
		if t.Name == "" {
			return fmt.Errorf("trigger missing required field: name")
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate trigger name: %s", t.Name)
		}
		names[t.Name] = true

		switch t.Source {
		case SourceChangeFeed:
			if t.Collection == "" {
				return fmt.Errorf("trigger %s missing required field: collection", t.Name)
			}
			switch t.Event {
			case "create", "update", "delete":
			default:
				return fmt.Errorf("trigger %s has unknown event %q", t.Name, t.Event)
			}
		case SourceSchedule:
			if t.Collection != "" || t.Event != "" {
				return fmt.Errorf("scheduled trigger %s cannot name a collection or event", t.Name)
			}
		default:
			return fmt.Errorf("trigger %s has unknown source %q", t.Name, t.Source)
		}
	}
	return nil
}

// Lookup returns the trigger with the given name.
func (r *TriggerRegistry) Lookup(name string) (Trigger, bool) {
	for _, t := range r.Triggers {
		if t.Name == name {
			return t, true
		}
	}
	return Trigger{}, false
}

// ChangeFeedTriggers returns the triggers started by record events.
func (r *TriggerRegistry) ChangeFeedTriggers() []Trigger {
	var out []Trigger
	for _, t := range r.Triggers {
		if t.Source == SourceChangeFeed {
			out = append(out, t)
		}
	}
	return out
}
