// internal/models/appointment.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// AppointmentReminder is read by the daily sweep and never modified.
type AppointmentReminder struct {
	ID          string `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	DeviceToken string `json:"deviceToken" db:"device_token"`
	BookedDate  int64  `json:"bookedDate" db:"booked_date"` // epoch millis
}

// BookedAt returns BookedDate as a time in loc.
func (r AppointmentReminder) BookedAt(loc *time.Location) time.Time {
	return time.UnixMilli(r.BookedDate).In(loc)
}

func (r AppointmentReminder) Notification() NotificationRecord {
	return NotificationRecord{
		Title:            r.Title,
		Body:             r.Description,
		DestinationToken: r.DeviceToken,
	}
}

// AppointmentStatus is the raw integer status written by the trainer app.
type AppointmentStatus int

const (
	AppointmentStarted  AppointmentStatus = 4
	AppointmentFinished AppointmentStatus = 5
)

// StatusKind classifies a status into the values the notifier reacts to.
type StatusKind int

const (
	StatusOther StatusKind = iota
	StatusStarted
	StatusFinished
)

func (s AppointmentStatus) Kind() StatusKind {
	switch s {
	case AppointmentStarted:
		return StatusStarted
	case AppointmentFinished:
		return StatusFinished
	default:
		return StatusOther
	}
}

// UnmarshalJSON accepts the status as a number or a numeric string; older
// app builds wrote it as a string.
func (s *AppointmentStatus) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("appointment status %q is not numeric", str)
		}
		*s = AppointmentStatus(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = AppointmentStatus(n)
	return nil
}

func (s AppointmentStatus) String() string {
	return strconv.Itoa(int(s))
}

func (k StatusKind) String() string {
	switch k {
	case StatusStarted:
		return "started"
	case StatusFinished:
		return "finished"
	default:
		return "other"
	}
}

// Appointment is mutated externally; only Status and DeviceToken matter here.
type Appointment struct {
	ID          string            `json:"id" db:"id"`
	Status      AppointmentStatus `json:"status" db:"status"`
	DeviceToken string            `json:"deviceToken" db:"device_token"`
}
