// internal/store/schema.go
package store

import (
	"fmt"
	"strings"
)

var tableStatements = []string{
	`CREATE TABLE IF NOT EXISTS order_notifications (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		device_token TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointment_reminders (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		device_token TEXT NOT NULL DEFAULT '',
		booked_date  BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointment_reminders_booked_date
		ON appointment_reminders (booked_date)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id           TEXT PRIMARY KEY,
		status       INTEGER NOT NULL DEFAULT 0,
		device_token TEXT NOT NULL DEFAULT '',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type column struct {
	name string
	key  string // JSON key in the change event
}

type changeTrigger struct {
	table      string
	collection string
	columns    []column
}

var changeTriggers = []changeTrigger{
	{
		table:      "order_notifications",
		collection: CollectionOrderNotifications,
		columns: []column{
			{"id", "id"}, {"title", "title"}, {"description", "description"}, {"device_token", "deviceToken"},
		},
	},
	{
		table:      "appointment_reminders",
		collection: CollectionAppointmentReminders,
		columns: []column{
			{"id", "id"}, {"title", "title"}, {"description", "description"}, {"device_token", "deviceToken"}, {"booked_date", "bookedDate"},
		},
	},
	{
		table:      "appointments",
		collection: CollectionAppointments,
		columns: []column{
			{"id", "id"}, {"status", "status"}, {"device_token", "deviceToken"},
		},
	},
}

func (t changeTrigger) jsonObject(row string) string {
	parts := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		parts = append(parts, fmt.Sprintf("'%s', %s.%s", c.key, row, c.name))
	}
	return "json_build_object(" + strings.Join(parts, ", ") + ")"
}

func (t changeTrigger) functionName() string {
	return "notify_" + t.table + "_change"
}

func (t changeTrigger) statements(channel string) []string {
	fn := fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
DECLARE
	before_row JSON;
	after_row  JSON;
	record_id  TEXT;
	change     TEXT;
BEGIN
	IF TG_OP = 'INSERT' THEN
		change := 'create';
	ELSIF TG_OP = 'UPDATE' THEN
		change := 'update';
	ELSE
		change := 'delete';
	END IF;
	IF TG_OP <> 'INSERT' THEN
		before_row := %s;
		record_id := OLD.id;
	END IF;
	IF TG_OP <> 'DELETE' THEN
		after_row := %s;
		record_id := NEW.id;
	END IF;
	PERFORM pg_notify('%s', json_build_object(
		'collection', '%s',
		'kind', change,
		'id', record_id,
		'before', before_row,
		'after', after_row
	)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`, t.functionName(), t.jsonObject("OLD"), t.jsonObject("NEW"), channel, t.collection)

	trigger := t.table + "_change_notify"
	return []string{
		fn,
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trigger, t.table),
		fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s
	FOR EACH ROW EXECUTE FUNCTION %s()`, trigger, t.table, t.functionName()),
	}
}

// SchemaStatements returns the DDL for the record tables followed by the
// per-table change triggers publishing on channel.
func SchemaStatements(channel string) []string {
	stmts := append([]string{}, tableStatements...)
	for _, t := range changeTriggers {
		stmts = append(stmts, t.statements(channel)...)
	}
	return stmts
}
