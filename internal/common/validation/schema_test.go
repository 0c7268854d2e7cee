package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		schema    string
		doc       string
		valid     bool
		errorOn   string
		errorCode string
	}{
		{
			name:   "order ok",
			schema: SchemaOrderNotification,
			doc:    `{"id":"o1","title":"Order Confirmed","description":"Your order is on its way","deviceToken":"tok-A"}`,
			valid:  true,
		},
		{
			name:   "order without token is still valid",
			schema: SchemaOrderNotification,
			doc:    `{"title":"Order Confirmed","description":"Your order is on its way"}`,
			valid:  true,
		},
		{
			name:      "order missing description",
			schema:    SchemaOrderNotification,
			doc:       `{"title":"Order Confirmed","deviceToken":"tok-A"}`,
			errorCode: "REQUIRED",
		},
		{
			name:   "reminder ok",
			schema: SchemaAppointmentReminder,
			doc:    `{"title":"t","description":"d","deviceToken":"x","bookedDate":1710054000000}`,
			valid:  true,
		},
		{
			name:      "reminder with string date",
			schema:    SchemaAppointmentReminder,
			doc:       `{"bookedDate":"2024-03-10"}`,
			errorOn:   "bookedDate",
			errorCode: "INVALID_TYPE",
		},
		{
			name:   "appointment ok",
			schema: SchemaAppointment,
			doc:    `{"status":4,"deviceToken":"tok"}`,
			valid:  true,
		},
		{
			name:      "appointment with fractional status",
			schema:    SchemaAppointment,
			doc:       `{"status":4.5}`,
			errorOn:   "status",
			errorCode: "INVALID_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(tt.schema, []byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
			if !tt.valid {
				if tt.errorOn != "" {
					assert.True(t, res.HasErrors(tt.errorOn), res.GetErrorMessages())
				}
				assert.Equal(t, tt.errorCode, res.Errors[0].Code)
			}
		})
	}
}

func TestValidator_UnknownSchema(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	_, err = v.Validate("payments", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown schema")
}

func TestValidator_MalformedDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	_, err = v.Validate(SchemaAppointment, []byte(`{"status":`))
	assert.Error(t, err)
}

func TestValidator_RegisterRejectsBadSchema(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.Error(t, v.Register("broken", `{"type": 12}`))
}
