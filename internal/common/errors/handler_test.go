package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type stubGateway struct {
	pb.GatewayClient
	failed []*pb.FailJobRequest
	thrown []*pb.ThrowErrorRequest
}

func (g *stubGateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, nil
}

func (g *stubGateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

type MockJobClient struct {
	NewCompleteJobCommandFunc func() commands.CompleteJobCommandStep1
	NewFailJobCommandFunc     func() commands.FailJobCommandStep1
	NewThrowErrorCommandFunc  func() commands.ThrowErrorCommandStep1
}

func (m *MockJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return m.NewCompleteJobCommandFunc()
}

func (m *MockJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return m.NewFailJobCommandFunc()
}

func (m *MockJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return m.NewThrowErrorCommandFunc()
}

func newMockJobClient(g *stubGateway) *MockJobClient {
	noRetry := func(context.Context, error) bool { return false }
	return &MockJobClient{
		NewFailJobCommandFunc:    func() commands.FailJobCommandStep1 { return commands.NewFailJobCommand(g, noRetry) },
		NewThrowErrorCommandFunc: func() commands.ThrowErrorCommandStep1 { return commands.NewThrowErrorCommand(g, noRetry) },
	}
}

type capturingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *capturingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func testJob(retries int32) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:     99,
		Type:    "appointment-reminder-sweep",
		Retries: retries,
	}}
}

func TestRemainingRetriesTable(t *testing.T) {
	tests := []struct {
		name       string
		err        *StandardError
		jobRetries int32
		want       int32
	}{
		{"retryable within budget", NewQueryFailedError("q", stderrors.New("x")), 3, 2},
		{"retryable capped by budget", NewQueryFailedError("q", stderrors.New("x")), 10, 3},
		{"last attempt", NewQueryFailedError("q", stderrors.New("x")), 1, 0},
		{"not retryable", NewPayloadInvalidError("bad"), 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingRetries(tt.err, tt.jobRetries))
		})
	}
}

func TestErrorHandler_HandleJobError_FailsRetryableJob(t *testing.T) {
	gateway := &stubGateway{}
	log := &capturingLogger{}
	h := NewErrorHandler(log)

	h.HandleJobError(context.Background(), newMockJobClient(gateway), testJob(3),
		NewQueryFailedError("reminders", stderrors.New("connection refused")))

	assert.Empty(t, gateway.thrown)
	require.Len(t, gateway.failed, 1)
	assert.Equal(t, int64(99), gateway.failed[0].JobKey)
	assert.Equal(t, int32(2), gateway.failed[0].Retries)
	assert.Contains(t, gateway.failed[0].ErrorMessage, "QUERY_FAILED")

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(gateway.failed[0].Variables), &vars))
	assert.Equal(t, "QUERY_FAILED", vars["errorCode"])
	assert.Equal(t, true, vars["retryable"])

	require.Len(t, log.messages, 1)
	assert.Equal(t, "job failed", log.messages[0])
	assert.Equal(t, "QUERY_FAILED", log.fields[0]["errorCode"])
}

func TestErrorHandler_HandleJobError_ThrowsNonRetryable(t *testing.T) {
	gateway := &stubGateway{}
	h := NewErrorHandler(&capturingLogger{})

	h.HandleJobError(context.Background(), newMockJobClient(gateway), testJob(3),
		stderrors.New("unexpected"))

	assert.Empty(t, gateway.failed)
	require.Len(t, gateway.thrown, 1)
	assert.Equal(t, int64(99), gateway.thrown[0].JobKey)
	assert.Equal(t, string(ErrCodeInternal), gateway.thrown[0].ErrorCode)
}
