package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func TestNewPublisher_NoURLIsNoop(t *testing.T) {
	p, err := NewPublisher(config.EventSettings{})

	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
}

func TestPublishEvent_LogsFailures(t *testing.T) {
	p := new(MockPublisher)
	SetPublisher(p)

	p.On("Publish", mock.Anything, EventAccountIssued, mock.Anything).Return(errors.New("broker gone")).Once()
	p.On("Close").Return(nil).Once()

	assert.NotPanics(t, func() {
		PublishEvent(context.Background(), EventAccountIssued, map[string]uint{"user_id": 1})
	})

	require.NoError(t, ClosePublisher())
	p.AssertExpectations(t)
}
