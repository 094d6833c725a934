package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/config"
	"github.com/sells-group/rumoo/internal/model"
)

type mockChannel struct{ mock.Mock }

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestPublishCertificateReady(t *testing.T) {
	ch := &mockChannel{}
	ch.On("ExchangeDeclare", "rumoo.certificates", "topic", true, false, false, false, amqp.Table(nil)).Return(nil)

	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := model.CertificateReady{
		CertificateID: "cert-1",
		PropertyID:    "prop-1",
		Tier:          model.TierNormal,
		Version:       model.CertificateVersion,
		CompletedAt:   completed,
	}
	ch.On("PublishWithContext", mock.Anything, "rumoo.certificates", "certificate.ready", false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var got model.CertificateReady
			if err := json.Unmarshal(msg.Body, &got); err != nil {
				return false
			}
			return msg.ContentType == "application/json" &&
				msg.DeliveryMode == amqp.Persistent &&
				msg.Type == TypeCertificateReady &&
				msg.MessageId != "" &&
				got.CertificateID == "cert-1" &&
				got.CompletedAt.Equal(completed)
		})).Return(nil)

	p, err := NewPublisher(ch, "rumoo.certificates", "")
	require.NoError(t, err)
	require.NoError(t, p.PublishCertificateReady(context.Background(), ev))
	ch.AssertExpectations(t)
}

func TestPublishCertificateReady_Error(t *testing.T) {
	ch := &mockChannel{}
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("channel closed"))

	p, err := NewPublisher(ch, "rumoo.certificates", "certificate.ready")
	require.NoError(t, err)
	err = p.PublishCertificateReady(context.Background(), model.CertificateReady{CertificateID: "cert-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestNewPublisher_DeclareFails(t *testing.T) {
	ch := &mockChannel{}
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("access refused"))
	ch.On("Close").Return(nil)

	_, err := NewPublisher(ch, "rumoo.certificates", "")
	require.Error(t, err)
	ch.AssertCalled(t, "Close")

	_, err = NewPublisher(&mockChannel{}, "", "")
	assert.Error(t, err)
}

func TestDial_Unconfigured(t *testing.T) {
	p, err := Dial(config.RabbitMQConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)
}
