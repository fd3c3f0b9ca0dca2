package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	pub, err := NewFromDriver(ctx, "", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, Discard{}, pub)

	_, err = NewFromDriver(ctx, "rabbitmq", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(ctx, DriverKafka, FactoryOptions{})
	assert.ErrorIs(t, err, ErrKafkaBrokersRequired)

	_, err = NewFromDriver(ctx, DriverNATS, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = NewFromDriver(ctx, DriverNSQ, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNSQProducerAddrRequired)

	_, err = NewFromDriver(ctx, DriverGooglePubSub, FactoryOptions{})
	assert.ErrorIs(t, err, ErrPubSubProjectIDRequired)
}

func TestDiscard(t *testing.T) {
	res, err := Discard{}.Publish(context.Background(), "twofactor.totp.enabled", OutgoingMessage{Body: []byte("{}")})
	require.NoError(t, err)
	assert.Equal(t, "twofactor.totp.enabled", res.Topic)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Discard{}.Publish(ctx, "x", OutgoingMessage{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKafkaPublishValidation(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	require.NoError(t, err)

	_, err = k.Publish(context.Background(), "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrKafkaTopicRequired)

	require.NoError(t, k.Close())
	require.NoError(t, k.Close())

	_, err = k.Publish(context.Background(), "t", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestNSQPublishAfterClose(t *testing.T) {
	n, err := NewNSQ(NSQConfig{ProducerAddr: "127.0.0.1:4150"})
	require.NoError(t, err)
	require.NoError(t, n.Close())

	_, err = n.Publish(context.Background(), "t", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestHeaderMap(t *testing.T) {
	assert.Nil(t, headerMap(nil))
	assert.Equal(t, map[string]string{"cID": "abc"}, headerMap([]Header{{Key: "cID", Value: "abc"}, {Key: "", Value: "x"}}))
}
