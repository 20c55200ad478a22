package mq

import (
	"testing"

	"github.com/gatherly/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestTableToHeaders(t *testing.T) {
	assert.Nil(t, tableToHeaders(nil))
	assert.Nil(t, tableToHeaders(amqp.Table{}))

	headers := tableToHeaders(amqp.Table{
		"kind":    "mail",
		"raw":     []byte("bytes"),
		"retries": int32(3),
	})
	assert.Equal(t, map[string]string{
		"kind":    "mail",
		"raw":     "bytes",
		"retries": "3",
	}, headers)
}

func TestNewMessageID(t *testing.T) {
	first := newMessageID()
	second := newMessageID()

	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}

func TestNewRabbitMQBrokerRequiresURL(t *testing.T) {
	_, err := NewRabbitMQBroker(config.RabbitMQConfig{})
	assert.Error(t, err)
}
