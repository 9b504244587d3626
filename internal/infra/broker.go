package infra

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewRabbitConnection dials the AMQP broker used for outbound SMS jobs.
func NewRabbitConnection(url string) (*amqp.Connection, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}
