package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/yeremiapane/qrdine/utils"
)

// CodeSender mengirim kode verifikasi ke customer lewat kolaborator eksternal
// (gateway SMS/WhatsApp yang mengkonsumsi queue).
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string, ttl time.Duration) error
}

// AMQPCodeSender mem-publish permintaan kirim kode ke exchange notifikasi;
// worker gateway di sisi lain yang benar-benar mengirim SMS/WhatsApp.
type AMQPCodeSender struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

const codeRoutingKey = "verification.code"

func NewAMQPCodeSender(amqpURL, exchange string) (*AMQPCodeSender, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %v", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %v", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %v", err)
	}

	return &AMQPCodeSender{conn: conn, channel: channel, exchange: exchange}, nil
}

var _ CodeSender = (*AMQPCodeSender)(nil)

func (s *AMQPCodeSender) SendCode(_ context.Context, phone, code string, ttl time.Duration) error {
	body, err := json.Marshal(map[string]interface{}{
		"phone":      phone,
		"code":       code,
		"expires_in": int(ttl.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %v", err)
	}

	err = s.channel.Publish(
		s.exchange,
		codeRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %v", err)
	}
	return nil
}

func (s *AMQPCodeSender) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// LogCodeSender -> fallback development: surface kode lewat log operator
// saat tidak ada gateway yang dikonfigurasi.
type LogCodeSender struct{}

var _ CodeSender = (*LogCodeSender)(nil)

func (LogCodeSender) SendCode(_ context.Context, phone, code string, ttl time.Duration) error {
	utils.InfoLogger.Printf("[dev] verification code for %s: %s (valid %s)", phone, code, ttl)
	return nil
}
