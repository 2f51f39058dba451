// Package broker publishes tick snapshots to an MQTT broker.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/models"
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends one JSON message per tick to <topic>/<run id>.
type MQTTPublisher struct {
	client  client
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTTPublisher connects to brokerURL (e.g. tcp://localhost:1883).
func NewMQTTPublisher(brokerURL, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	log.WithFields(log.Fields{
		"broker": brokerURL,
		"topic":  topic,
	}).Info("Connected to MQTT broker")
	return newPublisher(c, topic), nil
}

func newPublisher(c client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: c, topic: topic, qos: 0, timeout: 5 * time.Second}
}

// Topic returns the topic a run's snapshots are published on.
func (p *MQTTPublisher) Topic(runID string) string {
	return p.topic + "/" + runID
}

// Publish sends a snapshot and waits for the broker to accept it or ctx to end.
func (p *MQTTPublisher) Publish(ctx context.Context, telemetry models.TickTelemetry) error {
	payload, err := json.Marshal(telemetry)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	token := p.client.Publish(p.Topic(telemetry.RunID), p.qos, false, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects, allowing in-flight messages a short grace period.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
