package mqtt

import (
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// PublishAsync hands a message to paho and returns without waiting.
//
// Input validation and the connection check happen synchronously; when
// they fail the error is returned and done is never called. Otherwise done
// is called exactly once from another goroutine: with nil on completion,
// with an error wrapping ErrPublishFailed if paho reports one, or with
// ErrTimeout if no completion arrives within the publish timeout.
//
// QoS Levels:
//   - 0: At most once (fire and forget; completion means handed to the network)
//   - 1: At least once (completion means PUBACK received)
//   - 2: Exactly once
func (c *Client) PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error)) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	timeout := c.publishTimeout

	go func() {
		var err error
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-token.Done():
			if tokErr := token.Error(); tokErr != nil {
				err = fmt.Errorf("%w: %w", ErrPublishFailed, tokErr)
			}
		case <-timer.C:
			err = fmt.Errorf("%w: publish to %s after %v", ErrTimeout, topic, timeout)
			if logger := c.getLogger(); logger != nil {
				logger.Warn("publish completion timed out", "topic", topic, "timeout", timeout)
			}
		}

		if done != nil {
			done(err)
		}
	}()

	return nil
}

// Publish sends a message and waits for its completion.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	result := make(chan error, 1)
	if err := c.PublishAsync(topic, payload, qos, retained, func(err error) { result <- err }); err != nil {
		return err
	}
	return <-result
}
