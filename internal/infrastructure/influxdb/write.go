package influxdb

import (
	"net/netip"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/linkbeat/internal/intercore"
)

// Measurement names.
const (
	measurementLink      = "link_status"
	measurementAddress   = "link_address"
	measurementHeartbeat = "heartbeat_ack"
	measurementSession   = "mqtt_session"
)

// RecordStatus writes a link status transition.
func (c *Client) RecordStatus(s intercore.Status, at time.Time) {
	c.writePoint(statusPoint(c.deviceID, s, at))
}

// RecordAddress writes a newly announced address.
func (c *Client) RecordAddress(addr netip.Addr, at time.Time) {
	c.writePoint(addressPoint(c.deviceID, addr, at))
}

// RecordAck writes a heartbeat acknowledgment.
func (c *Client) RecordAck(ack intercore.PublishAck, at time.Time) {
	c.writePoint(ackPoint(c.deviceID, ack, at))
}

// RecordConnection writes the outcome of an MQTT connect attempt.
func (c *Client) RecordConnection(err error, at time.Time) {
	c.writePoint(connectionPoint(c.deviceID, err, at))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func statusPoint(deviceID string, s intercore.Status, at time.Time) *write.Point {
	return write.NewPoint(
		measurementLink,
		map[string]string{
			"device_id": deviceID,
			"status":    s.Code.String(),
		},
		map[string]interface{}{
			"code":    int64(s.Code),
			"attempt": int64(s.Attempt),
			"up":      s.Code == intercore.StatusUp,
		},
		at,
	)
}

func addressPoint(deviceID string, addr netip.Addr, at time.Time) *write.Point {
	return write.NewPoint(
		measurementAddress,
		map[string]string{"device_id": deviceID},
		map[string]interface{}{"address": addr.String()},
		at,
	)
}

func ackPoint(deviceID string, ack intercore.PublishAck, at time.Time) *write.Point {
	return write.NewPoint(
		measurementHeartbeat,
		map[string]string{"device_id": deviceID},
		map[string]interface{}{
			"ok":     ack.OK(),
			"status": int64(ack.Status),
		},
		at,
	)
}

func connectionPoint(deviceID string, err error, at time.Time) *write.Point {
	fields := map[string]interface{}{"connected": err == nil}
	if err != nil {
		fields["error"] = err.Error()
	}
	return write.NewPoint(
		measurementSession,
		map[string]string{"device_id": deviceID},
		fields,
		at,
	)
}
