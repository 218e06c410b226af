// Package influxdb records link and heartbeat telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. The Client satisfies
// the orchestrator's Recorder, so every dispatched channel message becomes a
// point:
//
//   - link_status: status code, attempt and an up flag, tagged by status
//   - link_address: the announced IPv4 address
//   - heartbeat_ack: publish outcome
//   - mqtt_session: advisory connect outcomes
//
// All points carry a device_id tag.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Device.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	orch.SetRecorder(client)
//
// # Error Handling
//
// Writes are non-blocking and batched; failures arrive through SetOnError.
// Connection and health check errors are returned directly.
package influxdb
