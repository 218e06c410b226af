// Package session owns the MQTT session used for the heartbeat.
//
// A Controller starts the broker session once and publishes on request.
// Both operations return immediately; broker I/O and completion happen on
// the transport's own goroutines.
//
// Every call to Publish produces exactly one PublishAck on the intercore
// channel, whichever path it takes:
//
//   - not connected, or another publish still in flight: one failure ack,
//     sent before Publish returns (or handed to a goroutine if the channel
//     is momentarily full)
//   - rejected synchronously by the transport: one failure ack
//   - accepted: one ack from the completion callback, success or failure
//
// Accepted publishes carry a request id. A completion whose id does not
// match the publish in flight is logged and dropped, so a late or repeated
// callback can never produce a second ack.
package session
