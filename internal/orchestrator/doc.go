// Package orchestrator runs the consumer side of the channel.
//
// The Orchestrator owns the network state (the last announced address and
// whether the MQTT session was started) and is the only goroutine that
// touches it. Each tick it:
//
//  1. polls one word from the channel, handling address announcements at
//     once and queueing every other message,
//  2. dispatches at most one queued message to the status presenter,
//  3. starts the MQTT session once an address is known,
//  4. publishes the heartbeat when it is due.
//
// Other goroutines observe it only through Snapshot.
package orchestrator
