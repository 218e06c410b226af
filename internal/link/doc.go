// Package link owns the wireless radio and keeps the station associated.
//
// A Manager runs the connection state machine on its own goroutine:
//
//	Down → Connecting → Up
//	          ↓  ↑
//	         Failed
//
// Every transition is reported to the display side over an intercore
// Handoff. A successful attempt is reported as an Up status immediately
// followed by the obtained IPv4 address, so the consumer can start the MQTT
// session without waiting behind queued status traffic.
//
// Connection attempts run in bounded bursts. The first burst after start
// allows more attempts and a longer per-attempt timeout than the bursts
// started after link loss. An exhausted burst is reported once as Failed
// with attempt 0, and the manager falls back to polling the link; the next
// poll that finds the link down starts a fresh burst.
//
// The radio itself sits behind the Radio interface. NMCLIRadio drives
// NetworkManager; SimRadio replays a scripted sequence of outcomes for
// development on machines without Wi-Fi.
package link
