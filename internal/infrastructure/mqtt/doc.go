// Package mqtt provides MQTT client connectivity for linkbeat.
//
// This package manages:
//   - Asynchronous connection to the broker with connect retry and auto-reconnect
//   - Asynchronous publishing with a per-publish completion callback
//   - Connection health reporting
//
// linkbeat publishes a single heartbeat topic and never subscribes. Every
// accepted publish reports its outcome exactly once through the callback
// passed to PublishAsync, including when paho never completes the token.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for brokers outside the local network
//   - Credentials should come from LINKBEAT_MQTT_USERNAME/PASSWORD
//
// # Usage
//
//	client, err := mqtt.New(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.ConnectAsync(func(err error) { log.Println("connect:", err) })
//
//	client.PublishAsync("linkbeat/heartbeat", []byte("ping"), 0, false,
//	    func(err error) { log.Println("published:", err) })
package mqtt
