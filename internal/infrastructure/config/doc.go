// Package config handles loading and validating linkbeat configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading secrets from an optional .env file
//   - Overriding with LINKBEAT_* environment variables
//   - Validation of required fields and retry bounds
//
// Security Considerations:
//   - The Wi-Fi passphrase and broker credentials should be set via
//     environment variables or .env, not committed in config.yaml
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.WiFi.SSID)
package config
