package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/linkbeat/internal/infrastructure/config"
	"github.com/nerrad567/linkbeat/internal/intercore"
)

// newDecodeCmd decodes captured channel words, one message per line.
func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode WORD...",
		Short: "Decode channel words captured as hex",
		Long:  "Decodes a sequence of 32-bit channel words, given as hex with or without a 0x prefix, into messages.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := parseWords(args)
			if err != nil {
				return err
			}
			msgs, err := intercore.DecodeAll(words)
			for _, msg := range msgs {
				fmt.Fprintln(cmd.OutOrStdout(), describe(msg))
			}
			if err != nil {
				return fmt.Errorf("decoding words: %w", err)
			}
			return nil
		},
	}
}

// newCheckCmd loads and validates the configuration without starting anything.
func newCheckCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := resolveConfigPath(*cfgPath)
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			printSummary(cmd.OutOrStdout(), path, cfg)
			return nil
		},
	}
}

func parseWords(args []string) ([]intercore.Word, error) {
	words := make([]intercore.Word, 0, len(args))
	for _, arg := range args {
		s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(arg)), "0x")
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing word %q: %w", arg, err)
		}
		words = append(words, intercore.Word(v))
	}
	return words, nil
}

func describe(msg intercore.Message) string {
	switch m := msg.(type) {
	case intercore.Status:
		return fmt.Sprintf("status %s attempt=%d", m.Code, m.Attempt)
	case intercore.AddressAnnounce:
		return fmt.Sprintf("address %s", m.Addr)
	case intercore.PublishAck:
		if m.OK() {
			return "ack ok"
		}
		return fmt.Sprintf("ack failed status=%d", m.Status)
	default:
		return fmt.Sprintf("unknown %T", msg)
	}
}

func printSummary(w io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(w, "config:    %s\n", path)
	fmt.Fprintf(w, "device:    %s (%s)\n", cfg.Device.ID, cfg.Device.Name)
	fmt.Fprintf(w, "wifi:      %s via %s on %s\n", cfg.WiFi.SSID, cfg.WiFi.Backend, cfg.WiFi.Interface)
	fmt.Fprintf(w, "broker:    %s:%d\n", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	fmt.Fprintf(w, "heartbeat: %s every %s\n", cfg.MQTT.Topic, cfg.MQTT.Heartbeat.Interval)
	fmt.Fprintf(w, "api:       %t\n", cfg.API.Enabled)
	fmt.Fprintf(w, "influxdb:  %t\n", cfg.InfluxDB.Enabled)
}
