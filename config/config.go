// Package config defines the server configuration and loads it from
// defaults, a YAML file, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration for respkv-server.
type Config struct {
	Server      ServerSection      `koanf:"server"`
	Replication ReplicationSection `koanf:"replication"`
	Log         LogSection         `koanf:"log"`
	Metrics     MetricsSection     `koanf:"metrics"`
}

// ServerSection configures the client listener.
type ServerSection struct {
	Bind string `koanf:"bind"`
	Port int    `koanf:"port"`
}

// ReplicationSection configures replica mode. An empty ReplicaOf runs
// the node as a primary.
type ReplicationSection struct {
	ReplicaOf      string        `koanf:"replicaof"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	MaxAttempts    int           `koanf:"max_attempts"`
	Backoff        time.Duration `koanf:"backoff"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection configures the Prometheus endpoint. An empty Addr
// disables it.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerSection{
			Bind: "127.0.0.1",
			Port: 6379,
		},
		Replication: ReplicationSection{
			ConnectTimeout: 5 * time.Second,
			MaxAttempts:    3,
			Backoff:        500 * time.Millisecond,
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultMap is Default flattened to koanf keys
func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"server.bind":                 d.Server.Bind,
		"server.port":                 d.Server.Port,
		"replication.replicaof":       d.Replication.ReplicaOf,
		"replication.connect_timeout": d.Replication.ConnectTimeout.String(),
		"replication.max_attempts":    d.Replication.MaxAttempts,
		"replication.backoff":         d.Replication.Backoff.String(),
		"log.level":                   d.Log.Level,
		"log.format":                  d.Log.Format,
		"metrics.addr":                d.Metrics.Addr,
	}
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Bind, strconv.Itoa(c.Server.Port))
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range 1-65535", ErrInvalid, c.Server.Port)
	}

	if c.Replication.ReplicaOf != "" {
		if _, err := ParseReplicaOf(c.Replication.ReplicaOf); err != nil {
			return err
		}
	}
	if c.Replication.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: replication.connect_timeout must be positive", ErrInvalid)
	}
	if c.Replication.MaxAttempts < 1 {
		return fmt.Errorf("%w: replication.max_attempts must be at least 1", ErrInvalid)
	}
	if c.Replication.Backoff < 0 {
		return fmt.Errorf("%w: replication.backoff must not be negative", ErrInvalid)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q is not text or json", ErrInvalid, c.Log.Format)
	}

	return nil
}

// ParseReplicaOf normalizes a primary address given as "host:port" or as
// "host port" to "host:port".
func ParseReplicaOf(s string) (string, error) {
	s = strings.TrimSpace(s)

	var host, port string
	if fields := strings.Fields(s); len(fields) == 2 {
		host, port = fields[0], fields[1]
	} else {
		var err error
		host, port, err = net.SplitHostPort(s)
		if err != nil {
			return "", fmt.Errorf("%w: replicaof %q: %v", ErrInvalid, s, err)
		}
	}

	if host == "" {
		return "", fmt.Errorf("%w: replicaof %q: missing host", ErrInvalid, s)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("%w: replicaof %q: invalid port", ErrInvalid, s)
	}

	return net.JoinHostPort(host, port), nil
}
