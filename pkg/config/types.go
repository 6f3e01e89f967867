package config

import (
	"time"
)

// Duration is a time.Duration that reads and writes strings like "16ms".
type Duration time.Duration

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the complete wsbridge configuration.
type Config struct {
	WebSocket WebSocketConfig `json:"websocket" yaml:"websocket" envPrefix:"WS_"`
	HTTP      HTTPConfig      `json:"http" yaml:"http" envPrefix:"HTTP_"`
	Codec     CodecConfig     `json:"codec" yaml:"codec" envPrefix:"CODEC_"`
	Log       LogConfig       `json:"log" yaml:"log" envPrefix:"LOG_"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" envPrefix:"METRICS_"`
}

// WebSocketConfig configures the WebSocket server and its transport.
type WebSocketConfig struct {
	Port           int      `json:"port" yaml:"port" env:"PORT"`
	Host           string   `json:"host,omitempty" yaml:"host,omitempty" env:"HOST"`
	TickInterval   Duration `json:"tickInterval" yaml:"tickInterval" env:"TICK_INTERVAL"`
	MaxEvents      int      `json:"maxEvents" yaml:"maxEvents" env:"MAX_EVENTS"`
	MaxConnections int      `json:"maxConnections" yaml:"maxConnections" env:"MAX_CONNECTIONS"`
	ErrorPolicy    string   `json:"errorPolicy" yaml:"errorPolicy" env:"ERROR_POLICY"`
	TextFrames     bool     `json:"textFrames,omitempty" yaml:"textFrames,omitempty" env:"TEXT_FRAMES"`
}

// HTTPConfig configures the HTTP route table.
type HTTPConfig struct {
	Port        int    `json:"port" yaml:"port" env:"PORT"`
	BindAddress string `json:"bindAddress" yaml:"bindAddress" env:"BIND_ADDRESS"`
	Serialize   bool   `json:"serialize" yaml:"serialize" env:"SERIALIZE"`
}

// CodecConfig configures text conversion.
type CodecConfig struct {
	LegacyCodePage string `json:"legacyCodePage" yaml:"legacyCodePage" env:"LEGACY_CODE_PAGE"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"LEVEL"`
	Format string `json:"format" yaml:"format" env:"FORMAT"`
	// File, if set, also receives every record as JSON.
	File string `json:"file,omitempty" yaml:"file,omitempty" env:"FILE"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	Path    string `json:"path" yaml:"path" env:"PATH"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WebSocket: WebSocketConfig{
			Port:         8080,
			TickInterval: Duration(16 * time.Millisecond),
			MaxEvents:    256,
			ErrorPolicy:  "observe",
		},
		HTTP: HTTPConfig{
			Port:        8001,
			BindAddress: "any",
		},
		Codec: CodecConfig{
			LegacyCodePage: "windows-1252",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
