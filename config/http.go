package config

import "time"

const bytesPerMB = 1 << 20

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"ADDR" envDefault:":8080"`

	// MaxConns caps concurrently accepted connections; 0 disables the cap.
	MaxConns int `env:"MAX_CONNS" envDefault:"256"`

	// MaxUploadMB bounds the size of one multipart job submission.
	MaxUploadMB int `env:"MAX_UPLOAD_MB" envDefault:"512"`

	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	// WriteTimeout must leave room for archive downloads.
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"10m"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.MaxConns < 0 {
		h.MaxConns = 0
	}
	if h.MaxUploadMB < 1 {
		h.MaxUploadMB = 1
	}
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 30 * time.Second
	}
}

// MaxUploadBytes returns the upload limit in bytes.
func (h *HTTPConfig) MaxUploadBytes() int64 {
	return int64(h.MaxUploadMB) * bytesPerMB
}
