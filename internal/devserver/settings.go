package devserver

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// DefaultHost is the loopback interface used when no host override is provided.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the default TCP port for the dev server.
	DefaultPort = 8787
	// DefaultPageSize matches the backend's live report page size.
	DefaultPageSize = 10
	// DefaultRecapPageSize leaves room for the podium on page one.
	DefaultRecapPageSize = 8
	// DefaultMaxBodyBytes limits uploads to 5 MB.
	DefaultMaxBodyBytes int64 = 5 << 20
	// DefaultLoginRate is the number of sign-in attempts allowed per IP per minute.
	DefaultLoginRate = 20
	// DefaultReadTimeout guards hung clients.
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds handler writes.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second
)

// Settings captures runtime configuration for the dev server.
type Settings struct {
	Host          string
	Port          int
	PageSize      int
	RecapPageSize int
	MaxBodyBytes  int64
	LoginRate     int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

type envSettings struct {
	Host      string `envconfig:"HOST"`
	Port      int    `envconfig:"PORT"`
	PageSize  int    `envconfig:"PAGE_SIZE"`
	LoginRate int    `envconfig:"LOGIN_RATE"`
}

// DefaultSettings returns settings with BOOSTIFY_DEV_* environment overrides applied.
func DefaultSettings() Settings {
	settings := Settings{
		Host:          DefaultHost,
		Port:          DefaultPort,
		PageSize:      DefaultPageSize,
		RecapPageSize: DefaultRecapPageSize,
		MaxBodyBytes:  DefaultMaxBodyBytes,
		LoginRate:     DefaultLoginRate,
		ReadTimeout:   DefaultReadTimeout,
		WriteTimeout:  DefaultWriteTimeout,
		IdleTimeout:   DefaultIdleTimeout,
	}
	settings.applyEnvOverrides()
	settings.normalize()
	return settings
}

func (s *Settings) applyEnvOverrides() {
	var env envSettings
	if err := envconfig.Process("boostify_dev", &env); err != nil {
		return
	}
	if host := strings.TrimSpace(env.Host); host != "" {
		s.Host = host
	}
	if isValidPort(env.Port) {
		s.Port = env.Port
	}
	if env.PageSize > 0 {
		s.PageSize = env.PageSize
	}
	if env.LoginRate > 0 {
		s.LoginRate = env.LoginRate
	}
}

func (s *Settings) normalize() {
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port != 0 && !isValidPort(s.Port) {
		s.Port = DefaultPort
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	if s.RecapPageSize <= 0 {
		s.RecapPageSize = DefaultRecapPageSize
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.LoginRate <= 0 {
		s.LoginRate = DefaultLoginRate
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}
