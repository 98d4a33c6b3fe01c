package exportserver

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/rating-desk/internal/config"
)

// DefaultFileName is the attachment name offered to browsers.
const DefaultFileName = "data_store.json"

// The artifact is small and written in one go; these only bound stuck clients.
const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Settings configures the download server. Enablement and the bind address
// come from config.ServerConfig, which has already applied defaults, the
// RATER_SERVER_* overrides and port validation.
type Settings struct {
	Enabled      bool
	Host         string
	Port         int
	FileName     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SettingsFromConfig lifts the server section of the project config. A nil
// config yields a disabled server on the default loopback address.
func SettingsFromConfig(cfg *config.Config) Settings {
	server := config.ServerConfig{Host: config.DefaultServerHost, Port: config.DefaultServerPort}
	if cfg != nil {
		server = cfg.Project.Server
	}
	return Settings{
		Enabled: server.IsEnabled(),
		Host:    server.Host,
		Port:    server.Port,
	}.withDownloadDefaults()
}

// withDownloadDefaults fills the attachment name and timeouts. Host and port
// are left alone: port 0 asks the kernel for a free one.
func (s Settings) withDownloadDefaults() Settings {
	if strings.TrimSpace(s.FileName) == "" {
		s.FileName = DefaultFileName
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = defaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = defaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = defaultIdleTimeout
	}
	return s
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the configured address.
func (s Settings) URL() string {
	return "http://" + s.Address()
}
