package options

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultURL is the server used when no URL or server list is supplied.
	DefaultURL = "nats://localhost:4222"
	// DefaultPort is the client port assumed for nats:// and tls:// servers without an explicit port.
	DefaultPort = "4222"

	DefaultMaxReconnect     = 60
	DefaultReconnectWait    = 2 * time.Second
	DefaultTimeout          = 2 * time.Second
	DefaultPingInterval     = 2 * time.Minute
	DefaultMaxPingsOut      = 2
	DefaultReconnectBufSize = 8 * 1024 * 1024
	DefaultSubChanLen       = 64 * 1024
	DefaultEncoder          = "json"
)

// Credentials carry the user-info extracted from a server URL or configured explicitly.
//
// Either Username/Password or Token is populated, never both.
type Credentials struct {
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c Credentials) Redacted() Credentials {
	out := Credentials{Username: c.Username}
	if c.Password != "" {
		out.Password = "xxxxx"
	}
	if c.Token != "" {
		out.Token = "xxxxx"
	}
	return out
}

// TLSSettings describe how the transport is wrapped when Secure is set.
type TLSSettings struct {
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
	CAFile             string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
	CertFile           string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile            string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	ServerName         string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// Options is the resolved configuration handed to a connection constructor.
type Options struct {
	// URL is the raw connection string the servers were resolved from.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Servers lists canonical scheme://host:port entries in priority order.
	Servers     []string     `json:"servers" yaml:"servers"`
	Credentials *Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Secure      bool         `json:"secure" yaml:"secure"`
	TLS         TLSSettings  `json:"tls,omitempty" yaml:"tls,omitempty"`

	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Verbose     bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Pedantic    bool   `json:"pedantic,omitempty" yaml:"pedantic,omitempty"`
	NoRandomize bool   `json:"no_randomize" yaml:"no_randomize"`

	AllowReconnect   bool          `json:"allow_reconnect" yaml:"allow_reconnect"`
	MaxReconnect     int           `json:"max_reconnect" yaml:"max_reconnect"`
	ReconnectWait    time.Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	PingInterval     time.Duration `json:"ping_interval" yaml:"ping_interval"`
	MaxPingsOut      int           `json:"max_pings_out" yaml:"max_pings_out"`
	ReconnectBufSize int           `json:"reconnect_buf_size" yaml:"reconnect_buf_size"`
	SubChanLen       int           `json:"sub_chan_len" yaml:"sub_chan_len"`

	// Encoder names the registered encoder used by encoded connections.
	Encoder string `json:"encoder" yaml:"encoder"`

	ClosedHandler       func()                          `json:"-" yaml:"-"`
	DisconnectedHandler func(err error)                 `json:"-" yaml:"-"`
	ReconnectedHandler  func(url string)                `json:"-" yaml:"-"`
	AsyncErrorHandler   func(subject string, err error) `json:"-" yaml:"-"`
}

// Default returns a new options value populated with the documented defaults.
//
// Every call allocates fresh slices so callers may mutate the result freely.
func Default() Options {
	return Options{
		URL:              DefaultURL,
		Servers:          []string{DefaultURL},
		NoRandomize:      true,
		AllowReconnect:   true,
		MaxReconnect:     DefaultMaxReconnect,
		ReconnectWait:    DefaultReconnectWait,
		Timeout:          DefaultTimeout,
		PingInterval:     DefaultPingInterval,
		MaxPingsOut:      DefaultMaxPingsOut,
		ReconnectBufSize: DefaultReconnectBufSize,
		SubChanLen:       DefaultSubChanLen,
		Encoder:          DefaultEncoder,
	}
}

// Clone returns a deep copy of the options. Callback hooks are shared.
func (o Options) Clone() Options {
	out := o
	if o.Servers != nil {
		out.Servers = append([]string(nil), o.Servers...)
	}
	if o.Credentials != nil {
		creds := *o.Credentials
		out.Credentials = &creds
	}
	return out
}

// ServerAddrs returns the host:port part of every configured server.
func (o Options) ServerAddrs() []string {
	addrs := make([]string, 0, len(o.Servers))
	for _, server := range o.Servers {
		u, err := url.Parse(server)
		if err != nil || u.Host == "" {
			addrs = append(addrs, server)
			continue
		}
		port := u.Port()
		if port == "" {
			port = defaultPortForScheme(u.Scheme)
		}
		addrs = append(addrs, net.JoinHostPort(u.Hostname(), port))
	}
	return addrs
}

// Validate checks the options for values no connection could be built from.
func (o Options) Validate() error {
	if len(o.Servers) == 0 {
		return configError(o.URL, "no servers configured", nil)
	}
	for i, server := range o.Servers {
		if server == "" {
			return configError(o.URL, "server "+strconv.Itoa(i)+" is empty", nil)
		}
	}
	switch {
	case o.Timeout < 0:
		return configError("timeout", "must not be negative", nil)
	case o.ReconnectWait < 0:
		return configError("reconnect_wait", "must not be negative", nil)
	case o.PingInterval < 0:
		return configError("ping_interval", "must not be negative", nil)
	case o.MaxReconnect < -1:
		return configError("max_reconnect", "must be -1 (unlimited) or greater", nil)
	case o.MaxPingsOut < 0:
		return configError("max_pings_out", "must not be negative", nil)
	case o.ReconnectBufSize < -1:
		return configError("reconnect_buf_size", "must be -1 (disabled) or greater", nil)
	case o.SubChanLen < 0:
		return configError("sub_chan_len", "must not be negative", nil)
	case o.Encoder == "":
		return configError("encoder", "encoder name is required", nil)
	}
	if (o.TLS.CertFile == "") != (o.TLS.KeyFile == "") {
		return configError("tls", "cert_file and key_file must be provided together", nil)
	}
	if o.Secure {
		if _, err := BuildTLSConfig(o.TLS); err != nil {
			return configError("tls", "invalid tls settings", err)
		}
	}
	return nil
}
