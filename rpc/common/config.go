package common

import (
	"fmt"
	"github.com/BurntSushi/toml"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxRetryMax is the upper bound accepted for ClientConfig.RetryMax
	MaxRetryMax = 120

	DefaultTimeout        = 10 * time.Second
	DefaultRetryMax       = 3
	DefaultRetryInterval  = 5 * time.Second
	DefaultPollInterval   = 1 * time.Second
	DefaultMaxConcurrency = 1
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds OS level socket buffer settings (0 keeps the OS default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // negative keeps the OS default
}

// ClientTransportConfig bundles the socket settings applied to every client connection
type ClientTransportConfig struct {
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the configuration of a client pool and of the executors it creates
type ClientConfig struct {
	// Endpoints is the static set of "host:port" servers
	Endpoints []string
	// MaxConcurrency is the number of connections that may ever be created per endpoint
	MaxConcurrency int

	// Timeout bounds every socket operation unless overridden below
	Timeout time.Duration
	// ConnectTimeout bounds connection establishment (0 = Timeout)
	ConnectTimeout time.Duration
	// RecvTimeout bounds every read (0 = Timeout)
	RecvTimeout time.Duration

	// RetryMax is the number of connect attempts before giving up (0 disables retrying)
	RetryMax int
	// RetryInterval is the delay between two connect attempts
	RetryInterval time.Duration
	// RetryMaxInterval lets the delay grow up to this value (<= RetryInterval keeps it fixed)
	RetryMaxInterval time.Duration
	// RetryJitter randomizes the delay between attempts
	RetryJitter bool

	// PollInterval is how long the pool waits for an idle executor before trying to create one
	PollInterval time.Duration

	Transport ClientTransportConfig
}

// DefaultClientConfig returns a client configuration with all defaults applied
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxConcurrency: DefaultMaxConcurrency,
		Timeout:        DefaultTimeout,
		RetryMax:       DefaultRetryMax,
		RetryInterval:  DefaultRetryInterval,
		PollInterval:   DefaultPollInterval,
		Transport: ClientTransportConfig{
			TCPConf: TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}
}

// GetConnectTimeout returns the effective connect timeout
func (c *ClientConfig) GetConnectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return c.Timeout
}

// GetRecvTimeout returns the effective read timeout
func (c *ClientConfig) GetRecvTimeout() time.Duration {
	if c.RecvTimeout > 0 {
		return c.RecvTimeout
	}
	return c.Timeout
}

// GetPollInterval returns the effective idle poll interval
func (c *ClientConfig) GetPollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

// Validate checks the ranges of all numeric settings and the endpoint list
func (c *ClientConfig) Validate() error {
	endpoints, err := ParseEndpoints(c.Endpoints)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.RetryMax < 0 || c.RetryMax > MaxRetryMax {
		return fmt.Errorf("retry max must be in [0, %d], got %d", MaxRetryMax, c.RetryMax)
	}
	if c.RetryInterval < 0 {
		return fmt.Errorf("retry interval must not be negative, got %s", c.RetryInterval)
	}
	if c.Timeout < 0 || c.ConnectTimeout < 0 || c.RecvTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Max Concurrency", strconv.Itoa(c.MaxConcurrency))
	addField("Timeout", c.Timeout.String())
	addField("Connect Timeout", c.GetConnectTimeout().String())
	addField("Recv Timeout", c.GetRecvTimeout().String())
	addField("Poll Interval", c.GetPollInterval().String())

	addSection("Retry")
	addField("Retry Max", strconv.Itoa(c.RetryMax))
	addField("Retry Interval", c.RetryInterval.String())
	if c.RetryMaxInterval > c.RetryInterval {
		addField("Retry Max Interval", c.RetryMaxInterval.String())
	}
	addField("Retry Jitter", strconv.FormatBool(c.RetryJitter))

	addSection("Socket")
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Config file
// --------------------------------------------------------------------------

// clientConfigFile is the TOML layout of a client configuration file.
// Durations are given in (fractional) seconds.
type clientConfigFile struct {
	Endpoints        []string `toml:"endpoints"`
	MaxConcurrency   *int     `toml:"max_concurrency"`
	Timeout          *float64 `toml:"timeout"`
	ConnectTimeout   *float64 `toml:"connect_timeout"`
	RecvTimeout      *float64 `toml:"recv_timeout"`
	RetryMax         *int     `toml:"retry_max"`
	RetryInterval    *float64 `toml:"retry_interval"`
	RetryMaxInterval *float64 `toml:"retry_max_interval"`
	RetryJitter      *bool    `toml:"retry_jitter"`
	PollInterval     *float64 `toml:"poll_interval"`

	TCP struct {
		NoDelay      *bool `toml:"nodelay"`
		KeepAliveSec *int  `toml:"keepalive"`
		LingerSec    *int  `toml:"linger"`
		WriteBuffer  *int  `toml:"write_buffer"`
		ReadBuffer   *int  `toml:"read_buffer"`
	} `toml:"tcp"`
}

// Seconds converts fractional seconds into a duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadClientConfigFile overlays the values found in the TOML file at path onto conf.
// Keys missing from the file leave conf untouched.
func LoadClientConfigFile(path string, conf *ClientConfig) error {
	var f clientConfigFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if len(f.Endpoints) > 0 {
		conf.Endpoints = f.Endpoints
	}
	if f.MaxConcurrency != nil {
		conf.MaxConcurrency = *f.MaxConcurrency
	}
	if f.Timeout != nil {
		conf.Timeout = Seconds(*f.Timeout)
	}
	if f.ConnectTimeout != nil {
		conf.ConnectTimeout = Seconds(*f.ConnectTimeout)
	}
	if f.RecvTimeout != nil {
		conf.RecvTimeout = Seconds(*f.RecvTimeout)
	}
	if f.RetryMax != nil {
		conf.RetryMax = *f.RetryMax
	}
	if f.RetryInterval != nil {
		conf.RetryInterval = Seconds(*f.RetryInterval)
	}
	if f.RetryMaxInterval != nil {
		conf.RetryMaxInterval = Seconds(*f.RetryMaxInterval)
	}
	if f.RetryJitter != nil {
		conf.RetryJitter = *f.RetryJitter
	}
	if f.PollInterval != nil {
		conf.PollInterval = Seconds(*f.PollInterval)
	}
	if f.TCP.NoDelay != nil {
		conf.Transport.TCPNoDelay = *f.TCP.NoDelay
	}
	if f.TCP.KeepAliveSec != nil {
		conf.Transport.TCPKeepAliveSec = *f.TCP.KeepAliveSec
	}
	if f.TCP.LingerSec != nil {
		conf.Transport.TCPLingerSec = *f.TCP.LingerSec
	}
	if f.TCP.WriteBuffer != nil {
		conf.Transport.WriteBufferSize = *f.TCP.WriteBuffer
	}
	if f.TCP.ReadBuffer != nil {
		conf.Transport.ReadBufferSize = *f.TCP.ReadBuffer
	}
	return nil
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the configuration of the qdb test server
type ServerConfig struct {
	// Endpoint is the address the server listens on
	Endpoint string
	// TimeoutSecond bounds reads and writes of a connection (0 = no deadline)
	TimeoutSecond int64
	// StaticPayload, if set, is returned for every get request
	StaticPayload []byte
	// LogLevel is the level at which logs will be output
	LogLevel string
}

// String returns a formatted string representation of the server configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("qdb Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if len(c.StaticPayload) > 0 {
		addField("Static Payload", fmt.Sprintf("%d bytes", len(c.StaticPayload)))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
