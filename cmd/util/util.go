package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds the client pool flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "endpoints"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated list of qdb servers (host:port)"))

	key = "max-concurrency"
	cmd.PersistentFlags().Int(key, common.DefaultMaxConcurrency, WrapString("Maximum number of connections ever created per endpoint"))

	key = "timeout"
	cmd.PersistentFlags().Float64(key, common.DefaultTimeout.Seconds(), WrapString("Socket timeout in seconds (1-60)"))

	key = "connect-timeout"
	cmd.PersistentFlags().Float64(key, 0, WrapString("Connect timeout in seconds (0 = timeout)"))

	key = "recv-timeout"
	cmd.PersistentFlags().Float64(key, 0, WrapString("Read timeout in seconds (0 = timeout)"))

	key = "retry-max"
	cmd.PersistentFlags().Int(key, common.DefaultRetryMax, WrapString(fmt.Sprintf("How many times to try connecting before giving up (0-%d, 0 disables retrying)", common.MaxRetryMax)))

	key = "retry-interval"
	cmd.PersistentFlags().Float64(key, common.DefaultRetryInterval.Seconds(), WrapString("Seconds to wait between two connect attempts (0-60)"))

	key = "retry-max-interval"
	cmd.PersistentFlags().Float64(key, 0, WrapString("Let the wait between connect attempts grow up to this many seconds (0 keeps it fixed)"))

	key = "retry-jitter"
	cmd.PersistentFlags().Bool(key, false, WrapString("Randomize the wait between connect attempts"))

	key = "poll-interval"
	cmd.PersistentFlags().Float64(key, common.DefaultPollInterval.Seconds(), WrapString("Seconds to wait for an idle connection before creating a new one"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, 0 disables keepalive)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, negative keeps the OS default)"))

	key = "config"
	cmd.PersistentFlags().String(key, "", WrapString("TOML file with client settings, flags and environment variables take precedence"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dbnetget")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// CheckRange returns an error if value is outside of [min, max]
func CheckRange(name string, value, min, max float64) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be in [%g, %g], got %g", name, min, max, value)
	}
	return nil
}

// GetClientConfig builds the client configuration: defaults, then the TOML file
// given by --config, then every flag or environment variable that is set
func GetClientConfig() (*common.ClientConfig, error) {
	conf := common.DefaultClientConfig()

	if path := viper.GetString("config"); path != "" {
		if err := common.LoadClientConfigFile(path, &conf); err != nil {
			return nil, err
		}
	}

	if viper.IsSet("endpoints") {
		conf.Endpoints = nil
		for _, ep := range strings.Split(viper.GetString("endpoints"), ",") {
			if ep = strings.TrimSpace(ep); ep != "" {
				conf.Endpoints = append(conf.Endpoints, ep)
			}
		}
	}
	if viper.IsSet("max-concurrency") {
		conf.MaxConcurrency = viper.GetInt("max-concurrency")
	}
	if viper.IsSet("timeout") {
		v := viper.GetFloat64("timeout")
		if err := CheckRange("timeout", v, 1, 60); err != nil {
			return nil, err
		}
		conf.Timeout = common.Seconds(v)
	}
	if viper.IsSet("connect-timeout") {
		conf.ConnectTimeout = common.Seconds(viper.GetFloat64("connect-timeout"))
	}
	if viper.IsSet("recv-timeout") {
		conf.RecvTimeout = common.Seconds(viper.GetFloat64("recv-timeout"))
	}
	if viper.IsSet("retry-max") {
		conf.RetryMax = viper.GetInt("retry-max")
	}
	if viper.IsSet("retry-interval") {
		v := viper.GetFloat64("retry-interval")
		if err := CheckRange("retry-interval", v, 0, 60); err != nil {
			return nil, err
		}
		conf.RetryInterval = common.Seconds(v)
	}
	if viper.IsSet("retry-max-interval") {
		conf.RetryMaxInterval = common.Seconds(viper.GetFloat64("retry-max-interval"))
	}
	if viper.IsSet("retry-jitter") {
		conf.RetryJitter = viper.GetBool("retry-jitter")
	}
	if viper.IsSet("poll-interval") {
		conf.PollInterval = common.Seconds(viper.GetFloat64("poll-interval"))
	}
	if viper.IsSet("transport-write-buffer") {
		conf.Transport.WriteBufferSize = viper.GetInt("transport-write-buffer") * 1024
	}
	if viper.IsSet("transport-read-buffer") {
		conf.Transport.ReadBufferSize = viper.GetInt("transport-read-buffer") * 1024
	}
	if viper.IsSet("transport-tcp-nodelay") {
		conf.Transport.TCPNoDelay = viper.GetBool("transport-tcp-nodelay")
	}
	if viper.IsSet("transport-tcp-keepalive") {
		conf.Transport.TCPKeepAliveSec = viper.GetInt("transport-tcp-keepalive")
	}
	if viper.IsSet("transport-tcp-linger") {
		conf.Transport.TCPLingerSec = viper.GetInt("transport-tcp-linger")
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
