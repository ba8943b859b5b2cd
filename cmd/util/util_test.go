package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
	assert.Equal(t, "", WrapString(""))
}

func TestCheckRange(t *testing.T) {
	assert.NoError(t, CheckRange("timeout", 1, 1, 60))
	assert.NoError(t, CheckRange("timeout", 60, 1, 60))
	assert.Error(t, CheckRange("timeout", 0.5, 1, 60))
	assert.Error(t, CheckRange("timeout", 61, 1, 60))
}

func TestGetClientConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("endpoints", "127.0.0.1:8888, 127.0.0.1:8889,")
	viper.Set("max-concurrency", 4)
	viper.Set("timeout", 2.5)
	viper.Set("retry-max", 0)
	viper.Set("transport-read-buffer", 8)

	conf, err := GetClientConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:8888", "127.0.0.1:8889"}, conf.Endpoints)
	assert.Equal(t, 4, conf.MaxConcurrency)
	assert.Equal(t, 2500*time.Millisecond, conf.Timeout)
	assert.Equal(t, 0, conf.RetryMax)
	assert.Equal(t, 8*1024, conf.Transport.ReadBufferSize)
}

func TestGetClientConfigPrecedence(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	path := filepath.Join(t.TempDir(), "client.toml")
	content := `
endpoints = ["10.0.0.1:8888"]
max_concurrency = 3
retry_max = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	viper.Set("config", path)
	viper.Set("retry-max", 1)

	conf, err := GetClientConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1:8888"}, conf.Endpoints)
	assert.Equal(t, 3, conf.MaxConcurrency)
	assert.Equal(t, 1, conf.RetryMax)
}

func TestGetClientConfigErrors(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"no endpoints":   {},
		"timeout":        {"endpoints": "127.0.0.1:1", "timeout": 0.1},
		"retry interval": {"endpoints": "127.0.0.1:1", "retry-interval": 61.0},
		"missing file":   {"endpoints": "127.0.0.1:1", "config": "/does/not/exist.toml"},
	}

	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			for k, v := range values {
				viper.Set(k, v)
			}
			_, err := GetClientConfig()
			assert.Error(t, err)
		})
	}
}
