package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dbnetget/cmd/util"
	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/ValentinKolb/dbnetget/rpc/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a qdb test server",
		Long:    `Start a qdb test server answering get and test requests from an in-memory store. The configuration can be set via command line flags or environment variables. The format of the environment variables is DBNETGET_<flag> (e.g. DBNETGET_ENDPOINT=0.0.0.0:8888)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "127.0.0.1:8888", cmdUtil.WrapString("The address on which the server will listen"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Read and write timeout of a connection in seconds (0 = no timeout)"))

	key = "static-payload"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, every get request is answered with this payload"))

	key = "data"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("File with KEY<TAB>VALUE lines to load into the store"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	if payload := viper.GetString("static-payload"); payload != "" {
		serveCmdConfig.StaticPayload = []byte(payload)
	}

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if serveCmdConfig.TimeoutSecond < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// run starts the qdb server and blocks until SIGINT/SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s := server.NewQDBServer(*serveCmdConfig, nil)

	if path := viper.GetString("data"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open data file: %w", err)
		}
		n, err := s.LoadStore(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to load data file: %w", err)
		}
		server.Logger.Infof("Loaded %d entries from %s", n, path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s.Serve()
}

// initConfig reads in ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dbnetget")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
