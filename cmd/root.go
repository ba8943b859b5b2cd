package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dbnetget/cmd/qdb"
	"github.com/ValentinKolb/dbnetget/cmd/serve"
	"github.com/ValentinKolb/dbnetget/cmd/util"
	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dbnetget",
		Short: "fetch data from qdb servers",
		Long: fmt.Sprintf(`dbnetget (v%s)

A client for qdb servers that spreads requests over a pool of
connections to many endpoints, reconnecting and evicting failing
connections transparently.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dbnetget",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dbnetget v%s\n", Version)
		},
	}
)

func init() {
	// Initialize loggers once flags are parsed
	cobra.OnInitialize(initLogging)

	// Add Commands
	RootCmd.AddCommand(qdb.QDBCommands)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().StringP(key, "l", "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
	_ = viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(key))
}

// initLogging configures all loggers with the requested level
func initLogging() {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
