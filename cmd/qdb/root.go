package qdb

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/dbnetget/cmd/util"
	"github.com/ValentinKolb/dbnetget/rpc/client"
	"github.com/ValentinKolb/dbnetget/rpc/protocol"
	"github.com/ValentinKolb/dbnetget/rpc/transport/tcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// QDBCommands represents the qdb command group
	QDBCommands = &cobra.Command{
		Use:   "qdb",
		Short: "Query qdb servers",
		Long:  `Read keys (32 hex chars, one per line) from the input files and query them on a pool of qdb servers. The format of the environment variables is DBNETGET_<flag> (e.g. DBNETGET_ENDPOINTS=host1:7001,host2:7001)`,
	}

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Get data from qdb",
		Long:  "Get data from qdb. Every value found is written to the output followed by a newline",
		RunE:  runCommand("get", NewGetProcessor),
	}

	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Test if keys exist in qdb",
		Long:  "Test if keys exist in qdb. For every key a line 'STATUS<TAB>KEY' is written to the output, STATUS is one of Y (exists), N (missing), U (unknown) or E (error)",
		RunE:  runCommand("test", NewTestProcessor),
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add client flags to the qdb command
	util.SetupRPCClientFlags(QDBCommands)

	key := "inputs"
	QDBCommands.PersistentFlags().StringSliceP(key, "i", []string{"-"}, util.WrapString("Input files to be processed (- for stdin)"))

	key = "output"
	QDBCommands.PersistentFlags().StringP(key, "o", "-", util.WrapString("Output file (- for stdout)"))

	key = "engine"
	QDBCommands.PersistentFlags().String(key, EngineDefault, util.WrapString(fmt.Sprintf("Execution engine (%s, %s)", EngineDefault, EngineConcurrent)))

	key = "concurrency"
	QDBCommands.PersistentFlags().Int(key, 10, util.WrapString(fmt.Sprintf("Number of workers of the concurrent engine (1-%d)", MaxConcurrency)))

	key = "rate"
	QDBCommands.PersistentFlags().Float64(key, 0, util.WrapString("Maximum number of requests per second (0 = unlimited)"))

	key = "dedup"
	QDBCommands.PersistentFlags().Int(key, 0, util.WrapString("Cache the results of this many recent keys and answer repeated keys from the cache (0 = off)"))

	key = "stats"
	QDBCommands.PersistentFlags().Bool(key, false, util.WrapString("Print run statistics to stderr when done"))

	key = "metrics"
	QDBCommands.PersistentFlags().Bool(key, false, util.WrapString("Print the pool metrics in Prometheus format to stderr when done"))

	// Add subcommands
	QDBCommands.AddCommand(getCmd)
	QDBCommands.AddCommand(testCmd)
}

// runCommand returns the run function of a qdb subcommand
func runCommand(name string, newProcessor func(io.Writer) Processor) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		// Bind command flags to viper
		if err := util.BindCommandFlags(cmd); err != nil {
			return err
		}

		config, err := util.GetClientConfig()
		if err != nil {
			return err
		}
		Logger.Debugf(config.String())

		input, closeInput, err := openInputs(viper.GetStringSlice("inputs"))
		if err != nil {
			return err
		}
		defer closeInput()

		output, closeOutput, err := openOutput(viper.GetString("output"))
		if err != nil {
			return err
		}
		defer closeOutput()

		pool, err := client.NewClientPool(*config, tcp.NewTCPClientConnector())
		if err != nil {
			return err
		}

		runner, err := NewRunner(RunnerConfig{
			Command:     name,
			Engine:      viper.GetString("engine"),
			Concurrency: viper.GetInt("concurrency"),
			Rate:        viper.GetFloat64("rate"),
			Dedup:       viper.GetInt("dedup"),
		}, pool, protocol.DefaultRegistry(), newProcessor(output))
		if err != nil {
			_ = pool.Close()
			return err
		}

		// SIGINT/SIGTERM stop reading input and close the pool
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			_ = pool.Close()
		}()

		runErr := runner.Run(ctx, input)
		stop()
		_ = pool.Close()

		if viper.GetBool("stats") {
			runner.WriteStats(os.Stderr)
		}
		if viper.GetBool("metrics") {
			pool.WriteMetrics(os.Stderr)
		}

		if runErr != nil {
			return fmt.Errorf("%s failed: %w", name, runErr)
		}
		return nil
	}
}

// openInputs concatenates the input files, "-" reads stdin
func openInputs(paths []string) (io.Reader, func(), error) {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	var (
		readers []io.Reader
		files   []*os.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, path := range paths {
		if path == "-" {
			readers = append(readers, os.Stdin)
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open input: %w", err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return io.MultiReader(readers...), closeAll, nil
}

// openOutput opens the output file, "-" writes to stdout
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
