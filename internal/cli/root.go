// Package cli implements the mws-orders command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/mws-orders-client/pkg/config"
	"github.com/Sternrassler/mws-orders-client/pkg/logging"
	"github.com/Sternrassler/mws-orders-client/pkg/metrics"
	"github.com/Sternrassler/mws-orders-client/pkg/orders"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Version information set by the main package.
var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// app holds the state shared by all commands of one invocation.
type app struct {
	cfgFile     string
	redisAddr   string
	output      string
	verbose     bool
	metricsAddr string

	cfg         *config.PoolConfig
	packOptions []orders.Option
	stopMetrics context.CancelFunc
}

// NewRootCommand builds the command tree. packOptions are passed to every
// orders pack the commands create.
func NewRootCommand(packOptions ...orders.Option) *cobra.Command {
	a := &app{packOptions: packOptions}

	root := &cobra.Command{
		Use:   "mws-orders",
		Short: "Query Amazon MWS orders with per-method throttling",
		Long: `mws-orders calls the Amazon MWS Orders API for one seller account.

Calls are throttled per method (getOrder and listOrders allow a burst of 6
and restore one request every 66.7 seconds; listOrdersByNextToken shares the
listOrders quota). Use --redis to share throttle state between processes.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.stopMetrics != nil {
				a.stopMetrics()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./mws.yaml or $HOME/.mws/mws.yaml)")
	flags.StringVar(&a.redisAddr, "redis", "", "Redis address for shared throttle buckets (overrides throttle.redis_addr)")
	flags.StringVarP(&a.output, "output", "o", FormatTable, "Output format: table|json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	root.AddCommand(
		a.newGetCommand(),
		a.newListCommand(),
		a.newNextCommand(),
		a.newStatusCommand(),
		a.newThrottleCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// setup loads configuration and configures logging before a command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	a.output = strings.ToLower(strings.TrimSpace(a.output))
	if a.output != FormatTable && a.output != FormatJSON {
		return fmt.Errorf("unsupported output format: %s", a.output)
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.redisAddr != "" {
		cfg.Throttle.RedisAddr = a.redisAddr
	}
	a.cfg = cfg

	logCfg := logging.FromPoolConfig(cfg.Logging)
	logCfg.Output = cmd.ErrOrStderr()
	if a.verbose {
		logCfg.Level = logging.LevelDebug
	}
	logging.Setup(logCfg)

	if a.metricsAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(ctx, a.metricsAddr); err != nil {
				log.Error().Err(err).Str("addr", a.metricsAddr).Msg("Metrics server failed")
			}
		}()
	}
	return nil
}

// newPack builds an orders pack from the loaded configuration.
func (a *app) newPack() (*orders.Pack, error) {
	opts := append([]orders.Option{orders.WithLogger(logging.NewLogger("cli"))}, a.packOptions...)
	return orders.New(a.cfg, opts...)
}

func (a *app) out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
