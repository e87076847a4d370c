package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zippylabs/mercury/internal/config"
	"github.com/zippylabs/mercury/internal/flags"
	"github.com/zippylabs/mercury/internal/logging"
	"github.com/zippylabs/mercury/internal/notify"
	"github.com/zippylabs/mercury/internal/scheduling"
	"github.com/zippylabs/mercury/internal/substitution"
	"github.com/zippylabs/mercury/internal/watchdog"
	"github.com/zippylabs/mercury/pkg/graph"
	"github.com/zippylabs/mercury/pkg/recovery"
	"github.com/zippylabs/mercury/pkg/types"
)

// shutdownGrace is how long Execute waits for the Recovery Engine's shutdown
// sequence to finish after a SIGINT/SIGTERM before giving up and exiting.
const shutdownGrace = 30 * time.Second

// rootCmd is the mercuryd entry point. All actual supervision happens under
// the run subcommand; the root itself only prints usage.
var rootCmd = &cobra.Command{
	Use:   "mercuryd",
	Short: "Supervise and recover a graph of managed processes",
	Long:  "\nMercury launches a graph of managed processes in dependency order and recovers them according to their failure policies.\n",
}

// runCmd supervises the system description named by --system until it
// receives SIGINT/SIGTERM.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch and supervise a system description",
	RunE:  runRun,
}

func init() {
	flags.SetDefaults()
	flags.RegisterRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command and terminates the process on fatal error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("mercuryd exited with an error")
	}
}

// runRun loads the system description, builds the dependency graph, and
// runs the Recovery Engine's event loop until canceled.
func runRun(cmd *cobra.Command, _ []string) error {
	flagsSet := cmd.PersistentFlags()

	if err := flags.SetupLogging(flagsSet); err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	systemPath, err := flags.RequireSystemFlag(flagsSet)
	if err != nil {
		return err
	}

	metricsAddr, err := flagsSet.GetString("metrics-addr")
	if err != nil {
		return fmt.Errorf("reading metrics-addr flag: %w", err)
	}

	watchdogCron, err := flagsSet.GetString("watchdog-cron")
	if err != nil {
		return fmt.Errorf("reading watchdog-cron flag: %w", err)
	}

	sys, g, err := buildGraph(systemPath)
	if err != nil {
		return err
	}

	notifier, err := notify.New(nil)
	if err != nil {
		return fmt.Errorf("building notifier: %w", err)
	}

	logging.WriteStartupMessage(sys, metricsAddr, watchdogCron, notifier)

	eng := recovery.NewEngine(g, recovery.WithNotifier(notifier))

	ctx, stop := scheduling.NotifyContext()
	defer stop()

	if metricsAddr != "" {
		srv := startMetricsServer(metricsAddr)
		defer func() { _ = srv.Close() }()
	}

	if watchdogCron != "" {
		wd := watchdog.New(g, eng, nil)
		if err := wd.Start(watchdogCron); err != nil {
			return fmt.Errorf("starting watchdog: %w", err)
		}

		defer wd.Stop()
	}

	if err := eng.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("recovery engine exited: %w", err)
	}

	if scheduling.Wait(ctx, eng.Done(), shutdownGrace) {
		return errCatastrophicShutdown
	}

	return nil
}

// errCatastrophicShutdown is returned from runRun when the Recovery Engine
// reached Catastrophic, so Execute exits non-zero as spec.md §6 requires.
var errCatastrophicShutdown = errors.New("recovery engine reached catastrophic shutdown")

// buildGraph loads the system description at path, substitutes the host
// serial number placeholder, and builds the dependency graph from it.
func buildGraph(path string) (types.SystemDescription, *graph.Graph, error) {
	sys, err := config.Load(path)
	if err != nil {
		return types.SystemDescription{}, nil, err
	}

	serial, err := substitution.ReadHostSerial()
	if err != nil {
		logrus.WithError(err).Debug("no host serial number available, leaving placeholder tokens unsubstituted")
	} else {
		sys = substitution.InSystemDescription(sys, serial)
	}

	g := graph.New()

	for _, proc := range sys.Processes {
		if _, err := g.AddNode(proc); err != nil {
			var warning types.MissingPolicyWarning
			if errors.As(err, &warning) {
				logrus.WithField("process", proc.ProcessName).Warn(warning.Error())

				continue
			}

			return types.SystemDescription{}, nil, fmt.Errorf("adding process %q: %w", proc.ProcessName, err)
		}
	}

	if err := g.Build(); err != nil {
		return types.SystemDescription{}, nil, fmt.Errorf("building process graph: %w", err)
	}

	return sys, g, nil
}

// startMetricsServer serves Prometheus metrics on addr in the background,
// logging (but not failing startup on) a server error after the fact.
func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("metrics server failed")
		}
	}()

	logrus.WithField("addr", addr).Info("Metrics server started")

	return srv
}
