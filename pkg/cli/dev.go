package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/moonrailgun/reqcraft/pkg/importer"
	"github.com/moonrailgun/reqcraft/pkg/logging"
	"github.com/moonrailgun/reqcraft/pkg/model"
	"github.com/moonrailgun/reqcraft/pkg/serve"
	"github.com/moonrailgun/reqcraft/pkg/watcher"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long dev waits for in-flight requests and
// relay connections to drain on SIGINT/SIGTERM.
const shutdownTimeout = 5 * time.Second

const defaultPort = 6400

type devFlags struct {
	mock      bool
	cors      bool
	port      int
	host      string
	logLevel  string
	logFormat string
}

var devFlagVals devFlags

// devCmd implements `reqcraft dev`: build the model, start the serving
// engine, and watch the source tree for changes. Exit codes per §6: 0 on
// clean shutdown via signal, 3 on an initial parse/resolve error, 4 on a
// listener bind failure.
var devCmd = &cobra.Command{
	Use:   "dev [path]",
	Short: "Build the model, start the server, and watch for changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDev(cmd, rootPathArg(args))
	},
}

func init() {
	f := &devFlagVals
	devCmd.Flags().BoolVar(&f.mock, "mock", false, "Enable mock mode (overrides config { mock ... })")
	devCmd.Flags().BoolVar(&f.cors, "cors", false, "Enable the CORS proxy plane (overrides config { cors ... })")
	devCmd.Flags().IntVar(&f.port, "port", defaultPort, "HTTP server port")
	devCmd.Flags().StringVar(&f.host, "host", "localhost", "Bind address")
	devCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	devCmd.Flags().StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
}

func runDev(cmd *cobra.Command, path string) error {
	f := &devFlagVals

	port := resolveIntSetting(cmd, "port", f.port, "REQCRAFT_PORT", defaultPort)
	host := resolveStringSetting(cmd, "host", f.host, "REQCRAFT_HOST", "localhost")
	mockFlagSet := cmd.Flags().Changed("mock") || envBool("REQCRAFT_MOCK")
	corsFlagSet := cmd.Flags().Changed("cors") || envBool("REQCRAFT_CORS")

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(f.logLevel),
		Format: logging.ParseFormat(f.logFormat),
	})

	srv := serve.NewServer(serve.WithLogger(log), serve.WithVersion(Version))

	applyOverrides := func(m *model.ApiModel) *model.ApiModel {
		if mockFlagSet {
			m.Mock = true
		}
		if corsFlagSet {
			m.Cors = true
		}
		return m
	}

	firstBuild := make(chan error, 1)
	first := true
	onBuild := func(res watcher.BuildResult) {
		if res.Err != nil {
			if first {
				first = false
				firstBuild <- res.Err
				return
			}
			srv.ReportBuildError(res.Err)
			return
		}
		srv.Swap(applyOverrides(res.Model))
		if first {
			first = false
			firstBuild <- nil
		}
	}

	im := importer.New()
	w := watcher.New(path, im, onBuild, watcher.WithLogger(log))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil {
			log.Error("watcher stopped", "error", err)
		}
	}()

	if err := <-firstBuild; err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), renderDiagnostic(err))
		return withExit(3, fmt.Errorf("initial build failed"))
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return withExit(4, fmt.Errorf("bind %s: %w", addr, err))
	}

	httpSrv := &http.Server{Handler: srv.Handler()}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(ln)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "reqcraft dev listening on http://%s (mock=%v cors=%v)\n",
		addr, srv.Model().Mock, srv.Model().Cors)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Fprintln(cmd.OutOrStdout(), "shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return withExit(4, err)
		}
		return nil
	}
}

func resolveIntSetting(cmd *cobra.Command, flag string, flagVal int, envVar string, def int) int {
	if cmd.Flags().Changed(flag) {
		return flagVal
	}
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func resolveStringSetting(cmd *cobra.Command, flag, flagVal, envVar, def string) string {
	if cmd.Flags().Changed(flag) {
		return flagVal
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return def
}

func envBool(name string) bool {
	return os.Getenv(name) == "1"
}
