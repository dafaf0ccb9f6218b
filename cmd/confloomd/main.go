// confloomd is the confloom daemon: it holds a workspace of parsed
// network-device configurations and serves parsing, diffing, interface
// extraction, and template synthesis over an HTTP API, with operation
// events streamed over SSE and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/confloom/confloom/pkg/daemon"
)

func main() {
	flags := pflag.NewFlagSet("confloomd", pflag.ExitOnError)
	configFile := flags.String("config", "", "configuration file path (default "+daemon.DefaultConfigFile+")")
	flags.String("listen", "127.0.0.1:8338", "HTTP API listen address")
	flags.String("https-listen", "", "HTTPS listen address (empty to disable)")
	flags.Bool("tls", false, "serve HTTPS with a self-signed certificate")
	flags.String("dir", "", "configuration directory loaded at startup")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.Int("history-size", 0, "operation history entries to retain")
	flags.Int("event-buffer", 0, "event ring capacity")
	flags.Parse(os.Args[1:])

	opts, err := daemon.LoadOptions(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "confloomd: %v\n", err)
		os.Exit(1)
	}

	if err := daemon.New(opts).Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "confloomd: %v\n", err)
		os.Exit(1)
	}
}
