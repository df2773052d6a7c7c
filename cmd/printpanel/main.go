// printpanel serves an operator panel for a 3D printer: status caption,
// manual commands with history, jogging and heater, fan and motor
// controls over HTTP and websocket.
//
// Usage:
//
//	printpanel serve [--config path] [--addr :7130] [--virtual]
//	printpanel config init [path]
//	printpanel ports
//	printpanel version
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"printpanel-go/pkg/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		log.GetLogger("printpanel").WithError(err).Error("command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "printpanel",
		Short:         "3D printer operator panel",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newPortsCmd())
	root.AddCommand(newVersionCmd())
	return root
}
