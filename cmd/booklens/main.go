// Command booklens tracks reading sessions against the booklens API, falling
// back to a local store when the API is unreachable.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/justyntemme/booklens/internal/config"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
		a          *app
	)

	root := &cobra.Command{
		Use:   "booklens",
		Short: "Reading session tracker",
		Long: `booklens times reading sessions, records pages read per session,
and keeps a per-day reading history and a reader persona.

When the API at api.base_url cannot be reached, every command keeps working
against the local store in storage.data_dir.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(configPath, verbose, cmd.OutOrStdout(), cmd.InOrStdin())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	get := func() *app { return a }
	root.AddCommand(
		newBookCmd(get),
		newLookupCmd(get),
		newReadCmd(get),
		newCalendarCmd(get),
		newDayCmd(get),
		newPersonaCmd(get),
		newPostCmd(get),
		newWatchCmd(get),
		newLoginCmd(get),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
