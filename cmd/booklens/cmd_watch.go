package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/storage"
)

func newWatchCmd(get func() *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the active session as other terminals change it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			w, err := storage.NewWatcher(a.store.Path(), debounce, a.logger.Named("watch"))
			if err != nil {
				return err
			}
			show := func() {
				if err := printStatus(cmd, a); err != nil {
					a.logger.Warn("Failed to read session", zap.Error(err))
				}
			}
			w.OnChange(show)

			show()
			w.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "delay before reacting to a change")
	return cmd
}
