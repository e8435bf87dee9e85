package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/justyntemme/booklens/internal/config"
)

func newLoginCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username|email>",
		Short: "Log in and store the API token in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			password, err := readPassword(a)
			if err != nil {
				return err
			}

			resp, err := a.api.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			// Environment overrides in a.cfg must not end up in the file
			fileCfg, err := config.LoadFile(a.cfgPath)
			if err != nil {
				return err
			}
			fileCfg.API.Token = resp.Token
			fileCfg.UserID = resp.User.ID
			if err := fileCfg.Save(a.cfgPath); err != nil {
				return fmt.Errorf("logged in but failed to save config: %w", err)
			}
			a.cfg.API.Token = resp.Token
			a.cfg.UserID = resp.User.ID
			a.printf("Logged in as %s\n", resp.User.Username)
			return nil
		},
	}
}

// readPassword reads without echo from a terminal, otherwise one line of input
func readPassword(a *app) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.printf("Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		a.printf("\n")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(a.in)
}
