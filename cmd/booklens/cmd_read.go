package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justyntemme/booklens/internal/progress"
	"github.com/justyntemme/booklens/internal/tracker"
)

func newReadCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Time reading sessions",
	}
	cmd.AddCommand(
		newReadStartCmd(get),
		newReadStopCmd(get),
		newReadStatusCmd(get),
		newReadAbandonCmd(get),
	)
	return cmd
}

func newReadStartCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start reading a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a := get()
			sess, err := a.tracker.StartReading(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.printf("%s (book %d, since %s)\n", tracker.MsgStarted, sess.BookID, sess.StartTime.Local().Format("15:04:05"))
			return nil
		},
	}
}

func newReadStopCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id> [pages]",
		Short: "Stop reading and record pages",
		Long: `Stop the active session of a book and record the pages.

In incremental mode (the default) pages is the number of pages read in this
session. In absolute mode it is the page reached so far. When pages is
omitted it is read from stdin.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a := get()

			active, err := a.tracker.Active(cmd.Context())
			if err != nil {
				return err
			}
			// A stop without a matching session records nothing and is not an error
			if active == nil || active.BookID != id {
				a.printf(noSessionNote, id)
				return nil
			}

			var input string
			if len(args) == 2 {
				input = args[1]
			} else if active.Pending == nil {
				elapsed, err := a.tracker.Elapsed(cmd.Context())
				if err != nil {
					return err
				}
				a.printf("Read for %s. %s: ", formatDuration(elapsed), pagesPrompt(a.tracker.InputMode()))
				if input, err = readLine(a.in); err != nil {
					return err
				}
			}

			res, err := a.tracker.StopReading(cmd.Context(), id, input)
			if errors.Is(err, tracker.ErrNoActiveSession) {
				a.printf(noSessionNote, id)
				return nil
			}
			if err != nil {
				return err
			}
			a.printf("%s %s, %d pages in %s\n", res.Message, res.Book.Title, res.Record.PagesRead, formatDuration(res.Duration))
			a.printf("Progress: %s\n", formatProgress(res.Book))
			a.offlineNote(res.Degraded)
			if res.PostingPrompt {
				a.printf(completedPrompt, res.Book.ID)
			}
			return nil
		},
	}
}

const noSessionNote = "No active reading session for book %d; nothing recorded.\n"

func pagesPrompt(mode progress.InputMode) string {
	if mode == progress.Absolute {
		return "Page reached"
	}
	return "Pages read this session"
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newReadStatusCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			return printStatus(cmd, a)
		},
	}
}

func printStatus(cmd *cobra.Command, a *app) error {
	active, err := a.tracker.Active(cmd.Context())
	if err != nil {
		return err
	}
	if active == nil {
		a.printf("Not reading.\n")
		return nil
	}
	elapsed, err := a.tracker.Elapsed(cmd.Context())
	if err != nil {
		return err
	}
	title := fmt.Sprintf("book %d", active.BookID)
	if book, err := a.repo.GetBook(cmd.Context(), active.BookID); err == nil {
		title = book.Title
	}
	a.printf("Reading %s for %s\n", title, formatDuration(elapsed))
	return nil
}

func newReadAbandonCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon",
		Short: "Discard the active session without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.tracker.Abandon(cmd.Context()); err != nil {
				return err
			}
			a.printf("Session discarded.\n")
			return nil
		},
	}
}
