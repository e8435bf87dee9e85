package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/booklens/internal/models"
)

func newCalendarCmd(get func() *app) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show reading time per day for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month %d", month)
			}

			a := get()
			history, err := a.repo.CalendarHistory(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			a.printf("%04d-%02d\n", year, month)
			if len(history) == 0 {
				a.printf("  no reading recorded\n")
				return nil
			}
			dates := make([]string, 0, len(history))
			for d := range history {
				dates = append(dates, d)
			}
			sort.Strings(dates)
			var total int64
			for _, d := range dates {
				day := history[d]
				total += day.TotalTime
				a.printf("  %s  %-10s %d sessions\n", d, formatDuration(day.TotalTime), len(day.Sessions))
			}
			a.printf("  total       %s\n", formatDuration(total))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	return cmd
}

func newDayCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Show the sessions of one day (UTC)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().UTC().Format(models.DateLayout)
			if len(args) == 1 {
				if _, err := time.Parse(models.DateLayout, args[0]); err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[0])
				}
				date = args[0]
			}
			a := get()
			day, err := a.repo.DateHistory(cmd.Context(), date)
			if err != nil {
				return err
			}
			if day == nil {
				a.printf("%s  no reading recorded\n", date)
				return nil
			}
			printDay(a.out, *day)
			return nil
		},
	}
}

func newPersonaCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "persona",
		Short: "Show the reader persona derived from the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.tracker.Persona(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("%s %s\n%s\n", p.Icon, p.Name, p.Description)
			return nil
		},
	}
}
