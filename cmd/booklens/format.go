package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/progress"
)

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid book id %q", raw)
	}
	return id, nil
}

// parseChange reads a signed percentage such as +10 or -5
func parseChange(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(raw, "+"))
	if err != nil {
		return 0, fmt.Errorf("invalid progress change %q (use e.g. +10 or -5)", raw)
	}
	return n, nil
}

// formatDuration renders seconds as 1h02m03s, dropping empty leading units
func formatDuration(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func formatProgress(b models.Book) string {
	if b.TotalPage > 0 {
		return fmt.Sprintf("%d/%d (%d%%)", b.ReadPage, b.TotalPage, progress.Percentage(b))
	}
	return fmt.Sprintf("%d%%", progress.Percentage(b))
}

func printBooks(w io.Writer, books []models.Book) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tPROGRESS\tTIME")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Title, b.Author, b.Status, formatProgress(b), formatDuration(b.TotalReadingTime))
	}
	tw.Flush()
}

func printBook(w io.Writer, b models.Book) {
	fmt.Fprintf(w, "%d. %s\n", b.ID, b.Title)
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-10s %s\n", name+":", value)
		}
	}
	field("Author", b.Author)
	field("Status", b.Status)
	field("Progress", formatProgress(b))
	field("Time", formatDuration(b.TotalReadingTime))
	field("Started", b.StartDate)
	field("Finished", b.CompletedDate)
	field("Publisher", b.Publisher)
	field("Published", b.PublishDate)
	field("ISBN", b.ISBN)
	field("Genre", b.Genre)
	field("Memo", b.Memo)
}

func printDay(w io.Writer, day models.DayHistory) {
	fmt.Fprintf(w, "%s  total %s\n", day.Date, formatDuration(day.TotalTime))
	for _, s := range day.Sessions {
		fmt.Fprintf(w, "  %s  %-30s %3d pages  %s\n",
			s.StartTime.Local().Format("15:04"), s.BookTitle, s.PagesRead, formatDuration(s.Duration))
	}
}
