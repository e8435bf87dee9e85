package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/metadata"
	"github.com/justyntemme/booklens/internal/models"
)

func newBookCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the library",
	}
	cmd.AddCommand(
		newBookAddCmd(get),
		newBookListCmd(get),
		newBookShowCmd(get),
		newBookDeleteCmd(get),
		newBookProgressCmd(get),
	)
	return cmd
}

func newBookAddCmd(get func() *app) *cobra.Command {
	var (
		draft models.Book
		isbn  string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book, optionally filled in from an ISBN lookup",
		Example: `  booklens book add --title "Dune" --author "Frank Herbert" --pages 412
  booklens book add --isbn 978-89-364-3359-8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			book := draft
			if isbn != "" {
				meta, err := a.meta.LookupBook(cmd.Context(), isbn, "", "")
				switch {
				case err == nil:
					book = mergeDraft(meta.ToBook(), draft)
				case errors.Is(err, metadata.ErrInvalidISBN):
					return err
				default:
					a.logger.Warn("ISBN lookup failed, adding with the given fields", zap.Error(err))
					book.ISBN = isbn
				}
			}
			if book.Title == "" {
				return errors.New("a title is required (use --title or --isbn)")
			}
			if book.TotalPage < 0 {
				return errors.New("--pages must not be negative")
			}

			created, degraded, err := a.repo.AddBook(cmd.Context(), book)
			if err != nil {
				return err
			}
			a.tracker.RefreshPersona(cmd.Context())
			a.printf("Added book %d: %s\n", created.ID, created.Title)
			a.offlineNote(degraded)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "title")
	cmd.Flags().StringVar(&draft.Author, "author", "", "author")
	cmd.Flags().IntVar(&draft.TotalPage, "pages", 0, "total page count (0 tracks a manual percentage)")
	cmd.Flags().StringVar(&draft.Genre, "genre", "", "genre")
	cmd.Flags().StringVar(&draft.Memo, "memo", "", "memo")
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN to look up")
	return cmd
}

// mergeDraft lets explicit flags override looked-up fields
func mergeDraft(book, flags models.Book) models.Book {
	if flags.Title != "" {
		book.Title = flags.Title
	}
	if flags.Author != "" {
		book.Author = flags.Author
	}
	if flags.TotalPage > 0 {
		book.TotalPage = flags.TotalPage
	}
	if flags.Genre != "" {
		book.Genre = flags.Genre
	}
	if flags.Memo != "" {
		book.Memo = flags.Memo
	}
	return book
}

func newBookListCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			books, err := a.repo.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			if len(books) == 0 {
				a.printf("No books yet. Add one with `booklens book add`.\n")
				return nil
			}
			printBooks(a.out, books)
			return nil
		},
	}
}

func newBookShowCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a := get()
			book, err := a.repo.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			printBook(a.out, *book)
			return nil
		},
	}
}

func newBookDeleteCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book and its reading history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a := get()
			degraded, err := a.repo.DeleteBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.tracker.RefreshPersona(cmd.Context())
			a.printf("Deleted book %d\n", id)
			a.offlineNote(degraded)
			return nil
		},
	}
}

func newBookProgressCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <+N|-N>",
		Short: "Adjust the percentage of a book without a page count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			change, err := parseChange(args[1])
			if err != nil {
				return err
			}
			a := get()
			book, justCompleted, err := a.tracker.RecordManualProgress(cmd.Context(), id, change)
			if err != nil {
				return err
			}
			a.printf("%s: %s\n", book.Title, formatProgress(*book))
			if justCompleted {
				a.printf(completedPrompt, book.ID)
			}
			return nil
		},
	}
}

const completedPrompt = "완독을 축하합니다! `booklens post create %d` 로 감상을 남겨보세요.\n"

func newLookupCmd(get func() *app) *cobra.Command {
	var isbn, title, author string
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Search book metadata by ISBN or title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isbn == "" && title == "" {
				return fmt.Errorf("--isbn or --title is required")
			}
			a := get()
			results, err := a.meta.SearchBooks(cmd.Context(), isbn, title, author)
			if err != nil {
				return err
			}
			for i, r := range results {
				b := r.ToBook()
				a.printf("%d. %s / %s", i+1, b.Title, b.Author)
				if b.Publisher != "" {
					a.printf(" (%s %s)", b.Publisher, b.PublishDate)
				}
				a.printf("\n   ISBN %s  %d pages  [%s %.0f%%]\n", b.ISBN, b.TotalPage, r.Source, r.Confidence*100)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN-10 or ISBN-13")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&author, "author", "", "author")
	return cmd
}
