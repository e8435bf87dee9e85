package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/justyntemme/booklens/internal/models"
)

func newPostCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Community posts about books",
	}
	cmd.AddCommand(newPostListCmd(get), newPostCreateCmd(get), newPostLikeCmd(get))
	return cmd
}

func newPostListCmd(get func() *app) *cobra.Command {
	var bookID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			postings, err := a.repo.ListPostings(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			if len(postings) == 0 {
				a.printf("No posts yet.\n")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, p := range postings {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d♥\t%s\n",
					p.CreatedAt.Local().Format("2006-01-02"), p.BookTitle, stars(p.Rating), p.Likes, p.Content)
			}
			tw.Flush()
			return nil
		},
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "only posts about this book")
	return cmd
}

func stars(rating int) string {
	if rating <= 0 {
		return "-"
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

func newPostCreateCmd(get func() *app) *cobra.Command {
	var (
		content string
		rating  int
	)
	cmd := &cobra.Command{
		Use:   "create <bookId>",
		Short: "Write a post about a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if rating < 0 || rating > 5 {
				return errors.New("--rating must be between 1 and 5")
			}
			a := get()
			if content == "" {
				a.printf("Your thoughts: ")
				if content, err = readLine(a.in); err != nil {
					return err
				}
			}
			if strings.TrimSpace(content) == "" {
				return errors.New("post content is required")
			}

			book, err := a.repo.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			p, degraded, err := a.repo.CreatePosting(cmd.Context(), models.Posting{
				UserID:        a.cfg.UserID,
				BookID:        book.ID,
				BookTitle:     book.Title,
				BookAuthor:    book.Author,
				BookThumbnail: book.Thumbnail,
				Content:       strings.TrimSpace(content),
				Rating:        rating,
			})
			if err != nil {
				return err
			}
			a.printf("Posted %s about %s\n", p.ID, book.Title)
			a.offlineNote(degraded)
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "post text (read from stdin when empty)")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating 1-5")
	return cmd
}

func newPostLikeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "like <postId>",
		Short: "Like a post (requires login)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			likes, err := a.api.LikePosting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("%d likes\n", likes)
			return nil
		},
	}
}
