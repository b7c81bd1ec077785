package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/usecase"
	"github.com/user/nextdoor-crawler/pkg/metrics"
)

func newPostsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspects stored posts.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "unprocessed",
			Short: "Lists posts that have not been replied to.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withPosts(cmd, func(store repository.PostRepository, _ usecase.PostManager) error {
					links, err := store.ListUnprocessed(cmd.Context())
					if err != nil {
						return err
					}
					t := newTable(cmd.OutOrStdout())
					t.AppendHeader(table.Row{"#", "Link"})
					for i, link := range links {
						t.AppendRow(table.Row{i + 1, link})
					}
					t.AppendFooter(table.Row{"", fmt.Sprintf("%d unprocessed", len(links))})
					t.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status <link>",
			Short: "Shows the stored state of a post.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withPosts(cmd, func(_ repository.PostRepository, posts usecase.PostManager) error {
					st, err := posts.GetStatus(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					t := newTable(cmd.OutOrStdout())
					t.AppendRows([]table.Row{
						{"Link", st.Link},
						{"Status", st.CurrentStatus},
						{"Service request", string(st.ServiceRequest)},
						{"Date", st.Date},
					})
					t.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "mark-processed <link>",
			Short: "Marks a post as replied to.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withPosts(cmd, func(store repository.PostRepository, posts usecase.PostManager) error {
					st, err := posts.GetStatus(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if st.CurrentStatus == usecase.StatusNotFound {
						return fmt.Errorf("%w: %s", repository.ErrPostNotFound, args[0])
					}
					if err := store.MarkProcessed(cmd.Context(), args[0]); err != nil {
						return err
					}
					a.logger.Info("marked post processed", zap.String("link", args[0]))
					fmt.Fprintln(cmd.OutOrStdout(), "processed:", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

// withPosts opens the configured store for the duration of fn.
func (a *app) withPosts(cmd *cobra.Command, fn func(repository.PostRepository, usecase.PostManager) error) error {
	store, err := openStore(cmd.Context(), a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store, usecase.NewPostGateway(store, a.logger, metrics.New(prometheus.NewRegistry())))
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}
