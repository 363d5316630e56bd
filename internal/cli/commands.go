package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/incubrix/cms/internal/export"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/services"
	"github.com/spf13/cobra"
)

func newLsCommand(rt *runtime) *cobra.Command {
	var (
		sortBy    string
		sortOrder string
		feedOnly  bool
		search    string
	)

	cmd := &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List the children of a folder",
		Long: `List the direct children of a folder, or of the root when no id is given.

  cmsctl ls
  cmsctl ls 550e8400-...
  cmsctl ls --feed-only --sort name --order asc`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.services(cmd.Context())
			if err != nil {
				return err
			}

			parent := services.RootID
			if len(args) > 0 {
				parent = args[0]
			}

			result, err := svc.Assets.List(cmd.Context(), services.ListQuery{
				ParentID:  parent,
				FeedOnly:  feedOnly,
				Search:    search,
				SortBy:    sortBy,
				SortOrder: sortOrder,
				Limit:     1000,
			})
			if err != nil {
				return fmt.Errorf("listing nodes: %w", err)
			}

			if rt.jsonOut {
				return writeJSON(rt.out, result)
			}
			return assetTable(rt.out, result.Assets)
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by name, contentKind, format, size, createdAt or updatedAt")
	cmd.Flags().StringVar(&sortOrder, "order", "", "Sort order: asc or desc")
	cmd.Flags().BoolVar(&feedOnly, "feed-only", false, "Only list nodes included in the feed")
	cmd.Flags().StringVar(&search, "search", "", "Filter by name, description or tag")
	return cmd
}

func newStatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show content statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.services(cmd.Context())
			if err != nil {
				return err
			}

			stats, err := svc.Assets.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("computing stats: %w", err)
			}

			if rt.jsonOut {
				return writeJSON(rt.out, stats)
			}
			return statsTable(rt.out, stats)
		},
	}
}

// openOutput returns rt.out for an empty path, otherwise a created file.
func openOutput(rt *runtime, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return rt.out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newFeedCommand(rt *runtime) *cobra.Command {
	var (
		format   string
		folderID string
		slug     string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Render a feed document",
		Long: `Render the global feed, a folder feed or a named feed.

  cmsctl feed
  cmsctl feed --format json
  cmsctl feed --folder 550e8400-...
  cmsctl feed --slug podcast -o podcast.xml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if folderID != "" && slug != "" {
				return fmt.Errorf("--folder and --slug are mutually exclusive")
			}

			f, err := feed.ParseFormat(format)
			if err != nil {
				return err
			}

			svc, err := rt.services(cmd.Context())
			if err != nil {
				return err
			}

			var rendered services.RenderedFeed
			switch {
			case folderID != "":
				id, parseErr := uuid.Parse(folderID)
				if parseErr != nil {
					return fmt.Errorf("invalid folder id %q", folderID)
				}
				rendered, err = svc.Feeds.Folder(cmd.Context(), id, f)
			case slug != "":
				rendered, err = svc.Registry.Resolve(cmd.Context(), slug, f)
			default:
				rendered, err = svc.Feeds.Global(cmd.Context(), f)
			}
			if err != nil {
				return fmt.Errorf("rendering feed: %w", err)
			}

			w, closeFn, err := openOutput(rt, output)
			if err != nil {
				return err
			}
			if _, err := w.Write(rendered.Body); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVar(&format, "format", "xml", "Feed format: xml or json")
	cmd.Flags().StringVar(&folderID, "folder", "", "Render the feed of this folder")
	cmd.Flags().StringVar(&slug, "slug", "", "Render the named feed with this slug")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newFeedsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List named feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.services(cmd.Context())
			if err != nil {
				return err
			}

			feeds, err := svc.Registry.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing feeds: %w", err)
			}

			if rt.jsonOut {
				return writeJSON(rt.out, feeds)
			}
			return publicFeedTable(rt.out, feeds)
		},
	}
}

func newExportCommand(rt *runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every node as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.services(cmd.Context())
			if err != nil {
				return err
			}

			assets, err := svc.Store.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading nodes: %w", err)
			}

			w, closeFn, err := openOutput(rt, output)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(w, assets); err != nil {
				_ = closeFn()
				return fmt.Errorf("writing csv: %w", err)
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newRegenerateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild the global feed and its output files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.services(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.Feeds.Regenerate(cmd.Context()); err != nil {
				return fmt.Errorf("regenerating feed: %w", err)
			}
			_, err = fmt.Fprintf(rt.out, "feed regenerated at %s\n", svc.Feeds.BuiltAt().Format(time.RFC3339))
			return err
		},
	}
}
