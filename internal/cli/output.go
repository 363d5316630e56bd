package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/incubrix/cms/internal/export"
	"github.com/incubrix/cms/internal/services"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func assetTable(w io.Writer, assets []services.AssetView) error {
	if len(assets) == 0 {
		_, err := fmt.Fprintln(w, "No items found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSIZE\tFEED\tID\tMODIFIED")
	for _, a := range assets {
		name := a.Name
		size := export.HumanSize(a.Size)
		kind := string(a.ContentKind)
		if a.IsFolder {
			name += "/"
			size = "-"
			kind = "folder"
		}
		feed := "-"
		if a.IncludeInFeed {
			feed = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", name, kind, size, feed, a.ID, relativeTime(a.UpdatedAt))
	}
	return tw.Flush()
}

func statsTable(w io.Writer, s services.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Folders:\t%d\n", s.TotalFolders)
	fmt.Fprintf(tw, "Files:\t%d\n", s.TotalFiles)
	fmt.Fprintf(tw, "Total size:\t%s\n", export.HumanSize(s.TotalSize))
	fmt.Fprintf(tw, "Starred:\t%d\n", s.StarredItems)
	fmt.Fprintf(tw, "Shared:\t%d\n", s.SharedItems)
	fmt.Fprintf(tw, "In feed:\t%d\n", s.FeedItems)
	for _, k := range s.KindBreakdown {
		fmt.Fprintf(tw, "  %s:\t%d\n", k.ContentKind, k.Count)
	}
	return tw.Flush()
}

func publicFeedTable(w io.Writer, feeds []services.PublicFeedView) error {
	if len(feeds) == 0 {
		_, err := fmt.Fprintln(w, "No feeds configured.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tCRITERION\tACTIVE\tURL")
	for _, f := range feeds {
		active := "no"
		if f.IsActive {
			active = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Slug, f.Name, f.Criterion, active, f.URL)
	}
	return tw.Flush()
}

// relativeTime formats a timestamp relative to now, e.g. "2h ago".
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
