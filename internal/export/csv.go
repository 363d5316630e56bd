// Package export writes the content tree as a flat table, one row per node.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/incubrix/cms/internal/models"
)

const ContentType = "text/csv; charset=utf-8"

var Columns = []string{
	"ID",
	"Name",
	"Kind",
	"Content Kind",
	"Format",
	"MIME Type",
	"Size (Bytes)",
	"Size (Human)",
	"Parent ID",
	"Created At",
	"Modified At",
	"Uploaded By",
	"Starred",
	"Shared",
	"Preview Available",
	"Description",
	"Include In Feed",
	"Feed Title",
	"Feed Description",
	"Feed Category",
}

// Filename is the attachment name of an export produced at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("Incubrix_Drive_Export_%s.csv", now.UTC().Format("2006-01-02"))
}

// WriteCSV writes a header row followed by one row per asset.
func WriteCSV(w io.Writer, assets []models.Asset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, a := range assets {
		if err := cw.Write(Row(a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func Row(a models.Asset) []string {
	parent := ""
	if a.ParentID != nil {
		parent = a.ParentID.String()
	}
	return []string{
		a.ID.String(),
		a.Name,
		a.Kind(),
		string(a.ContentKind),
		strings.ToUpper(a.Format),
		a.MimeType,
		strconv.FormatInt(a.Size, 10),
		HumanSize(a.Size),
		parent,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
		a.UploadedBy,
		yesNo(a.Starred),
		yesNo(a.Shared),
		yesNo(a.PreviewAvailable),
		deref(a.Description),
		yesNo(a.IncludeInFeed),
		deref(a.FeedTitle),
		deref(a.FeedDescription),
		deref(a.FeedCategory),
	}
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanSize formats bytes with one decimal in binary units, e.g. "1.5 KB".
func HumanSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
