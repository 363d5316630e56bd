// Package classifier maps a declared mime type and file extension to a
// content kind.
package classifier

import (
	"strings"

	"github.com/incubrix/cms/internal/models"
)

type rule struct {
	kind       models.ContentKind
	mimeTypes  map[string]struct{}
	extensions map[string]struct{}
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// Rules are checked in order; a mime match in any rule outranks every
// extension match.
var rules = []rule{
	{
		kind: models.ContentKindText,
		mimeTypes: set(
			"application/pdf", "application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"text/plain", "text/markdown", "text/csv", "application/json", "text/xml", "text/html",
			"text/css", "text/javascript", "application/javascript", "text/rtf", "application/rtf",
		),
		extensions: set("pdf", "doc", "docx", "txt", "md", "csv", "json", "xml", "html", "css", "js", "rtf"),
	},
	{
		kind: models.ContentKindAudio,
		mimeTypes: set(
			"audio/mpeg", "audio/wav", "audio/mp4", "audio/x-m4a", "audio/ogg", "audio/flac",
			"audio/aac", "audio/wma", "audio/opus",
		),
		extensions: set("mp3", "wav", "m4a", "ogg", "flac", "aac", "wma", "opus"),
	},
	{
		kind: models.ContentKindVideo,
		mimeTypes: set(
			"video/mp4", "video/quicktime", "video/x-msvideo", "video/webm", "video/x-flv",
			"video/3gpp", "video/x-ms-wmv", "video/mkv", "video/x-matroska",
		),
		extensions: set("mp4", "mov", "avi", "webm", "flv", "3gp", "wmv", "mkv"),
	},
	{
		kind: models.ContentKindImage,
		mimeTypes: set(
			"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml",
			"image/bmp", "image/tiff", "image/x-icon", "image/heic", "image/heif",
		),
		extensions: set("jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "tiff", "ico", "heic", "heif"),
	},
	{
		kind: models.ContentKindDocument,
		mimeTypes: set(
			"application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-powerpoint", "application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/vnd.oasis.opendocument.text", "application/vnd.oasis.opendocument.spreadsheet",
		),
		extensions: set("xls", "xlsx", "ppt", "pptx", "odt", "ods"),
	},
	{
		kind: models.ContentKindArchive,
		mimeTypes: set(
			"application/zip", "application/x-rar-compressed", "application/x-7z-compressed",
			"application/x-tar", "application/gzip", "application/x-bzip2",
		),
		extensions: set("zip", "rar", "7z", "tar", "gz", "bz2"),
	},
}

var prefixes = []struct {
	prefix string
	kind   models.ContentKind
}{
	{"text/", models.ContentKindText},
	{"audio/", models.ContentKindAudio},
	{"video/", models.ContentKindVideo},
	{"image/", models.ContentKindImage},
}

// Classify never fails; unknown inputs, including empty strings, map to
// ContentKindOther.
func Classify(mimeType, extension string) models.ContentKind {
	mimeType = normalizeMime(mimeType)
	ext := NormalizeExtension(extension)

	for _, r := range rules {
		if _, ok := r.mimeTypes[mimeType]; ok {
			return r.kind
		}
	}
	for _, r := range rules {
		if _, ok := r.extensions[ext]; ok {
			return r.kind
		}
	}
	for _, p := range prefixes {
		if strings.HasPrefix(mimeType, p.prefix) {
			return p.kind
		}
	}
	return models.ContentKindOther
}

// NormalizeExtension lower-cases an extension and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// normalizeMime drops parameters such as "; charset=utf-8".
func normalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
