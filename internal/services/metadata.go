package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/incubrix/cms/internal/config"
	"github.com/incubrix/cms/internal/models"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/nfnt/resize"
)

const (
	thumbnailSize      = 320
	thumbnailQuality   = 85
	maxThumbnailPixels = 40_000_000
	maxPDFScanBytes    = 64 << 20
)

var previewableTextFormats = map[string]bool{
	"txt": true, "md": true, "json": true, "xml": true,
	"html": true, "css": true, "js": true, "csv": true,
}

var pdfPagePattern = regexp.MustCompile(`/Type\s*/Page[^s]`)

// Metadata holds optional probe results. Absent values stay nil.
type Metadata struct {
	DurationSeconds  *float64
	PageCount        *int
	Width            *int
	Height           *int
	PreviewAvailable bool
	Thumbnail        []byte
}

// MetadataExtractor probes an uploaded payload. Implementations never fail:
// any probe error yields an empty Metadata.
type MetadataExtractor interface {
	Extract(ctx context.Context, src io.ReadSeeker, name, mimeType string, kind models.ContentKind) Metadata
}

type NoopExtractor struct{}

func (NoopExtractor) Extract(context.Context, io.ReadSeeker, string, string, models.ContentKind) Metadata {
	return Metadata{}
}

// CommandRunner executes an external tool with stdin attached.
type CommandRunner func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// ProbeExtractor reads media metadata with ffprobe, image dimensions with
// the standard decoders and PDF page counts from page objects.
type ProbeExtractor struct {
	FFProbePath string
	Timeout     time.Duration
	Run         CommandRunner
}

func NewProbeExtractor(cfg config.ProbeConfig) MetadataExtractor {
	if !cfg.Enabled {
		return NoopExtractor{}
	}
	return &ProbeExtractor{
		FFProbePath: cfg.FFProbePath,
		Timeout:     cfg.Timeout,
		Run:         execRunner,
	}
}

func (p *ProbeExtractor) Extract(ctx context.Context, src io.ReadSeeker, name, mimeType string, kind models.ContentKind) Metadata {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return Metadata{}
	}

	var (
		meta Metadata
		err  error
	)
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	switch {
	case kind == models.ContentKindAudio || kind == models.ContentKindVideo:
		meta, err = p.probeMedia(ctx, src, kind)
	case kind == models.ContentKindImage:
		meta, err = probeImage(src)
	case mimeType == "application/pdf" || format == "pdf":
		meta, err = probePDF(src)
	case kind == models.ContentKindText:
		meta.PreviewAvailable = previewableTextFormats[format]
	}

	if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil && err == nil {
		err = seekErr
	}
	if err != nil {
		logger.Warn("metadata_probe_failed", map[string]interface{}{
			"name":  name,
			"kind":  string(kind),
			"error": err.Error(),
		})
		return Metadata{}
	}
	return meta
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *ProbeExtractor) probeMedia(ctx context.Context, src io.Reader, kind models.ContentKind) (Metadata, error) {
	run := p.Run
	if run == nil {
		run = execRunner
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	out, err := run(ctx, src, p.FFProbePath,
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "pipe:0")
	if err != nil {
		return Metadata{}, err
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return Metadata{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return Metadata{}, fmt.Errorf("no streams found")
	}

	meta := Metadata{PreviewAvailable: true}
	duration := parseSeconds(probe.Streams[0].Duration)
	if duration == nil {
		duration = parseSeconds(probe.Format.Duration)
	}
	meta.DurationSeconds = duration

	if kind == models.ContentKindVideo {
		for _, stream := range probe.Streams {
			if stream.CodecType == "video" && stream.Width > 0 && stream.Height > 0 {
				w, h := stream.Width, stream.Height
				meta.Width, meta.Height = &w, &h
				break
			}
		}
	}
	return meta, nil
}

func parseSeconds(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func probeImage(src io.ReadSeeker) (Metadata, error) {
	meta := Metadata{PreviewAvailable: true}

	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		// Formats without a registered decoder still preview in browsers.
		return meta, nil
	}
	w, h := cfg.Width, cfg.Height
	meta.Width, meta.Height = &w, &h

	if w*h > maxThumbnailPixels {
		return meta, nil
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return meta, nil
	}
	img, _, err := image.Decode(src)
	if err != nil {
		return meta, nil
	}

	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return meta, nil
	}
	meta.Thumbnail = buf.Bytes()
	return meta, nil
}

func probePDF(src io.Reader) (Metadata, error) {
	data, err := io.ReadAll(io.LimitReader(src, maxPDFScanBytes))
	if err != nil {
		return Metadata{}, err
	}
	meta := Metadata{PreviewAvailable: true}
	if pages := len(pdfPagePattern.FindAllIndex(data, -1)); pages > 0 {
		meta.PageCount = &pages
	}
	return meta, nil
}
