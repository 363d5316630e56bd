package classifier

import (
	"testing"

	"github.com/incubrix/cms/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		mimeType  string
		extension string
		want      models.ContentKind
	}{
		{"exact audio mime", "audio/mpeg", "mp3", models.ContentKindAudio},
		{"exact video mime", "video/quicktime", "mov", models.ContentKindVideo},
		{"pdf is text", "application/pdf", "pdf", models.ContentKindText},
		{"spreadsheet", "application/vnd.ms-excel", "xls", models.ContentKindDocument},
		{"archive", "application/zip", "zip", models.ContentKindArchive},
		{"mime outranks extension", "audio/mpeg", "mp4", models.ContentKindAudio},
		{"extension when mime generic", "application/octet-stream", "MKV", models.ContentKindVideo},
		{"extension with dot", "", ".png", models.ContentKindImage},
		{"prefix fallback", "image/x-unknown", "", models.ContentKindImage},
		{"mime parameters ignored", "text/plain; charset=utf-8", "", models.ContentKindText},
		{"unknown", "application/octet-stream", "bin", models.ContentKindOther},
		{"empty inputs", "", "", models.ContentKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.mimeType, tt.extension); got != tt.want {
				t.Fatalf("Classify(%q, %q) = %q, want %q", tt.mimeType, tt.extension, got, tt.want)
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	inputs := []string{"", " ", ";", "/", "text", "audio/", "\x00", "application/vnd.ms-excel;x=1"}
	for _, m := range inputs {
		for _, e := range inputs {
			kind := Classify(m, e)
			if !kind.ValidFileKind() {
				t.Fatalf("Classify(%q, %q) returned invalid kind %q", m, e, kind)
			}
		}
	}
}
