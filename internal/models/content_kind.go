package models

// ContentKind is the classification assigned to a file at ingestion.
type ContentKind string

const (
	ContentKindText     ContentKind = "text"
	ContentKindAudio    ContentKind = "audio"
	ContentKindVideo    ContentKind = "video"
	ContentKindImage    ContentKind = "image"
	ContentKindDocument ContentKind = "document"
	ContentKindArchive  ContentKind = "archive"
	ContentKindOther    ContentKind = "other"
	// ContentKindFolder is only ever stored on folder nodes.
	ContentKindFolder ContentKind = "folder"
)

var fileContentKinds = []ContentKind{
	ContentKindText,
	ContentKindAudio,
	ContentKindVideo,
	ContentKindImage,
	ContentKindDocument,
	ContentKindArchive,
	ContentKindOther,
}

func FileContentKinds() []ContentKind {
	out := make([]ContentKind, len(fileContentKinds))
	copy(out, fileContentKinds)
	return out
}

// ValidFileKind reports whether k is a classification a file can carry.
func (k ContentKind) ValidFileKind() bool {
	for _, known := range fileContentKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k ContentKind) IsMedia() bool {
	return k == ContentKindAudio || k == ContentKindVideo || k == ContentKindImage
}

// IsPodcast reports whether items of this kind trigger podcast metadata.
func (k ContentKind) IsPodcast() bool {
	return k == ContentKindAudio || k == ContentKindVideo
}
