package attachment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core"
)

// Size ceilings enforced locally before any storage call is attempted.
const (
	MaxFileSize          = 50 << 20 // generic attachments
	MaxTranscriptionSize = 25 << 20 // transcription-targeted audio/video
)

// Kind classifies an outgoing payload into its transport envelope.
type Kind string

const (
	KindText   Kind = "text"
	KindVoice  Kind = "voice"
	KindFile   Kind = "file"
	KindCamera Kind = "camera"
)

// Descriptor is the content descriptor attached to a message record. Kind is
// tagged once at upload from the actual bytes, not re-derived downstream.
type Descriptor struct {
	URL           string `json:"url"`
	Path          string `json:"path"` // bucket-relative object path
	FileName      string `json:"file_name"`
	FileType      string `json:"file_type"` // MIME
	FileSize      int64  `json:"file_size"`
	Kind          Kind   `json:"kind"`
	VoiceDuration int    `json:"voice_duration_seconds,omitempty"`
}

func (d Descriptor) IsVoice() bool { return d.VoiceDuration > 0 }

// document MIME types allowed for generic attachments, on top of the
// image/video/text prefixes.
var allowedDocTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/vnd.ms-powerpoint":                                           true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/csv": true,
}

// Classify sniffs the payload and buckets it into a transport envelope kind.
// Empty payloads are plain text.
func Classify(fileName string, content []byte) Kind {
	if len(content) == 0 {
		return KindText
	}
	mime := detect(fileName, content)
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return KindVoice
	case strings.HasPrefix(mime, "image/"):
		return KindCamera
	default:
		return KindFile
	}
}

// detect sniffs content bytes, falling back to the filename extension when
// sniffing yields the generic octet-stream type.
func detect(fileName string, content []byte) string {
	mime := mimetype.Detect(content)
	detected := strings.SplitN(mime.String(), ";", 2)[0]
	if detected != "application/octet-stream" {
		return detected
	}
	if byExt := extMime(fileName); byExt != "" {
		return byExt
	}
	return detected
}

func extMime(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	// browser recorders emit webm whose sniffed type is unreliable without
	// a full EBML doctype
	case ".webm":
		return "audio/webm"
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return ""
	}
}

// ValidateFile checks a generic attachment against the permissive allow-list
// (image/video/pdf/doc/text/spreadsheet) and the 50MB ceiling. Violations
// are local validation failures; no network call is made.
func ValidateFile(fileName string, content []byte) error {
	if int64(len(content)) > MaxFileSize {
		return core.NewFieldError("file", fmt.Sprintf("file exceeds the %dMB limit", MaxFileSize>>20))
	}
	mime := detect(fileName, content)
	if strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "video/") ||
		strings.HasPrefix(mime, "text/") || allowedDocTypes[mime] {
		return nil
	}
	return core.NewFieldError("file", fmt.Sprintf("file type %q is not supported", mime))
}

// ValidateTranscription checks a transcription input: audio/video only,
// 25MB ceiling.
func ValidateTranscription(fileName string, content []byte) error {
	if int64(len(content)) > MaxTranscriptionSize {
		return core.NewFieldError("file", fmt.Sprintf("transcription input exceeds the %dMB limit", MaxTranscriptionSize>>20))
	}
	mime := detect(fileName, content)
	if strings.HasPrefix(mime, "audio/") || strings.HasPrefix(mime, "video/") {
		return nil
	}
	return core.NewFieldError("file", "only audio and video files can be transcribed")
}

// Pipeline uploads classified payloads to external object storage and
// produces the content descriptor attached to the message record.
type Pipeline struct {
	storage core.ObjectStorage
	conf    *core.Config
}

func NewPipeline(storage core.ObjectStorage, conf *core.Config) *Pipeline {
	return &Pipeline{storage: storage, conf: conf}
}

// UploadFile validates and uploads a generic attachment in a single atomic
// storage call. A failed upload aborts the whole send; no partial message
// is created.
func (p *Pipeline) UploadFile(ctx context.Context, containerID, fileName string, content []byte) (Descriptor, error) {
	if err := ValidateFile(fileName, content); err != nil {
		return Descriptor{}, err
	}
	return p.upload(ctx, core.BucketChatFiles, containerID, fileName, content, 0)
}

// UploadVoice uploads a voice recording. Recordings are fed to the platform's
// transcription service, so the transcription constraints (audio/video only,
// 25MB) gate the upload. Duration is wall-clock seconds measured during
// recording, not decoded from the audio; drift against the encoded length is
// accepted.
func (p *Pipeline) UploadVoice(ctx context.Context, containerID string, content []byte, durationSeconds int) (Descriptor, error) {
	fileName := fmt.Sprintf("voice-%s.webm", uuid.New().String())
	if err := ValidateTranscription(fileName, content); err != nil {
		return Descriptor{}, err
	}

	desc, err := p.upload(ctx, core.BucketVoiceMessages, containerID, fileName, content, durationSeconds)
	if err != nil {
		return Descriptor{}, err
	}
	desc.Kind = KindVoice // webm recordings can sniff as video
	return desc, nil
}

func (p *Pipeline) upload(ctx context.Context, bucket, containerID, fileName string, content []byte, duration int) (Descriptor, error) {
	mime := detect(fileName, content)
	path := fmt.Sprintf("%s/%s-%s", containerID, uuid.New().String(), fileName)

	if err := p.storage.Upload(ctx, bucket, path, content, mime); err != nil {
		return Descriptor{}, errors.Wrap(err, "uploading attachment")
	}

	url, err := p.storage.CreateSignedURL(ctx, bucket, path, p.conf.Storage.SignedURLTTL)
	if err != nil {
		return Descriptor{}, errors.Wrap(err, "signing attachment URL")
	}

	return Descriptor{
		URL:           url,
		Path:          path,
		FileName:      fileName,
		FileType:      mime,
		FileSize:      int64(len(content)),
		Kind:          Classify(fileName, content),
		VoiceDuration: duration,
	}, nil
}

// Remove deletes an uploaded binary, used best-effort when a voice message
// is soft-deleted.
func (p *Pipeline) Remove(ctx context.Context, bucket, path string) error {
	return errors.Wrap(p.storage.Remove(ctx, bucket, path), "removing attachment")
}
