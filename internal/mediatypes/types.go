package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the type of a media file.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	// FileTypeAudio is audio without a video stream.
	FileTypeAudio FileType = "audio"
	FileTypeOther FileType = "other"
)

// Content types of artifacts produced by the transcode pipeline.
const (
	MimeFragmentedMP4 = "video/mp4"
	MimeMPEGTS        = "video/mp2t"
	MimeHLSPlaylist   = "application/vnd.apple.mpegurl"
	mimeUnknown       = "application/octet-stream"
)

// Format describes what a file extension tells us before any probing.
// Container is the ffprobe format name, empty for images.
type Format struct {
	Type      FileType
	MIME      string
	Container string
}

var formats = map[string]Format{
	".jpg":  {FileTypeImage, "image/jpeg", ""},
	".jpeg": {FileTypeImage, "image/jpeg", ""},
	".png":  {FileTypeImage, "image/png", ""},
	".gif":  {FileTypeImage, "image/gif", ""},
	".bmp":  {FileTypeImage, "image/bmp", ""},
	".webp": {FileTypeImage, "image/webp", ""},
	".svg":  {FileTypeImage, "image/svg+xml", ""},
	".tif":  {FileTypeImage, "image/tiff", ""},
	".tiff": {FileTypeImage, "image/tiff", ""},
	".heic": {FileTypeImage, "image/heic", ""},
	".heif": {FileTypeImage, "image/heif", ""},
	".avif": {FileTypeImage, "image/avif", ""},

	".mp4":  {FileTypeVideo, "video/mp4", "mp4"},
	".m4v":  {FileTypeVideo, "video/x-m4v", "mp4"},
	".3gp":  {FileTypeVideo, "video/3gpp", "mp4"},
	".mov":  {FileTypeVideo, "video/quicktime", "mov"},
	".mkv":  {FileTypeVideo, "video/x-matroska", "matroska"},
	".webm": {FileTypeVideo, "video/webm", "webm"},
	".ogv":  {FileTypeVideo, "video/ogg", "ogg"},
	".avi":  {FileTypeVideo, "video/x-msvideo", "avi"},
	".wmv":  {FileTypeVideo, "video/x-ms-wmv", "asf"},
	".flv":  {FileTypeVideo, "video/x-flv", "flv"},
	".mpg":  {FileTypeVideo, "video/mpeg", "mpeg"},
	".mpeg": {FileTypeVideo, "video/mpeg", "mpeg"},
	".ts":   {FileTypeVideo, MimeMPEGTS, "mpegts"},
	".m2ts": {FileTypeVideo, MimeMPEGTS, "mpegts"},

	".mp3":  {FileTypeAudio, "audio/mpeg", "mp3"},
	".m4a":  {FileTypeAudio, "audio/mp4", "mp4"},
	".aac":  {FileTypeAudio, "audio/aac", "aac"},
	".flac": {FileTypeAudio, "audio/flac", "flac"},
	".ogg":  {FileTypeAudio, "audio/ogg", "ogg"},
	".opus": {FileTypeAudio, "audio/ogg", "ogg"},
	".wav":  {FileTypeAudio, "audio/wav", "wav"},
}

// Lookup returns the Format for an extension, with or without the dot and
// in any case.
func Lookup(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	f, ok := formats[ext]
	return f, ok
}

// GetFileType returns the FileType for an extension, FileTypeOther when
// unknown.
func GetFileType(ext string) FileType {
	if f, ok := Lookup(ext); ok {
		return f.Type
	}
	return FileTypeOther
}

// FileTypeForPath returns the FileType for a file path based on its extension.
func FileTypeForPath(path string) FileType {
	return GetFileType(filepath.Ext(path))
}

// GetMimeType returns the MIME type for an extension,
// application/octet-stream when unknown.
func GetMimeType(ext string) string {
	if f, ok := Lookup(ext); ok {
		return f.MIME
	}
	return mimeUnknown
}

// ContainerForPath guesses the container from a path's extension, used
// when a catalog record was never probed. Returns "" when unknown.
func ContainerForPath(path string) string {
	f, _ := Lookup(filepath.Ext(path))
	return f.Container
}
