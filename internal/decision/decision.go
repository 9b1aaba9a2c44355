package decision

import (
	"strings"

	"media-library/internal/compat"
	"media-library/internal/mediatypes"
)

// Action is how a media file reaches the browser.
type Action string

const (
	// ActionDirect serves the original bytes.
	ActionDirect Action = "direct"
	// ActionRemux copies the streams into a browser-native container.
	ActionRemux Action = "remux"
	// ActionTranscode re-encodes to H.264/AAC.
	ActionTranscode Action = "transcode"
)

// MediaDescriptor is the catalog's view of one media file. It is read once
// per request and never cached.
type MediaDescriptor struct {
	ID         int64
	LibraryID  int64
	Path       string
	Type       mediatypes.FileType
	VideoCodec string
	AudioCodec string
	Container  string
	Width      int
	Height     int
	Duration   float64 // seconds, 0 when unknown
	// FastStart is nil when unknown. False means the MP4 index (moov box)
	// sits after the media data.
	FastStart *bool
}

// IsVideo reports whether the descriptor is a video, falling back to the
// file extension when the catalog left Type empty.
func (d MediaDescriptor) IsVideo() bool {
	if d.Type != "" {
		return d.Type == mediatypes.FileTypeVideo
	}
	return mediatypes.FileTypeForPath(d.Path) == mediatypes.FileTypeVideo
}

// StreamDecision is the outcome of Decide.
type StreamDecision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
	// Container is the output container for remux ("mp4" or "webm").
	Container string `json:"container,omitempty"`
}

// RemuxVariant returns the cache variant name for a remux into container.
func (s StreamDecision) RemuxVariant() string {
	if s.Container == compat.ContainerWebM {
		return "remux-webm"
	}
	return "remux"
}

// Decide classifies a media file as direct, remux or transcode.
// It has no side effects and depends only on its input.
func Decide(d MediaDescriptor) StreamDecision {
	if !d.IsVideo() {
		return StreamDecision{Action: ActionDirect, Reason: "not a video"}
	}

	video := strings.TrimSpace(d.VideoCodec)
	audio := strings.TrimSpace(d.AudioCodec)
	if video == "" {
		return StreamDecision{Action: ActionTranscode, Reason: "codec metadata missing"}
	}

	container := SourceContainer(d)

	videoOK := compat.IsVideoCodecNative(video)
	audioOK := compat.IsAudioCodecNative(audio)
	if !videoOK || !audioOK {
		reason := "video codec " + compat.NormalizeCodec(video) + " not browser-native"
		if videoOK {
			reason = "audio codec " + compat.NormalizeCodec(audio) + " not browser-native"
		}
		return StreamDecision{Action: ActionTranscode, Reason: reason}
	}

	native := compat.IsContainerNative(container)
	carries := native && compat.ContainerCarries(container, video, audio)
	if carries {
		if !compat.NeedsFrontLoadedIndex(container) || (d.FastStart != nil && *d.FastStart) {
			return StreamDecision{Action: ActionDirect, Reason: "natively playable"}
		}
	}

	target := remuxTarget(video, audio)
	if target == "" {
		return StreamDecision{Action: ActionTranscode, Reason: "no native container carries this codec pair"}
	}

	var reason string
	switch {
	case !native:
		reason = "container " + containerLabel(container) + " not browser-native"
	case !carries:
		reason = "container " + container + " cannot carry these codecs"
	case d.FastStart == nil:
		reason = "index position unknown"
	default:
		reason = "index not front-loaded"
	}
	return StreamDecision{Action: ActionRemux, Reason: reason, Container: target}
}

// SourceContainer is the normalized container of the file on disk: the
// probed format when known, otherwise the one implied by its extension.
// Matroska holding only WebM codecs reports "webm".
func SourceContainer(d MediaDescriptor) string {
	raw := d.Container
	if strings.TrimSpace(raw) == "" {
		raw = mediatypes.ContainerForPath(d.Path)
	}
	return compat.ContainerForCodecs(raw, strings.TrimSpace(d.VideoCodec), strings.TrimSpace(d.AudioCodec))
}

// remuxTarget picks a container that can carry the codec pair, preferring
// fragmented MP4.
func remuxTarget(video, audio string) string {
	switch {
	case compat.ContainerCarries(compat.ContainerMP4, video, audio):
		return compat.ContainerMP4
	case compat.ContainerCarries(compat.ContainerWebM, video, audio):
		return compat.ContainerWebM
	default:
		return ""
	}
}

func containerLabel(c string) string {
	if c == "" {
		return "unknown"
	}
	return c
}
