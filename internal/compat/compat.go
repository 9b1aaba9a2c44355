package compat

import "strings"

// Canonical container names returned by NormalizeContainer.
const (
	ContainerMP4      = "mp4"
	ContainerWebM     = "webm"
	ContainerOgg      = "ogg"
	ContainerMatroska = "matroska"
)

var videoAliases = map[string]string{
	"avc":        "h264",
	"avc1":       "h264",
	"x264":       "h264",
	"h.264":      "h264",
	"hevc":       "hevc",
	"h265":       "hevc",
	"h.265":      "hevc",
	"x265":       "hevc",
	"hvc1":       "hevc",
	"hev1":       "hevc",
	"vp08":       "vp8",
	"vp09":       "vp9",
	"av01":       "av1",
	"libaom-av1": "av1",
	"libdav1d":   "av1",
}

var audioAliases = map[string]string{
	"mp4a":       "aac",
	"aac_latm":   "aac",
	"mp3float":   "mp3",
	"libmp3lame": "mp3",
	"libopus":    "opus",
	"libvorbis":  "vorbis",
}

var nativeVideo = map[string]bool{
	"h264": true,
	"vp8":  true,
	"vp9":  true,
	"av1":  true,
}

var nativeAudio = map[string]bool{
	"aac":    true,
	"mp3":    true,
	"opus":   true,
	"vorbis": true,
	"flac":   true,
}

// pairing lists the codecs each native container can carry in a browser.
var pairing = map[string]struct {
	video map[string]bool
	audio map[string]bool
}{
	ContainerMP4: {
		video: map[string]bool{"h264": true, "vp9": true, "av1": true},
		audio: map[string]bool{"aac": true, "mp3": true, "opus": true, "flac": true},
	},
	ContainerWebM: {
		video: map[string]bool{"vp8": true, "vp9": true, "av1": true},
		audio: map[string]bool{"opus": true, "vorbis": true},
	},
	ContainerOgg: {
		video: map[string]bool{"vp8": true},
		audio: map[string]bool{"opus": true, "vorbis": true, "flac": true},
	},
}

// NormalizeCodec lower-cases a codec name and folds common ffprobe and
// fourcc aliases onto one canonical name. Empty input stays empty.
func NormalizeCodec(codec string) string {
	c := strings.ToLower(strings.TrimSpace(codec))
	if v, ok := videoAliases[c]; ok {
		return v
	}
	if a, ok := audioAliases[c]; ok {
		return a
	}
	return c
}

// NormalizeContainer maps an ffprobe format_name (which may be a comma
// separated list such as "mov,mp4,m4a,3gp,3g2,mj2") or a file extension
// onto a canonical container name.
//
// ffprobe reports both Matroska and WebM as "matroska,webm"; that value
// normalizes to matroska. Use ContainerForCodecs to promote it to webm when
// the streams allow.
func NormalizeContainer(container string) string {
	c := strings.ToLower(strings.TrimSpace(container))
	c = strings.TrimPrefix(c, ".")
	if c == "" {
		return ""
	}

	parts := strings.Split(c, ",")
	for _, p := range parts {
		switch strings.TrimSpace(p) {
		case "mp4", "m4v", "m4a", "3gp", "3g2", "mj2", "mov", "quicktime", "isom":
			return ContainerMP4
		case "matroska", "mkv", "mka":
			return ContainerMatroska
		case "ogg", "ogv", "oga":
			return ContainerOgg
		}
	}
	if parts[0] == "webm" {
		return ContainerWebM
	}
	return strings.TrimSpace(parts[0])
}

// ContainerForCodecs resolves the ambiguous "matroska,webm" probe result.
// A Matroska file whose streams are all WebM-legal is a WebM file as far as
// a browser is concerned.
func ContainerForCodecs(container, video, audio string) string {
	c := NormalizeContainer(container)
	if c != ContainerMatroska {
		return c
	}
	if strings.Contains(strings.ToLower(container), "webm") && ContainerCarries(ContainerWebM, video, audio) {
		return ContainerWebM
	}
	return c
}

// IsVideoCodecNative reports whether browsers decode the video codec.
func IsVideoCodecNative(codec string) bool {
	return nativeVideo[NormalizeCodec(codec)]
}

// IsAudioCodecNative reports whether browsers decode the audio codec.
// An empty codec means the file has no audio stream and is compatible. A
// record that was never probed has no video codec either, and the decision
// engine transcodes those before audio is consulted.
func IsAudioCodecNative(codec string) bool {
	c := NormalizeCodec(codec)
	if c == "" {
		return true
	}
	return nativeAudio[c]
}

// IsContainerNative reports whether browsers play the container.
func IsContainerNative(container string) bool {
	_, ok := pairing[NormalizeContainer(container)]
	return ok
}

// ContainerCarries reports whether a native container may hold the given
// codec pair and still play in a browser.
func ContainerCarries(container, video, audio string) bool {
	p, ok := pairing[NormalizeContainer(container)]
	if !ok {
		return false
	}
	if !p.video[NormalizeCodec(video)] {
		return false
	}
	a := NormalizeCodec(audio)
	return a == "" || p.audio[a]
}

// NeedsFrontLoadedIndex reports whether the container keeps a seek index
// that must precede the media data for progressive playback (the MP4 moov
// box). Stream-oriented containers return false.
func NeedsFrontLoadedIndex(container string) bool {
	return NormalizeContainer(container) == ContainerMP4
}
