package decision

import "fmt"

// Quality is a named output rendition.
type Quality string

const (
	QualityOriginal Quality = "original"
	QualityHigh     Quality = "high"
	QualityMedium   Quality = "medium"
	QualityLow      Quality = "low"
)

// Preset is the resolution and bitrate ceiling of a transcoded rendition.
type Preset struct {
	Quality      Quality
	Height       int // target height of the short side
	VideoBitrate int // bits per second
	AudioBitrate int // bits per second
}

// MaxRate is the encoder rate cap, BufSize the VBV buffer.
func (p Preset) MaxRate() int { return p.VideoBitrate * 3 / 2 }
func (p Preset) BufSize() int { return p.VideoBitrate * 2 }

// Bandwidth is the peak total bitrate of the rendition.
func (p Preset) Bandwidth() int { return p.MaxRate() + p.AudioBitrate }

// AverageBandwidth is the nominal total bitrate of the rendition.
func (p Preset) AverageBandwidth() int { return p.VideoBitrate + p.AudioBitrate }

// EffectiveHeight is the short side the encoder produces for a source whose
// short side is srcShort. Output never exceeds the source.
func (p Preset) EffectiveHeight(srcShort int) int {
	if srcShort > 0 && srcShort < p.Height {
		return srcShort
	}
	return p.Height
}

const audioBitrate = 128_000

// presets are ordered best first.
var presets = []Preset{
	{Quality: QualityHigh, Height: 1080, VideoBitrate: 8_000_000, AudioBitrate: audioBitrate},
	{Quality: QualityMedium, Height: 720, VideoBitrate: 4_000_000, AudioBitrate: audioBitrate},
	{Quality: QualityLow, Height: 480, VideoBitrate: 1_500_000, AudioBitrate: audioBitrate},
}

// Presets returns the transcode presets, best first.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetFor returns the preset of a transcode quality.
func PresetFor(q Quality) (Preset, bool) {
	for _, p := range presets {
		if p.Quality == q {
			return p, true
		}
	}
	return Preset{}, false
}

// ParseQuality validates a quality query value.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(s); q {
	case QualityOriginal, QualityHigh, QualityMedium, QualityLow:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quality %q", s)
	}
}

// ShortSide returns the smaller of the two dimensions, so portrait video is
// measured the same way as landscape.
func ShortSide(width, height int) int {
	if width <= 0 {
		return height
	}
	if height <= 0 || width < height {
		return width
	}
	return height
}

// AvailableQualities lists the presets whose target does not exceed the
// source, best first. Unknown dimensions yield every preset. A source
// below the smallest preset yields just that preset, which then encodes at
// source size.
func AvailableQualities(width, height int) []Quality {
	short := ShortSide(width, height)
	var out []Quality
	for _, p := range presets {
		if short <= 0 || p.Height <= short {
			out = append(out, p.Quality)
		}
	}
	// Sources below the smallest preset still get one rendition. Its
	// nominal height exceeds the source, but Preset.EffectiveHeight clamps
	// the encode to the source's short side, so nothing is upscaled.
	if len(out) == 0 {
		out = append(out, presets[len(presets)-1].Quality)
	}
	return out
}

// ExposedQualities is what a client may request for d. Original is offered
// only when the browser can play the source streams as they are.
func ExposedQualities(d MediaDescriptor, dec StreamDecision) []Quality {
	if !d.IsVideo() {
		return []Quality{QualityOriginal}
	}
	available := AvailableQualities(d.Width, d.Height)
	if dec.Action == ActionTranscode {
		return available
	}
	return append([]Quality{QualityOriginal}, available...)
}

// DefaultQuality is served when the client names no quality: the source
// itself when possible, otherwise the best transcode rendition.
func DefaultQuality(d MediaDescriptor, dec StreamDecision) Quality {
	return ExposedQualities(d, dec)[0]
}
