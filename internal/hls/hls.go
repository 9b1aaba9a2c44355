package hls

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"

	"media-library/internal/decision"
)

// ErrNotApplicable is returned by Master when a source has fewer than two
// renditions; a single-rendition HLS stream adds nothing over the file
// endpoint.
var ErrNotApplicable = errors.New("hls not applicable")

// DefaultSegmentSeconds is the target segment length.
const DefaultSegmentSeconds = 6

// Codecs advertised for every rendition: H.264 High@4.0 and AAC-LC.
var renditionCodecs = []string{"avc1.640028", "mp4a.40.2"}

// VariantURI is the media playlist URL of one rendition.
func VariantURI(mediaID int64, q decision.Quality) string {
	return fmt.Sprintf("/media/%d/stream/%s/index.m3u8", mediaID, q)
}

// SegmentURI is the URL of one segment.
func SegmentURI(mediaID int64, q decision.Quality, index int) string {
	return fmt.Sprintf("/media/%d/stream/%s/%d.ts", mediaID, q, index)
}

// Resolution returns WIDTHxHEIGHT of the rendition p produces from a
// width x height source, keeping the aspect ratio and even dimensions.
// It returns "" when the source size is unknown.
func Resolution(p decision.Preset, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	short := decision.ShortSide(width, height)
	target := p.EffectiveHeight(short)
	scale := float64(target) / float64(short)

	w := even(float64(width) * scale)
	h := even(float64(height) * scale)
	return fmt.Sprintf("%dx%d", w, h)
}

func even(v float64) int {
	n := int(math.Round(v))
	return n - n%2
}

// Master builds the multivariant playlist for d. Original is skipped; only
// transcoded renditions are segmented.
func Master(d decision.MediaDescriptor, qualities []decision.Quality) ([]byte, error) {
	var variants []*playlist.MultivariantVariant
	for _, q := range qualities {
		p, ok := decision.PresetFor(q)
		if !ok {
			continue
		}
		avg := p.AverageBandwidth()
		variants = append(variants, &playlist.MultivariantVariant{
			Bandwidth:        p.Bandwidth(),
			AverageBandwidth: &avg,
			Codecs:           renditionCodecs,
			Resolution:       Resolution(p, d.Width, d.Height),
			URI:              VariantURI(d.ID, q),
		})
	}
	if len(variants) < 2 {
		return nil, ErrNotApplicable
	}

	m := &playlist.Multivariant{
		Version:             3,
		IndependentSegments: true,
		Variants:            variants,
	}
	return m.Marshal()
}

// SegmentCount returns how many segments of segSeconds cover duration.
func SegmentCount(duration float64, segSeconds int) int {
	if duration <= 0 || segSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(duration / float64(segSeconds)))
}

// SegmentBounds returns the start and length in seconds of segment index.
// ok is false when the index is outside the media.
func SegmentBounds(index int, duration float64, segSeconds int) (start, length float64, ok bool) {
	n := SegmentCount(duration, segSeconds)
	if index < 0 || index >= n {
		return 0, 0, false
	}
	start = float64(index * segSeconds)
	length = math.Min(float64(segSeconds), duration-start)
	return start, length, true
}

// Variant builds the VOD media playlist of one rendition. The media
// duration must be known.
func Variant(mediaID int64, q decision.Quality, duration float64, segSeconds int) ([]byte, error) {
	if _, ok := decision.PresetFor(q); !ok {
		return nil, fmt.Errorf("no rendition for quality %q", q)
	}
	n := SegmentCount(duration, segSeconds)
	if n == 0 {
		return nil, fmt.Errorf("%w: unknown duration", ErrNotApplicable)
	}

	segments := make([]*playlist.MediaSegment, 0, n)
	for i := 0; i < n; i++ {
		_, length, _ := SegmentBounds(i, duration, segSeconds)
		segments = append(segments, &playlist.MediaSegment{
			Duration: time.Duration(length * float64(time.Second)),
			URI:      SegmentURI(mediaID, q, i),
		})
	}

	vod := playlist.MediaPlaylistType(playlist.MediaPlaylistTypeVOD)
	m := &playlist.Media{
		Version:        3,
		TargetDuration: segSeconds,
		MediaSequence:  0,
		PlaylistType:   &vod,
		Segments:       segments,
		Endlist:        true,
	}
	return m.Marshal()
}
