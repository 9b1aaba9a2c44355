package hls

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"

	"media-library/internal/decision"
)

func source(w, h int) decision.MediaDescriptor {
	return decision.MediaDescriptor{ID: 42, Width: w, Height: h, Duration: 20}
}

func TestMaster(t *testing.T) {
	d := source(1920, 1080)
	qs := []decision.Quality{decision.QualityOriginal, decision.QualityHigh, decision.QualityMedium, decision.QualityLow}

	data, err := Master(d, qs)
	if err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	pl, err := playlist.Unmarshal(data)
	if err != nil {
		t.Fatalf("generated playlist does not parse: %v\n%s", err, data)
	}
	mv, ok := pl.(*playlist.Multivariant)
	if !ok {
		t.Fatalf("got %T, want multivariant", pl)
	}
	if len(mv.Variants) != 3 {
		t.Fatalf("variants = %d, want 3 (original is not segmented)", len(mv.Variants))
	}

	want := []struct {
		uri        string
		resolution string
	}{
		{"/media/42/stream/high/index.m3u8", "1920x1080"},
		{"/media/42/stream/medium/index.m3u8", "1280x720"},
		{"/media/42/stream/low/index.m3u8", "852x480"},
	}
	for i, v := range mv.Variants {
		if v.URI != want[i].uri {
			t.Errorf("variant %d URI = %q, want %q", i, v.URI, want[i].uri)
		}
		if v.Resolution != want[i].resolution {
			t.Errorf("variant %d resolution = %q, want %q", i, v.Resolution, want[i].resolution)
		}
		if v.Bandwidth <= 0 || v.AverageBandwidth == nil || *v.AverageBandwidth > v.Bandwidth {
			t.Errorf("variant %d bandwidth %d / %v", i, v.Bandwidth, v.AverageBandwidth)
		}
	}
	if mv.Variants[0].Bandwidth <= mv.Variants[1].Bandwidth {
		t.Error("high should advertise more bandwidth than medium")
	}
	if !strings.Contains(string(data), "avc1.640028") {
		t.Errorf("codecs missing:\n%s", data)
	}
}

func TestMaster_NotApplicable(t *testing.T) {
	tests := [][]decision.Quality{
		nil,
		{decision.QualityLow},
		{decision.QualityOriginal, decision.QualityLow},
	}
	for _, qs := range tests {
		if _, err := Master(source(640, 360), qs); !errors.Is(err, ErrNotApplicable) {
			t.Errorf("Master(%v) err = %v, want ErrNotApplicable", qs, err)
		}
	}
}

func TestResolution(t *testing.T) {
	high, _ := decision.PresetFor(decision.QualityHigh)
	low, _ := decision.PresetFor(decision.QualityLow)

	tests := []struct {
		p    decision.Preset
		w, h int
		want string
	}{
		{high, 3840, 2160, "1920x1080"},
		{high, 1080, 1920, "1080x1920"},
		{low, 1920, 1080, "852x480"},
		{low, 640, 360, "640x360"},
		{low, 1440, 1080, "640x480"},
		{high, 0, 0, ""},
	}
	for _, tt := range tests {
		if got := Resolution(tt.p, tt.w, tt.h); got != tt.want {
			t.Errorf("Resolution(%s, %dx%d) = %q, want %q", tt.p.Quality, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestSegmentBounds(t *testing.T) {
	tests := []struct {
		index         int
		start, length float64
		ok            bool
	}{
		{0, 0, 6, true},
		{2, 12, 6, true},
		{3, 18, 2, true},
		{4, 0, 0, false},
		{-1, 0, 0, false},
	}
	for _, tt := range tests {
		start, length, ok := SegmentBounds(tt.index, 20, 6)
		if start != tt.start || length != tt.length || ok != tt.ok {
			t.Errorf("SegmentBounds(%d) = %v, %v, %v; want %v, %v, %v",
				tt.index, start, length, ok, tt.start, tt.length, tt.ok)
		}
	}
	if SegmentCount(0, 6) != 0 || SegmentCount(18, 6) != 3 || SegmentCount(18.1, 6) != 4 {
		t.Error("SegmentCount mismatch")
	}
}

func TestVariant(t *testing.T) {
	data, err := Variant(42, decision.QualityLow, 20, 6)
	if err != nil {
		t.Fatalf("Variant() error = %v", err)
	}

	pl, err := playlist.Unmarshal(data)
	if err != nil {
		t.Fatalf("generated playlist does not parse: %v\n%s", err, data)
	}
	media, ok := pl.(*playlist.Media)
	if !ok {
		t.Fatalf("got %T, want media playlist", pl)
	}
	if !media.Endlist {
		t.Error("VOD playlist must end with EXT-X-ENDLIST")
	}
	if media.TargetDuration != 6 {
		t.Errorf("TargetDuration = %d", media.TargetDuration)
	}
	if len(media.Segments) != 4 {
		t.Fatalf("segments = %d, want 4", len(media.Segments))
	}
	if media.Segments[3].URI != "/media/42/stream/low/3.ts" {
		t.Errorf("last segment URI = %q", media.Segments[3].URI)
	}
	if media.Segments[3].Duration != 2*time.Second {
		t.Errorf("last segment duration = %v", media.Segments[3].Duration)
	}
	if !strings.Contains(string(data), "#EXT-X-PLAYLIST-TYPE:VOD") {
		t.Errorf("missing playlist type:\n%s", data)
	}
}

func TestVariant_Errors(t *testing.T) {
	if _, err := Variant(1, decision.QualityOriginal, 20, 6); err == nil {
		t.Error("original has no rendition")
	}
	if _, err := Variant(1, decision.QualityLow, 0, 6); !errors.Is(err, ErrNotApplicable) {
		t.Errorf("unknown duration err = %v", err)
	}
}
