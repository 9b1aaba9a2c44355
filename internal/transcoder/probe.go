package transcoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"media-library/internal/compat"
	"media-library/internal/decision"
	"media-library/internal/mediatypes"
)

// ProbeResult is the metadata the decision engine needs, as reported by
// ffprobe.
type ProbeResult struct {
	Container  string  `json:"container"`
	VideoCodec string  `json:"videoCodec"`
	AudioCodec string  `json:"audioCodec"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Duration   float64 `json:"duration"`
	FastStart  *bool   `json:"fastStart,omitempty"`
}

// Descriptor fills a MediaDescriptor from the probe result.
func (r *ProbeResult) Descriptor(id, libraryID int64, path string) decision.MediaDescriptor {
	return decision.MediaDescriptor{
		ID:         id,
		LibraryID:  libraryID,
		Path:       path,
		Type:       mediatypes.FileTypeForPath(path),
		VideoCodec: r.VideoCodec,
		AudioCodec: r.AudioCodec,
		Container:  r.Container,
		Width:      r.Width,
		Height:     r.Height,
		Duration:   r.Duration,
		FastStart:  r.FastStart,
	}
}

// Prober runs ffprobe.
type Prober struct {
	path string
}

// NewProber returns a prober using the ffprobe binary at path ("ffprobe"
// when empty).
func NewProber(path string) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{path: path}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe reads codec, container, dimension and duration information for the
// first video and audio stream of path. For MP4-family files it also checks
// whether the moov box precedes the media data.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, p.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	res := &ProbeResult{Container: out.Format.FormatName}
	if out.Format.Duration != "" {
		res.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			// Cover art shows up as an mjpeg/png video stream after the real one.
			if res.VideoCodec == "" {
				res.VideoCodec = s.CodecName
				res.Width = s.Width
				res.Height = s.Height
			}
		case "audio":
			if res.AudioCodec == "" {
				res.AudioCodec = s.CodecName
			}
		}
	}

	if compat.NeedsFrontLoadedIndex(res.Container) {
		if fast, err := MoovBeforeMdat(path); err == nil {
			res.FastStart = &fast
		}
	}

	return res, nil
}

// MoovBeforeMdat walks the top-level boxes of an ISO BMFF file and reports
// whether the moov box comes before the first mdat box.
func MoovBeforeMdat(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var offset int64
	header := make([]byte, 16)
	for {
		if _, err := f.ReadAt(header[:8], offset); err != nil {
			if errors.Is(err, io.EOF) {
				return false, errors.New("no moov or mdat box found")
			}
			return false, err
		}

		size := int64(binary.BigEndian.Uint32(header[:4]))
		switch string(header[4:8]) {
		case "moov":
			return true, nil
		case "mdat":
			return false, nil
		}

		switch size {
		case 0:
			// Box extends to end of file.
			return false, errors.New("no moov or mdat box found")
		case 1:
			if _, err := f.ReadAt(header[8:16], offset+8); err != nil {
				return false, err
			}
			size = int64(binary.BigEndian.Uint64(header[8:16]))
		}
		if size < 8 {
			return false, fmt.Errorf("invalid box size %d at offset %d", size, offset)
		}
		offset += size
	}
}
