package transcoder

import (
	"fmt"
	"strconv"

	"media-library/internal/decision"
)

// fragmentedMP4 makes the muxer emit a moov box up front and self-contained
// fragments after it, so playback starts before the process finishes.
const fragmentedMP4 = "frag_keyframe+empty_moov+default_base_moof"

func inputArgs(src string) []string {
	return []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-i", src}
}

// RemuxArgs copies the first video and audio stream into container without
// re-encoding.
func RemuxArgs(src, container string) []string {
	args := inputArgs(src)
	args = append(args,
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-c", "copy",
	)
	if container == "webm" {
		return append(args, "-f", "webm", "pipe:1")
	}
	return append(args,
		"-movflags", fragmentedMP4,
		"-f", "mp4",
		"pipe:1",
	)
}

// scaleFilter bounds the short side of the output by height without ever
// upscaling, keeping both dimensions even for yuv420p.
func scaleFilter(height int) string {
	return fmt.Sprintf(
		"scale='if(gt(iw,ih),-2,trunc(min(%[1]d,iw)/2)*2)':'if(gt(iw,ih),trunc(min(%[1]d,ih)/2)*2,-2)'",
		height)
}

func kbps(bps int) string {
	return strconv.Itoa(bps/1000) + "k"
}

func encodeArgs(p decision.Preset) []string {
	return []string{
		"-vf", scaleFilter(p.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "high",
		"-pix_fmt", "yuv420p",
		"-b:v", kbps(p.VideoBitrate),
		"-maxrate", kbps(p.MaxRate()),
		"-bufsize", kbps(p.BufSize()),
		"-c:a", "aac",
		"-b:a", kbps(p.AudioBitrate),
		"-ac", "2",
	}
}

// TranscodeArgs re-encodes to H.264/AAC in fragmented MP4 within the
// preset's resolution and bitrate ceiling.
func TranscodeArgs(src string, p decision.Preset) []string {
	args := inputArgs(src)
	args = append(args, "-map", "0:v:0", "-map", "0:a:0?")
	args = append(args, encodeArgs(p)...)
	return append(args,
		"-movflags", fragmentedMP4,
		"-f", "mp4",
		"pipe:1",
	)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// SegmentArgs encodes one HLS segment of length dur starting at start as
// MPEG-TS. Timestamps are offset so consecutive segments line up.
func SegmentArgs(src string, p decision.Preset, start, dur float64) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin",
		"-ss", seconds(start),
		"-i", src,
		"-t", seconds(dur),
		"-map", "0:v:0", "-map", "0:a:0?",
	}
	args = append(args, encodeArgs(p)...)
	return append(args,
		"-force_key_frames", "expr:gte(t,0)",
		"-output_ts_offset", seconds(start),
		"-muxdelay", "0",
		"-f", "mpegts",
		"pipe:1",
	)
}
