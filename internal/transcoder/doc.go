// Package transcoder runs ffmpeg to remux or transcode media for browser
// playback and ffprobe to read codec metadata.
//
// A Pipeline wraps one ffmpeg process per request. Its stdout is copied to
// the HTTP client and, through a separate goroutine, to a cache fill; the
// fill is promoted only after a clean exit. Client disconnects kill the
// whole process group with SIGKILL. Every running process is tracked so
// Cleanup can kill them on shutdown and Active can report them.
//
// Output is always a stream-friendly format: fragmented MP4
// (frag_keyframe+empty_moov), WebM, or MPEG-TS for HLS segments.
package transcoder
