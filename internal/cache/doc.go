// Package cache stores the output of remux and transcode processes so a
// variant is produced once and then served with full range support.
//
// # Layout
//
//	<root>/<hh>/<hh>/<mediaID>/<variant>.<ext>
//
// The two <hh> levels are the first two bytes of the SHA-256 of the decimal
// media id. Remux and quality variants use .mp4 (.webm for WebM remuxes),
// HLS segments (variant "hls/<quality>/<n>") use .ts.
//
// # Fills
//
// Begin opens "<final>.<uuid>.partial". Commit fsyncs and renames it onto
// the final path, so Has and Open never see a truncated artifact. Abort
// removes it. SweepPartials clears temp files orphaned by a crash.
package cache
