// Package decision decides how a media file is delivered to a browser.
//
// Decide maps a MediaDescriptor to direct play, remux or transcode using
// the compatibility table in package compat:
//
//  1. Missing codec metadata: transcode.
//  2. Native container carrying native codecs with its index at the front
//     (or a container without one): direct.
//  3. Native codecs in the wrong container, or an MP4 whose moov box is not
//     known to be at the front: remux.
//  4. Anything else: transcode.
//
// The quality presets (high 1080p, medium 720p, low 480p) and the rules for
// which of them a source exposes also live here.
package decision
