// Package hls generates HLS playlists for transcoded renditions.
//
// The master playlist lists one variant per quality a source supports,
// annotated with bandwidth, resolution and codecs. Each variant points at a
// VOD media playlist whose MPEG-TS segments are encoded on demand by the
// delivery layer. Playlists are marshaled with gohlslib.
package hls
