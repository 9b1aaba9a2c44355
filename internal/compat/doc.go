// Package compat holds the static browser compatibility table: which video
// codecs, audio codecs and containers a browser plays without help, which
// codecs each container may carry, and which containers need their seek
// index at the front of the file.
//
// Every function is pure. Inputs are normalized so raw ffprobe values
// ("mov,mp4,m4a,3gp,3g2,mj2", "avc1", "HEVC") can be passed directly.
package compat
