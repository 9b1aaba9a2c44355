/*
Package streaming provides timeout-protected streaming for HTTP responses
whose length is not known up front, such as the live output of a remux or
transcode process.

# Overview

A client that stops reading must not pin an ffmpeg process forever. The
TimeoutWriter wraps http.ResponseWriter and turns a stalled or vanished
client into an error returned from Write, which the process pipeline treats
as a cancellation and answers with a hard kill.

# Usage

	tw := streaming.NewTimeoutWriter(r.Context(), w, streaming.DefaultTimeoutWriterConfig())
	defer tw.Close()

	if _, err := io.Copy(tw, stdout); streaming.IsDisconnect(err) {
		return // not a server error
	}

# Errors

	ErrClientGone      the request context was canceled
	ErrWriteTimeout    a write blocked longer than WriteTimeout, or nothing
	                   was written for IdleTimeout
	ErrStreamCanceled  the owner called Close

Large writes are split into ChunkSize pieces, each flushed so fragments
reach the player as soon as ffmpeg produces them. On a real connection the
per-chunk bound is a write deadline set through http.ResponseController,
which is why every middleware wrapper implements Unwrap.
*/
package streaming
