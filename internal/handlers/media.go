package handlers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"media-library/internal/cache"
	"media-library/internal/compat"
	"media-library/internal/database"
	"media-library/internal/decision"
	"media-library/internal/filesystem"
	"media-library/internal/logging"
	"media-library/internal/mediatypes"
	"media-library/internal/metrics"
	"media-library/internal/queue"
	"media-library/internal/streaming"
	"media-library/internal/transcoder"

	"github.com/gorilla/mux"
)

var log = logging.For("delivery")

// Stream modes reported in X-Stream-Mode.
const (
	modeDirect    = "direct"
	modeCached    = "cached"
	modeRemux     = "remux"
	modeTranscode = "transcode"
)

// target is a media request that passed lookup, authorization and the
// source stat.
type target struct {
	desc decision.MediaDescriptor
	dec  decision.StreamDecision
	info os.FileInfo
}

// resolve runs the steps every media endpoint shares. Authorization is
// checked before the source file is touched. On failure the response has
// been written and ok is false.
func (h *Handlers) resolve(w http.ResponseWriter, r *http.Request) (t *target, ok bool) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "invalid media id", http.StatusBadRequest)
		return nil, false
	}

	desc, err := h.store.GetMediaDescriptor(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "media not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Error("Catalog lookup for media %d failed: %v", id, err)
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}

	user := UserFromContext(ctx)
	if user == nil {
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	if err := h.store.CheckLibraryAccess(ctx, user.ID, desc.LibraryID); err != nil {
		if errors.Is(err, database.ErrAccessDenied) {
			log.Debug("User %d denied media %d in library %d", user.ID, id, desc.LibraryID)
			writeJSONError(w, "access denied", http.StatusForbidden)
			return nil, false
		}
		log.Error("Access check for media %d failed: %v", id, err)
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}

	info, err := filesystem.StatWithRetry(r.Context(), desc.Path, filesystem.DefaultRetryConfig())
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Error("Stat %s failed: %v", desc.Path, err)
			writeJSONError(w, "internal error", http.StatusInternalServerError)
			return nil, false
		}
		log.Warn("Media %d source missing: %s", id, desc.Path)
		writeJSONError(w, "media file missing", http.StatusNotFound)
		return nil, false
	}

	dec := decision.Decide(desc)
	metrics.DeliveryDecisionsTotal.WithLabelValues(string(dec.Action)).Inc()

	return &target{desc: desc, dec: dec, info: info}, true
}

// requestedQuality applies the quality parameter to the decision. forced is
// true when the client asked for a transcoded rendition explicitly.
func requestedQuality(r *http.Request, t *target) (q decision.Quality, forced bool, err error) {
	raw := r.URL.Query().Get("quality")
	if raw == "" {
		if t.dec.Action == decision.ActionTranscode {
			return decision.DefaultQuality(t.desc, t.dec), false, nil
		}
		return decision.QualityOriginal, false, nil
	}

	q, err = decision.ParseQuality(raw)
	if err != nil {
		return "", false, err
	}
	if !slices.Contains(decision.ExposedQualities(t.desc, t.dec), q) {
		return "", false, fmt.Errorf("quality %q is not available for this media", q)
	}
	return q, q != decision.QualityOriginal, nil
}

// ServeMedia delivers a media file, choosing direct play, remux or
// transcode. GET/HEAD /media/{id}/file?quality=
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}

	q, forced, err := requestedQuality(r, t)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case forced || t.dec.Action == decision.ActionTranscode:
		h.serveTranscode(w, r, t, q)
	case t.dec.Action == decision.ActionRemux:
		h.serveRemux(w, r, t)
	default:
		h.serveDirect(w, r, t)
	}
}

func (h *Handlers) serveDirect(w http.ResponseWriter, r *http.Request, t *target) {
	f, err := filesystem.OpenWithRetry(r.Context(), t.desc.Path, filesystem.DefaultRetryConfig())
	if err != nil {
		log.Error("Open %s failed: %v", t.desc.Path, err)
		writeJSONError(w, "media file unavailable", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", directContentType(t.desc))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Stream-Mode", modeDirect)
	metrics.DeliveryResponsesTotal.WithLabelValues(modeDirect).Inc()

	// ServeContent answers Range, If-Range and HEAD with 206/416/200.
	http.ServeContent(w, r, filepath.Base(t.desc.Path), t.info.ModTime(), f)
}

// serveCached serves a completed cache artifact with range support. It
// returns false, without writing, when the artifact does not exist.
func (h *Handlers) serveCached(w http.ResponseWriter, r *http.Request, mediaID int64, variant, contentType string) bool {
	if h.cache == nil {
		return false
	}

	f, info, err := h.cache.Open(mediaID, variant)
	if err != nil {
		if !errors.Is(err, cache.ErrNotCached) {
			log.Warn("Cache open for media %d %s failed: %v", mediaID, variant, err)
		}
		return false
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Stream-Mode", modeCached)
	metrics.DeliveryResponsesTotal.WithLabelValues(modeCached).Inc()

	http.ServeContent(w, r, "", info.ModTime(), f)
	return true
}

// directContentType labels a file served as-is by the container it was
// judged playable in, so a .mov in the MP4 family goes out as video/mp4
// and WebM-compatible Matroska as video/webm.
func directContentType(d decision.MediaDescriptor) string {
	if d.IsVideo() {
		switch decision.SourceContainer(d) {
		case compat.ContainerMP4:
			return mediatypes.MimeFragmentedMP4
		case compat.ContainerWebM:
			return mediatypes.GetMimeType(".webm")
		case compat.ContainerOgg:
			return mediatypes.GetMimeType(".ogv")
		}
	}
	return mediatypes.GetMimeType(filepath.Ext(d.Path))
}

func remuxContentType(container string) string {
	if container == compat.ContainerWebM {
		return mediatypes.GetMimeType(".webm")
	}
	return mediatypes.MimeFragmentedMP4
}

func (h *Handlers) transcodingUnavailable(w http.ResponseWriter) bool {
	if h.pipeline.IsEnabled() {
		return false
	}
	writeJSONError(w, "transcoding is unavailable", http.StatusServiceUnavailable)
	return true
}

// serveRemux rewraps the source streams. Remux is cheap and does not take
// a transcode slot.
func (h *Handlers) serveRemux(w http.ResponseWriter, r *http.Request, t *target) {
	if h.transcodingUnavailable(w) {
		return
	}

	variant := t.dec.RemuxVariant()
	contentType := remuxContentType(t.dec.Container)
	if h.serveCached(w, r, t.desc.ID, variant, contentType) {
		return
	}

	h.servePipe(w, r, transcoder.Job{
		MediaID:   t.desc.ID,
		Variant:   variant,
		Kind:      transcoder.KindRemux,
		Source:    t.desc.Path,
		Container: t.dec.Container,
	}, contentType, modeRemux)
}

func (h *Handlers) serveTranscode(w http.ResponseWriter, r *http.Request, t *target, q decision.Quality) {
	if h.transcodingUnavailable(w) {
		return
	}

	variant := string(q)
	contentType := mediatypes.MimeFragmentedMP4
	if h.serveCached(w, r, t.desc.ID, variant, contentType) {
		return
	}
	if r.Method == http.MethodHead {
		setPipeHeaders(w.Header(), contentType, modeTranscode)
		w.WriteHeader(http.StatusOK)
		return
	}

	slot, ok := h.admit(w, r, t.desc.ID, variant, contentType)
	if !ok {
		return
	}

	h.servePipe(w, r, transcoder.Job{
		MediaID: t.desc.ID,
		Variant: variant,
		Kind:    transcoder.KindTranscode,
		Source:  t.desc.Path,
		Quality: q,
		Slot:    slot,
	}, contentType, modeTranscode)
}

// admit waits for a transcode slot. While it waits, another request may
// finish the same variant; then the cached copy is served instead. ok is
// false when the response has already been written or the client left.
func (h *Handlers) admit(w http.ResponseWriter, r *http.Request, mediaID int64, variant, contentType string) (*queue.Slot, bool) {
	ready := func() bool {
		return h.cache != nil && h.cache.Has(mediaID, variant)
	}

	slot, served, err := h.queue.AcquireOrServe(r.Context(), ready)
	if err == nil && served {
		if h.serveCached(w, r, mediaID, variant, contentType) {
			return nil, false
		}
		// Removed between the check and the open.
		slot, err = h.queue.Acquire(r.Context())
	}

	switch {
	case err == nil:
		return slot, true
	case errors.Is(err, queue.ErrQueueFull):
		metrics.DeliveryResponsesTotal.WithLabelValues("rejected").Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(h.opts.RetryAfter.Seconds())))
		writeJSONError(w, "transcode queue full, retry shortly", http.StatusServiceUnavailable)
	default:
		log.Debug("Client left while queued for media %d %s: %v", mediaID, variant, err)
	}
	return nil, false
}

func setPipeHeaders(h http.Header, contentType, mode string) {
	h.Set("Content-Type", contentType)
	h.Del("Content-Length")
	h.Set("Accept-Ranges", "none")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Stream-Mode", mode)
}

// pipeResponse sends the pipe-mode headers on the first byte, so a process
// that fails before producing output can still get an error status.
type pipeResponse struct {
	w           http.ResponseWriter
	body        io.Writer
	contentType string
	mode        string
	started     bool
}

func (p *pipeResponse) start() {
	if p.started {
		return
	}
	p.started = true
	setPipeHeaders(p.w.Header(), p.contentType, p.mode)
	p.w.WriteHeader(http.StatusOK)
}

func (p *pipeResponse) Write(b []byte) (int, error) {
	p.start()
	return p.body.Write(b)
}

// servePipe runs job and streams its output. The process dies with the
// request.
func (h *Handlers) servePipe(w http.ResponseWriter, r *http.Request, job transcoder.Job, contentType, mode string) {
	if r.Method == http.MethodHead {
		job.Slot.Release()
		setPipeHeaders(w.Header(), contentType, mode)
		w.WriteHeader(http.StatusOK)
		return
	}

	tw := streaming.NewTimeoutWriter(r.Context(), w, streaming.DefaultTimeoutWriterConfig())
	defer tw.Close()

	out := &pipeResponse{w: w, body: tw, contentType: contentType, mode: mode}
	metrics.DeliveryResponsesTotal.WithLabelValues("pipe").Inc()

	err := h.pipeline.Run(r.Context(), job, out)
	switch {
	case err == nil:
		out.start()
	case streaming.IsDisconnect(err):
		log.Debug("Client left media %d %s: %v", job.MediaID, job.Variant, err)
	case out.started:
		// Headers are gone; the truncated body is the client's only signal.
		log.Error("Stream of media %d %s broke mid-response: %v", job.MediaID, job.Variant, err)
	case errors.Is(err, transcoder.ErrDisabled):
		writeJSONError(w, "transcoding is unavailable", http.StatusServiceUnavailable)
	default:
		log.Error("Media %d %s failed: %v", job.MediaID, job.Variant, err)
		writeJSONError(w, "transcode failed", http.StatusInternalServerError)
	}
}
