package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

	"media-library/internal/cache"
	"media-library/internal/decision"
	"media-library/internal/hls"
	"media-library/internal/mediatypes"
	"media-library/internal/transcoder"

	"github.com/gorilla/mux"
)

func writePlaylist(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", mediatypes.MimeHLSPlaylist)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// hlsTarget resolves the media and checks it can be segmented at all.
func (h *Handlers) hlsTarget(w http.ResponseWriter, r *http.Request) (*target, bool) {
	t, ok := h.resolve(w, r)
	if !ok {
		return nil, false
	}
	if h.transcodingUnavailable(w) {
		return nil, false
	}
	if !t.desc.IsVideo() {
		writeJSONError(w, "adaptive streaming is only available for video", http.StatusBadRequest)
		return nil, false
	}
	return t, true
}

// streamQuality parses the {quality} route variable. Only transcoded
// renditions the source can fill are segmented.
func streamQuality(r *http.Request, t *target) (decision.Quality, bool) {
	q, err := decision.ParseQuality(mux.Vars(r)["quality"])
	if err != nil || q == decision.QualityOriginal {
		return "", false
	}
	if !slices.Contains(decision.AvailableQualities(t.desc.Width, t.desc.Height), q) {
		return "", false
	}
	return q, true
}

// MasterPlaylist serves the multivariant playlist.
// GET /media/{id}/stream/master.m3u8
func (h *Handlers) MasterPlaylist(w http.ResponseWriter, r *http.Request) {
	t, ok := h.hlsTarget(w, r)
	if !ok {
		return
	}

	body, err := hls.Master(t.desc, decision.AvailableQualities(t.desc.Width, t.desc.Height))
	if errors.Is(err, hls.ErrNotApplicable) {
		writeJSONError(w, "adaptive streaming is not available for this media", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("Master playlist for media %d: %v", t.desc.ID, err)
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writePlaylist(w, body)
}

// VariantPlaylist serves the media playlist of one rendition.
// GET /media/{id}/stream/{quality}/index.m3u8
func (h *Handlers) VariantPlaylist(w http.ResponseWriter, r *http.Request) {
	t, ok := h.hlsTarget(w, r)
	if !ok {
		return
	}
	q, ok := streamQuality(r, t)
	if !ok {
		writeJSONError(w, "rendition not found", http.StatusNotFound)
		return
	}

	body, err := hls.Variant(t.desc.ID, q, t.desc.Duration, h.opts.SegmentSeconds)
	if errors.Is(err, hls.ErrNotApplicable) {
		writeJSONError(w, "media duration unknown", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("Variant playlist for media %d %s: %v", t.desc.ID, q, err)
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writePlaylist(w, body)
}

// Segment serves one MPEG-TS segment, from cache or a fresh encode.
// GET /media/{id}/stream/{quality}/{segment}.ts
func (h *Handlers) Segment(w http.ResponseWriter, r *http.Request) {
	t, ok := h.hlsTarget(w, r)
	if !ok {
		return
	}
	q, ok := streamQuality(r, t)
	if !ok {
		writeJSONError(w, "rendition not found", http.StatusNotFound)
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["segment"])
	if err != nil {
		writeJSONError(w, "segment not found", http.StatusNotFound)
		return
	}
	start, length, ok := hls.SegmentBounds(index, t.desc.Duration, h.opts.SegmentSeconds)
	if !ok {
		writeJSONError(w, "segment not found", http.StatusNotFound)
		return
	}

	variant := cache.SegmentVariant(string(q), index)
	if h.serveCached(w, r, t.desc.ID, variant, mediatypes.MimeMPEGTS) {
		return
	}

	slot, ok := h.admit(w, r, t.desc.ID, variant, mediatypes.MimeMPEGTS)
	if !ok {
		return
	}

	h.servePipe(w, r, transcoder.Job{
		MediaID:  t.desc.ID,
		Variant:  variant,
		Kind:     transcoder.KindSegment,
		Source:   t.desc.Path,
		Quality:  q,
		Start:    start,
		Duration: length,
		Slot:     slot,
	}, mediatypes.MimeMPEGTS, modeTranscode)
}
