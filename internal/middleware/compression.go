package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"media-library/internal/mediatypes"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body worth compressing.
	MinSize int
	// Level is the gzip compression level (gzip.BestSpeed to gzip.BestCompression)
	Level int
	// Types lists the compressible media types. Everything else, media in
	// particular, passes through without being buffered.
	Types []string
}

// DefaultCompressionConfig compresses playlists, JSON and plain-text errors.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.BestSpeed,
		Types: []string{
			mediatypes.MimeHLSPlaylist,
			"application/x-mpegurl",
			"application/json",
			"text/plain",
		},
	}
}

type encoding int

const (
	pending encoding = iota
	identity
	gzipped
)

var gzipPools sync.Map // level -> *sync.Pool

func gzipPool(level int) *sync.Pool {
	if p, ok := gzipPools.Load(level); ok {
		return p.(*sync.Pool)
	}
	p, _ := gzipPools.LoadOrStore(level, &sync.Pool{
		New: func() any {
			w, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				w = gzip.NewWriter(io.Discard)
			}
			return w
		},
	})
	return p.(*sync.Pool)
}

// compressWriter holds back a compressible response until MinSize bytes
// are known, then commits to gzip or identity. Non-compressible responses
// are committed to identity on the first header or write.
type compressWriter struct {
	http.ResponseWriter
	config   CompressionConfig
	types    map[string]bool
	status   int
	buf      []byte
	encoding encoding
	gz       *gzip.Writer
}

func newCompressWriter(w http.ResponseWriter, config CompressionConfig) *compressWriter {
	types := make(map[string]bool, len(config.Types))
	for _, t := range config.Types {
		types[t] = true
	}
	return &compressWriter{
		ResponseWriter: w,
		config:         config,
		types:          types,
		status:         http.StatusOK,
	}
}

func (c *compressWriter) compressible() bool {
	h := c.Header()
	if h.Get("Content-Encoding") != "" || h.Get("Content-Range") != "" {
		return false
	}
	switch c.status {
	case http.StatusNoContent, http.StatusNotModified, http.StatusPartialContent:
		return false
	}
	mediaType, _, _ := strings.Cut(h.Get("Content-Type"), ";")
	return c.types[strings.ToLower(strings.TrimSpace(mediaType))]
}

func (c *compressWriter) WriteHeader(code int) {
	if c.encoding != pending {
		return
	}
	c.status = code
	if !c.compressible() {
		c.commit(identity)
	}
}

func (c *compressWriter) Write(p []byte) (int, error) {
	switch c.encoding {
	case identity:
		return c.ResponseWriter.Write(p)
	case gzipped:
		return c.gz.Write(p)
	}

	if !c.compressible() {
		c.commit(identity)
		return c.ResponseWriter.Write(p)
	}

	c.buf = append(c.buf, p...)
	if len(c.buf) >= c.config.MinSize {
		if err := c.commit(gzipped); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// commit sends the header for the chosen encoding and any held-back body.
func (c *compressWriter) commit(enc encoding) error {
	c.encoding = enc
	if enc == gzipped {
		h := c.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		c.gz = gzipPool(c.config.Level).Get().(*gzip.Writer)
		c.gz.Reset(c.ResponseWriter)
	}
	c.ResponseWriter.WriteHeader(c.status)

	if len(c.buf) == 0 {
		return nil
	}
	var err error
	if enc == gzipped {
		_, err = c.gz.Write(c.buf)
	} else {
		_, err = c.ResponseWriter.Write(c.buf)
	}
	c.buf = nil
	return err
}

// Close settles a pending response and returns the gzip writer to its pool.
func (c *compressWriter) Close() error {
	if c.encoding == pending {
		enc := identity
		if len(c.buf) >= c.config.MinSize && c.compressible() {
			enc = gzipped
		}
		if err := c.commit(enc); err != nil {
			return err
		}
	}
	if c.gz == nil {
		return nil
	}
	err := c.gz.Close()
	gzipPool(c.config.Level).Put(c.gz)
	c.gz = nil
	return err
}

func (c *compressWriter) Flush() {
	if c.encoding == pending {
		enc := identity
		if c.compressible() {
			enc = gzipped
		}
		_ = c.commit(enc)
	}
	if c.gz != nil {
		_ = c.gz.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (c *compressWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}

// Compression gzips playlists and API responses for clients that accept
// it. HEAD and range requests are left alone: byte ranges refer to the
// identity encoding.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead ||
				r.Header.Get("Range") != "" ||
				!strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			cw := newCompressWriter(w, config)
			defer cw.Close()
			next.ServeHTTP(cw, r)
		})
	}
}
