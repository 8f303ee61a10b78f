// Package media prepares panorama images for the viewer: it decodes uploads
// and local files, downscales wide images, re-encodes them as JPEG and keeps
// the result in an object store.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"

	"github.com/tour360/editor/internal/cache"
	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/metrics"
	"github.com/tour360/editor/pkg/core"
)

const (
	DefaultMaxWidth    = 4096
	DefaultJPEGQuality = 85
)

var dataURLPattern = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// ErrEmptyRef is returned for an empty image reference.
var ErrEmptyRef = errors.New("empty image reference")

// Preparer turns image references into references the viewer can load fast.
type Preparer struct {
	dir      string
	maxWidth int
	quality  int
	store    ObjectStore
	cache    *cache.ImageCache
	log      *slog.Logger

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// NewPreparer builds a preparer storing results in store.
func NewPreparer(cfg config.MediaConfig, store ObjectStore, log *slog.Logger) *Preparer {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if log == nil {
		log = slog.Default()
	}
	return &Preparer{
		dir:      cfg.Dir,
		maxWidth: cfg.MaxWidth,
		quality:  cfg.JPEGQuality,
		store:    store,
		cache:    cache.NewImageCache(),
		log:      log.With("component", "media"),
		inflight: make(map[string]chan struct{}),
	}
}

// Store returns the object store prepared images are kept in.
func (p *Preparer) Store() ObjectStore { return p.store }

// Prepare returns the prepared reference for ref. Remote URLs and already
// prepared references pass through unchanged. On failure the original ref is
// returned together with the error.
func (p *Preparer) Prepare(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", ErrEmptyRef
	}
	if passthrough(ref) {
		return ref, nil
	}

	for {
		if prepared, ok := p.cache.Get(ref); ok {
			metrics.ImageCacheHits.WithLabelValues("hit").Inc()
			return prepared, nil
		}

		p.mu.Lock()
		wait, busy := p.inflight[ref]
		if !busy {
			wait = make(chan struct{})
			p.inflight[ref] = wait
		}
		p.mu.Unlock()

		if !busy {
			break
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ref, ctx.Err()
		}
		if _, ok := p.cache.Get(ref); !ok {
			// the other preparation failed; do not retry on its behalf
			return ref, fmt.Errorf("prepare %s: concurrent preparation failed", shortRef(ref))
		}
	}
	defer func() {
		p.mu.Lock()
		close(p.inflight[ref])
		delete(p.inflight, ref)
		p.mu.Unlock()
	}()
	metrics.ImageCacheHits.WithLabelValues("miss").Inc()

	prepared, err := p.prepare(ctx, ref)
	if err != nil {
		p.log.Warn("Image preparation failed, keeping original", "ref", shortRef(ref), "error", err)
		return ref, err
	}
	p.cache.Set(ref, prepared)
	return prepared, nil
}

func (p *Preparer) prepare(ctx context.Context, ref string) (string, error) {
	start := time.Now()

	raw, err := p.read(ref)
	if err != nil {
		return "", err
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	name := strings.ToLower(ulid.Make().String()) + ".jpg"
	if err := p.store.Put(ctx, name, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}

	elapsed := time.Since(start)
	metrics.ImagePrepareLatency.Observe(float64(elapsed.Milliseconds()))
	p.log.Info("Prepared image",
		"name", name,
		"source", fmt.Sprintf("%dx%d", width, height),
		"in", humanize.Bytes(uint64(len(raw))),
		"out", humanize.Bytes(uint64(buf.Len())),
		"duration", elapsed)
	return URLPrefix + name, nil
}

// read returns the encoded image bytes behind a data URL or a media file.
func (p *Preparer) read(ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "data:") {
		if !dataURLPattern.MatchString(ref) {
			return nil, fmt.Errorf("invalid image data URL")
		}
		decoded, err := base64.StdEncoding.DecodeString(dataURLPattern.ReplaceAllString(ref, ""))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64: %w", err)
		}
		return decoded, nil
	}

	if p.dir == "" {
		return nil, fmt.Errorf("no media directory for %q", ref)
	}
	rel := filepath.Clean("/" + filepath.FromSlash(ref))
	data, err := os.ReadFile(filepath.Join(p.dir, rel))
	if err != nil {
		return nil, fmt.Errorf("read media file: %w", err)
	}
	return data, nil
}

// Preload prepares refs concurrently and waits for all of them.
func (p *Preparer) Preload(ctx context.Context, refs []string) {
	var wg sync.WaitGroup
	for _, ref := range refs {
		if ref == "" || passthrough(ref) {
			continue
		}
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			_, _ = p.Prepare(ctx, ref)
		}(ref)
	}
	wg.Wait()
}

// PreloadConnected warms the cache for every scene linked from sceneID.
func (p *Preparer) PreloadConnected(ctx context.Context, t core.Tour, sceneID string) {
	var refs []string
	for _, id := range t.LinkedSceneIDs(sceneID) {
		if sc, ok := t.Scene(id); ok {
			refs = append(refs, sc.ImageURL)
		}
	}
	p.Preload(ctx, refs)
}

// Cached reports how many references have been prepared.
func (p *Preparer) Cached() int { return p.cache.Len() }

func passthrough(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, URLPrefix)
}

func shortRef(ref string) string {
	if len(ref) > 64 {
		return ref[:64] + "..."
	}
	return ref
}
