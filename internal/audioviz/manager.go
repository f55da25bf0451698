// Package audioviz supplies per-frame amplitude vectors for waveform display,
// backed by a bounded decoded-audio cache. Visualization is best-effort: a
// source that fails to decode is treated as silent and never blocks playback
// or export.
package audioviz

import (
	"context"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/balintmendlik/cutroom/internal/metrics"
	"github.com/balintmendlik/cutroom/internal/timeline"
)

const (
	// NumBuckets is the fixed length of every visualization vector.
	NumBuckets = 512
	// MaxCacheSize bounds the decoded-audio cache.
	MaxCacheSize = 10
	// CacheTTL is the idle lifetime of a decoded-audio entry.
	CacheTTL = 5 * time.Minute

	frameMemoLimit = 100
)

type decodedEntry struct {
	data         Decoded
	lastAccessed time.Time
}

// Manager tracks the audio-bearing items of a timeline and memoizes combined
// visualization frames. Mutations are serialized; memoized reads may run
// concurrently.
type Manager struct {
	mu      sync.RWMutex
	fps     int
	items   []timeline.Item
	decoded *lru.Cache[string, *decodedEntry]

	// frame memo, bounded, evicted oldest-inserted first
	memo      map[int][]float64
	memoOrder []int

	// sources whose decode failed; silent from then on, logged once
	suppressed map[string]struct{}

	decoder  Decoder
	logger   zerolog.Logger
	now      func() time.Time
	inflight singleflight.Group
	decodeWG sync.WaitGroup
}

// NewManager constructs a Manager around the given decoder.
func NewManager(decoder Decoder, fps int, logger zerolog.Logger) *Manager {
	cache, _ := lru.New[string, *decodedEntry](MaxCacheSize)
	return &Manager{
		fps:        fps,
		decoded:    cache,
		memo:       make(map[int][]float64),
		suppressed: make(map[string]struct{}),
		decoder:    decoder,
		logger:     logger,
		now:        time.Now,
	}
}

// SetFPS updates the frame rate used for window conversion.
func (m *Manager) SetFPS(fps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fps = fps
}

// SetItems replaces the tracked item set. Newly added ids trigger an
// asynchronous decode; removed ids evict their cache entry. The frame memo is
// invalidated wholesale: a changed source set changes every combined frame.
func (m *Manager) SetItems(ctx context.Context, items []timeline.Item) {
	audible := make([]timeline.Item, 0, len(items))
	for _, it := range items {
		if it.HasAudio() {
			audible = append(audible, it)
		}
	}

	m.mu.Lock()
	previous := make(map[string]struct{}, len(m.items))
	for _, it := range m.items {
		previous[it.ID] = struct{}{}
	}
	next := make(map[string]struct{}, len(audible))
	for _, it := range audible {
		next[it.ID] = struct{}{}
	}
	for id := range previous {
		if _, ok := next[id]; !ok {
			m.decoded.Remove(id)
		}
	}
	var added []timeline.Item
	for _, it := range audible {
		if _, ok := previous[it.ID]; !ok {
			added = append(added, it)
		}
	}
	m.items = audible
	m.clearMemoLocked()
	m.mu.Unlock()

	for _, it := range added {
		if src := it.Source(); src != "" {
			m.startDecode(ctx, src, it.ID)
		}
	}
}

// UpdateItem replaces one tracked item in place. A changed source re-triggers
// decode for that id; timing-only edits just update the numbers. The frame
// memo is cleared either way.
func (m *Manager) UpdateItem(ctx context.Context, item timeline.Item) {
	var redecode bool
	m.mu.Lock()
	for i, existing := range m.items {
		if existing.ID != item.ID {
			continue
		}
		if existing.Source() != item.Source() {
			redecode = true
		}
		m.items[i] = item
		break
	}
	m.clearMemoLocked()
	m.mu.Unlock()

	if redecode {
		if src := item.Source(); src != "" {
			m.startDecode(ctx, src, item.ID)
		}
	}
}

// SyncItems applies UpdateItem for every incoming item that differs from the
// tracked copy with the same id.
func (m *Manager) SyncItems(ctx context.Context, items []timeline.Item) {
	m.mu.RLock()
	tracked := make(map[string]timeline.Item, len(m.items))
	for _, it := range m.items {
		tracked[it.ID] = it
	}
	m.mu.RUnlock()

	for _, it := range items {
		existing, ok := tracked[it.ID]
		if !ok {
			continue
		}
		if !cmp.Equal(existing, it) {
			m.UpdateItem(ctx, it)
		}
	}
}

// DataForFrame returns the combined visualization vector for the frame:
// bucket-wise maximum over every tracked item audible at that point, zeros
// for items that are undecoded, out of window, or suppressed.
func (m *Manager) DataForFrame(frame int) []float64 {
	m.mu.RLock()
	if cached, ok := m.memo[frame]; ok {
		m.mu.RUnlock()
		metrics.IncFrameLookup("hit")
		return cached
	}
	m.mu.RUnlock()
	metrics.IncFrameLookup("miss")

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.memo[frame]; ok {
		return cached
	}

	combined := make([]float64, NumBuckets)
	for _, it := range m.items {
		entry, ok := m.decoded.Get(it.ID)
		if !ok {
			continue
		}

		displayFrom := timeline.FrameAt(it.Display.From, m.fps)
		displayTo := timeline.FrameAt(it.Display.To, m.fps)
		if frame < displayFrom || frame > displayTo {
			continue
		}

		trimOffset := 0
		if it.Trim != nil && it.Trim.From != nil {
			trimOffset = timeline.FrameAt(*it.Trim.From, m.fps)
		}
		sourceFrame := frame - displayFrom + trimOffset

		values := m.decoder.Sample(entry.data, sourceFrame, m.fps, NumBuckets)
		entry.lastAccessed = m.now()
		for i := 0; i < NumBuckets && i < len(values); i++ {
			if values[i] > combined[i] {
				combined[i] = values[i]
			}
		}
	}

	m.memo[frame] = combined
	m.memoOrder = append(m.memoOrder, frame)
	if len(m.memoOrder) > frameMemoLimit {
		oldest := m.memoOrder[0]
		m.memoOrder = m.memoOrder[1:]
		delete(m.memo, oldest)
	}
	return combined
}

// WaitDecodes blocks until every in-flight decode has settled. The offline
// renderer calls this before sampling a full export.
func (m *Manager) WaitDecodes() {
	m.decodeWG.Wait()
}

// CachedEntries reports the current decoded-audio cache size.
func (m *Manager) CachedEntries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decoded.Len()
}

func (m *Manager) startDecode(ctx context.Context, src, id string) {
	m.mu.RLock()
	_, skip := m.suppressed[src]
	m.mu.RUnlock()
	if skip {
		return
	}

	// The decode outlives the triggering request; a cancelled caller must
	// not suppress the source forever.
	decodeCtx := context.WithoutCancel(ctx)

	m.decodeWG.Add(1)
	go func() {
		defer m.decodeWG.Done()
		data, err, _ := m.inflight.Do(src, func() (any, error) {
			return m.decoder.Decode(decodeCtx, src)
		})
		if err != nil {
			m.suppress(src, err)
			return
		}
		m.store(id, data)
	}()
}

// suppress marks a source silent after a decode failure. Every failure
// category is skippable; visualization must never break the player.
func (m *Manager) suppress(src string, err error) {
	m.mu.Lock()
	_, seen := m.suppressed[src]
	m.suppressed[src] = struct{}{}
	m.mu.Unlock()

	metrics.IncAudioDecodeFailure()
	if !seen {
		m.logger.Warn().
			Str("event", "audioviz.decode_skipped").
			Str("src", src).
			Err(err).
			Msg("skipping audio analysis, source treated as silent")
	}
}

func (m *Manager) store(id string, data Decoded) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if evicted := m.decoded.Add(id, &decodedEntry{data: data, lastAccessed: m.now()}); evicted {
		metrics.IncCacheEviction("lru")
	}
	m.sweepLocked()
}

// sweepLocked removes decoded entries idle past the TTL. Cleanup piggybacks
// on writes; there is no background goroutine.
func (m *Manager) sweepLocked() {
	cutoff := m.now().Add(-CacheTTL)
	for _, key := range m.decoded.Keys() {
		entry, ok := m.decoded.Peek(key)
		if !ok {
			continue
		}
		if entry.lastAccessed.Before(cutoff) {
			m.decoded.Remove(key)
			metrics.IncCacheEviction("ttl")
		}
	}
}

func (m *Manager) clearMemoLocked() {
	m.memo = make(map[int][]float64)
	m.memoOrder = m.memoOrder[:0]
}
