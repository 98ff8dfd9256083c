// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package ingest connects the entity store to its upstreams: a REST
// bootstrap fetch, a streaming telemetry channel, and the offline cache.
//
// The pipeline is an actor. One goroutine (Run) owns the pending buffer,
// the flush ticker and the cache-debounce timer; the socket reader only
// decodes frames and hands them over a channel. Merge work is therefore
// paced by the flush interval, not by arrival rate, which is what keeps
// the store usable under tens of thousands of updates per second.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/auditsec/geowatch/internal/cache"
	"github.com/auditsec/geowatch/internal/logging"
	"github.com/auditsec/geowatch/internal/metrics"
	"github.com/auditsec/geowatch/internal/models"
	"github.com/auditsec/geowatch/internal/store"
)

// ConnState is the streaming channel state exposed by Status.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Config holds the pipeline endpoints and timing contracts. Zero
// durations fall back to the standard values.
type Config struct {
	// APIURL is the bootstrap base; the fetch goes to {APIURL}/entities.
	APIURL string
	// StreamURL is the websocket telemetry channel.
	StreamURL string

	FlushInterval    time.Duration
	RetryDelay       time.Duration
	CacheDebounce    time.Duration
	BootstrapTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.FlushInterval <= 0 {
		c.FlushInterval = 120 * time.Millisecond
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 1500 * time.Millisecond
	}
	if c.CacheDebounce <= 0 {
		c.CacheDebounce = time.Second
	}
	if c.BootstrapTimeout <= 0 {
		c.BootstrapTimeout = 10 * time.Second
	}
	return c
}

// Status is a point-in-time snapshot of pipeline health.
type Status struct {
	State        ConnState  `json:"state"`
	Offline      bool       `json:"offline"`
	LastUpdateAt time.Time  `json:"last_update_at"`
	Pending      int        `json:"pending"`
	CacheMeta    cache.Meta `json:"cache_meta"`
}

// Pipeline feeds the entity store from the configured upstreams.
type Pipeline struct {
	cfg    Config
	store  *store.Store
	cache  *cache.EntityCache // nil when the offline cache is disabled
	log    zerolog.Logger
	client *http.Client
	dialer *websocket.Dialer

	mu         sync.Mutex
	state      ConnState
	offline    bool
	lastUpdate time.Time
	cacheMeta  cache.Meta
	pending    map[string]models.MonitoringEntity

	msgCh   chan streamMessage
	dirty   chan struct{} // signals the run loop to re-arm the cache debounce
	updates chan struct{} // coalesced change notifications for consumers
}

// New creates a pipeline over the given store. ec may be nil to disable
// offline caching.
func New(cfg Config, st *store.Store, ec *cache.EntityCache) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		cache:   ec,
		log:     logging.With().Str("component", "ingest").Logger(),
		client:  &http.Client{Timeout: cfg.BootstrapTimeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.BootstrapTimeout},
		state:   StateDisconnected,
		pending: make(map[string]models.MonitoringEntity),
		msgCh:   make(chan streamMessage, 256),
		dirty:   make(chan struct{}, 1),
		updates: make(chan struct{}, 1),
	}
}

// String identifies the pipeline to its supervisor.
func (p *Pipeline) String() string { return "ingest-pipeline" }

// Updates returns a coalesced notification channel: one token is pending
// whenever the store changed since the consumer last received. Consumers
// read the store on receipt; the token carries no payload.
func (p *Pipeline) Updates() <-chan struct{} { return p.updates }

// Status returns a snapshot of pipeline health.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:        p.state,
		Offline:      p.offline,
		LastUpdateAt: p.lastUpdate,
		Pending:      len(p.pending),
		CacheMeta:    p.cacheMeta,
	}
}

// Serve implements suture.Service. It bootstraps the store, starts the
// socket reader when a stream URL is configured, and then loops as the
// single owner of the pending buffer and both timers until ctx ends.
func (p *Pipeline) Serve(ctx context.Context) error {
	p.bootstrap(ctx)

	if p.cfg.StreamURL != "" {
		go p.streamLoop(ctx)
	}

	flush := time.NewTicker(p.cfg.FlushInterval)
	defer flush.Stop()

	debounce := time.NewTimer(p.cfg.CacheDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()
	armed := false
	rearm := func() {
		if armed && !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(p.cfg.CacheDebounce)
		armed = true
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-p.msgCh:
			p.handle(msg)

		case <-flush.C:
			if merged := p.flushPending(); merged > 0 {
				rearm()
			}

		case <-p.dirty:
			rearm()

		case <-debounce.C:
			armed = false
			p.writeCache()
		}
	}
}

// bootstrap seeds the store before the stream starts. Cache first, so a
// restart has data immediately, then the REST snapshot if an API base is
// configured. A failed or absent fetch leaves the offline flag raised.
func (p *Pipeline) bootstrap(ctx context.Context) {
	p.setOffline(true)

	if p.cache != nil {
		entities, meta, err := p.cache.Load()
		if err != nil {
			p.log.Warn().Err(err).Msg("Offline cache unreadable, starting empty")
		} else if len(entities) > 0 {
			p.store.ReplaceAll(entities)
			p.touch()
			p.mu.Lock()
			p.cacheMeta = meta
			p.mu.Unlock()
			p.log.Info().
				Int("entities", len(entities)).
				Time("cached_at", meta.CachedAt).
				Msg("Seeded store from offline cache")
		}
	}

	if p.cfg.APIURL == "" {
		if p.cfg.StreamURL == "" {
			p.log.Info().Msg("No upstream endpoints configured, operating from cache only")
		}
		return
	}

	entities, err := p.fetchSnapshot(ctx)
	if err != nil {
		p.log.Warn().Err(err).Str("api_url", p.cfg.APIURL).Msg("Bootstrap fetch failed")
		return
	}

	p.store.ReplaceAll(entities)
	p.setOffline(false)
	p.touch()
	p.markDirty()
	p.log.Info().Int("entities", len(entities)).Msg("Bootstrapped store from REST snapshot")
}

// fetchSnapshot GETs the full entity list from the REST bootstrap URL.
func (p *Pipeline) fetchSnapshot(ctx context.Context) ([]models.MonitoringEntity, error) {
	url := p.cfg.APIURL + "/entities"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build bootstrap request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bootstrap fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bootstrap fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap body: %w", err)
	}

	var entities []models.MonitoringEntity
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, fmt.Errorf("decode bootstrap body: %w", err)
	}
	return entities, nil
}

// streamLoop dials the streaming channel and re-dials on any failure
// after a fixed delay. Retry is unconditional: the common failure mode
// is the upstream not being up yet.
func (p *Pipeline) streamLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.setState(StateConnecting)

		conn, resp, err := p.dialer.DialContext(ctx, p.cfg.StreamURL, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			p.setState(StateDisconnected)
			p.log.Warn().Err(err).Str("stream_url", p.cfg.StreamURL).Msg("Stream dial failed")
			if !sleepCtx(ctx, p.cfg.RetryDelay) {
				return
			}
			continue
		}

		p.setState(StateConnected)
		p.setOffline(false)
		p.log.Info().Str("stream_url", p.cfg.StreamURL).Msg("Stream connected")

		p.readConn(ctx, conn)

		p.setState(StateDisconnected)
		if !sleepCtx(ctx, p.cfg.RetryDelay) {
			return
		}
	}
}

// readConn reads frames until the connection or ctx dies. The watcher
// goroutine closes the socket on cancellation to unblock ReadMessage.
func (p *Pipeline) readConn(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				p.log.Warn().Err(err).Msg("Stream read failed")
			}
			return
		}

		msg, err := decodeMessage(data)
		if err != nil {
			metrics.RecordMessage("invalid", "dropped")
			p.log.Debug().Err(err).Msg("Dropped malformed stream frame")
			continue
		}

		select {
		case p.msgCh <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// handle applies one decoded frame inside the run loop.
func (p *Pipeline) handle(msg streamMessage) {
	switch msg.Type {
	case msgSnapshot:
		p.ApplySnapshot(msg.Entities)
		metrics.RecordMessage(msg.Type, "ok")
	case msgUpsert:
		p.Enqueue(*msg.Entity)
		metrics.RecordMessage(msg.Type, "ok")
	case msgBatch:
		p.Enqueue(msg.Entities...)
		metrics.RecordMessage(msg.Type, "ok")
	}
}

// ApplySnapshot replaces the store immediately, bypassing the pending
// buffer. A snapshot is authoritative: buffered partial updates that
// predate it are discarded.
func (p *Pipeline) ApplySnapshot(entities []models.MonitoringEntity) {
	p.mu.Lock()
	clear(p.pending)
	p.mu.Unlock()

	start := time.Now()
	p.store.ReplaceAll(entities)
	metrics.ObserveMerge(len(entities), p.store.Len(), time.Since(start))

	p.setOffline(false)
	p.touch()
	p.markDirty()
}

// Enqueue buffers partial updates for the next flush. Later updates for
// the same id overwrite earlier ones; records without an id are dropped.
func (p *Pipeline) Enqueue(entities ...models.MonitoringEntity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range entities {
		e := entities[i]
		if e.ID == "" {
			continue
		}
		if prev, ok := p.pending[e.ID]; ok {
			prev.Merge(e)
			p.pending[e.ID] = prev
			continue
		}
		p.pending[e.ID] = e
	}
}

// flushPending drains the pending buffer into one MergeBatch pass and
// returns the number of records merged.
func (p *Pipeline) flushPending() int {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return 0
	}
	batch := make([]models.MonitoringEntity, 0, len(p.pending))
	for _, e := range p.pending {
		batch = append(batch, e)
	}
	clear(p.pending)
	p.mu.Unlock()

	start := time.Now()
	if err := p.store.MergeBatch(batch); err != nil {
		p.log.Error().Err(err).Int("batch", len(batch)).Msg("Merge batch rejected")
		return 0
	}
	metrics.ObserveMerge(len(batch), p.store.Len(), time.Since(start))

	p.touch()
	return len(batch)
}

// writeCache persists the current store to the offline cache.
func (p *Pipeline) writeCache() {
	if p.cache == nil {
		return
	}
	now := time.Now().UTC()
	entities := p.store.Entities()

	err := p.cache.Put(entities, now)
	metrics.RecordCacheWrite(err)
	if err != nil {
		p.log.Warn().Err(err).Msg("Offline cache write failed")
		return
	}

	p.mu.Lock()
	p.cacheMeta = cache.Meta{CachedAt: now, Count: len(entities)}
	p.mu.Unlock()
	p.log.Debug().Int("entities", len(entities)).Msg("Offline cache updated")
}

func (p *Pipeline) setState(s ConnState) {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()
	if prev != s {
		p.log.Debug().Str("from", string(prev)).Str("to", string(s)).Msg("Stream state changed")
	}
}

func (p *Pipeline) setOffline(offline bool) {
	p.mu.Lock()
	p.offline = offline
	p.mu.Unlock()
}

// touch records a store change and notifies consumers.
func (p *Pipeline) touch() {
	p.mu.Lock()
	p.lastUpdate = time.Now().UTC()
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// markDirty asks the run loop to re-arm the cache-debounce timer for a
// merge that happened outside the flush path.
func (p *Pipeline) markDirty() {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

// sleepCtx sleeps for d unless ctx ends first. Reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
