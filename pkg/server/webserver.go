package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/testbed-portal/discovery-finder/pkg/common"
	"github.com/testbed-portal/discovery-finder/pkg/discovery"
	"github.com/testbed-portal/discovery-finder/pkg/facet"
	"github.com/testbed-portal/discovery-finder/pkg/logger"
	"github.com/testbed-portal/discovery-finder/pkg/store"
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

var (
	noFilterRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discoveryfinder_filter_requests_total",
		Help: "The total number of processed facet filter requests",
	})
	noRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discoveryfinder_refreshes_total",
		Help: "The total number of completed record refreshes",
	})
	noRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discoveryfinder_refresh_failures_total",
		Help: "The total number of failed record refreshes",
	})
	indexedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discoveryfinder_records_total",
		Help: "The number of records in the current index",
	})
)

// Notifier is told about every new snapshot.
type Notifier interface {
	Notify(ctx context.Context, data any) error
}

// WebServer serves one facet index at a time. A refresh builds a complete
// new index and swaps it in, readers never see a partial one.
type WebServer struct {
	mu        sync.RWMutex
	index     *facet.Index
	meta      store.Meta
	lastError error
	refresher *discovery.Refresher[store.Meta]

	Store    store.Store
	Notifier Notifier
}

// NewWebServer serves records from fetcher. Fetches run on ctx, cancelling
// it stops a refresh in flight. fetcher may be nil for a read only server.
func NewWebServer(ctx context.Context, fetcher discovery.Fetcher, st store.Store, notifier Notifier) *WebServer {
	ws := &WebServer{
		index:    facet.NewIndex(nil),
		Store:    st,
		Notifier: notifier,
	}
	if fetcher != nil {
		ws.refresher = discovery.NewRefresher(ctx, fetcher, ws.applyRecords)
		ws.refresher.OnError = ws.refreshFailed
	}
	return ws
}

func (ws *WebServer) current() (*facet.Index, store.Meta) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.index, ws.meta
}

// SetSnapshot indexes the snapshot and makes it current.
func (ws *WebServer) SetSnapshot(snapshot *store.Snapshot) {
	idx := facet.NewIndex(snapshot.Records)
	ws.mu.Lock()
	ws.index = idx
	ws.meta = snapshot.Meta()
	ws.lastError = nil
	ws.mu.Unlock()
	indexedRecords.Set(float64(idx.Len()))
}

// Restore loads the last stored snapshot, if any.
func (ws *WebServer) Restore(ctx context.Context) error {
	if ws.Store == nil {
		return store.ErrNoSnapshot
	}
	snapshot, err := ws.Store.Load(ctx)
	if err != nil {
		return err
	}
	ws.SetSnapshot(snapshot)
	logger.Info().Str("snapshot", snapshot.Id).Int("records", len(snapshot.Records)).Msg("restored snapshot")
	return nil
}

// Refresh fetches all records and swaps in a new index. Callers overlapping
// a refresh in flight share it and get the same snapshot meta. On failure
// the previous index stays in place and the error is kept for /api/status.
func (ws *WebServer) Refresh(ctx context.Context) (store.Meta, error) {
	if ws.refresher == nil {
		return store.Meta{}, errors.New("no record source configured")
	}
	return ws.refresher.Refresh(ctx)
}

func (ws *WebServer) applyRecords(ctx context.Context, records []types.Record) store.Meta {
	snapshot := store.NewSnapshot(records)
	ws.SetSnapshot(snapshot)
	noRefreshes.Inc()

	if ws.Store != nil {
		if err := ws.Store.Save(ctx, snapshot); err != nil {
			logger.Error().Err(err).Msg("failed to store snapshot")
		}
	}
	if ws.Notifier != nil {
		if err := ws.Notifier.Notify(ctx, snapshot.Meta()); err != nil {
			logger.Error().Err(err).Msg("failed to announce snapshot")
		}
	}
	return snapshot.Meta()
}

func (ws *WebServer) refreshFailed(err error) {
	noRefreshFailures.Inc()
	ws.mu.Lock()
	ws.lastError = err
	ws.mu.Unlock()
	logger.Error().Err(err).Msg("refresh failed")
}

// SaveSnapshot stores what is currently served, used on shutdown.
func (ws *WebServer) SaveSnapshot(ctx context.Context) error {
	if ws.Store == nil {
		return nil
	}
	idx, meta := ws.current()
	if meta.Id == "" {
		return nil
	}
	return ws.Store.Save(ctx, &store.Snapshot{Id: meta.Id, FetchedAt: meta.FetchedAt, Records: idx.Records})
}

func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/api/records", common.JsonHandler(ws.Records))
	mux.HandleFunc("/api/facets", common.JsonHandler(ws.Facets))
	mux.HandleFunc("/api/facet-counts", common.JsonHandler(ws.FacetCounts))
	mux.HandleFunc("/api/status", common.JsonHandler(ws.Status))
	mux.HandleFunc("/api/refresh", common.JsonHandler(ws.RefreshHandler))
	return mux
}
