package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/storage/archive"
)

const (
	DefaultTicksPrefix  = "ticks/"
	DefaultTradesPrefix = "trades/"
)

// ArchiveSource reads JSON records from an object store. Each tick and each
// trade is one object; recency is taken from the object's modification time.
type ArchiveSource struct {
	store        archive.Storage
	ticksPrefix  string
	tradesPrefix string
}

// NewArchive creates an ArchiveSource. Empty prefixes fall back to the defaults.
func NewArchive(store archive.Storage, ticksPrefix, tradesPrefix string) *ArchiveSource {
	if ticksPrefix == "" {
		ticksPrefix = DefaultTicksPrefix
	}
	if tradesPrefix == "" {
		tradesPrefix = DefaultTradesPrefix
	}
	return &ArchiveSource{
		store:        store,
		ticksPrefix:  ticksPrefix,
		tradesPrefix: tradesPrefix,
	}
}

func (a *ArchiveSource) LatestTickTime(ctx context.Context) (time.Time, error) {
	objs, err := a.newest(ctx, a.ticksPrefix, 1)
	if err != nil {
		return time.Time{}, err
	}
	if len(objs) == 0 {
		return time.Time{}, core.ErrNoData
	}
	return objs[0].LastModified, nil
}

func (a *ArchiveSource) Ticks(ctx context.Context, n int) ([]core.Tick, error) {
	objs, err := a.newest(ctx, a.ticksPrefix, n)
	if err != nil {
		return nil, err
	}

	ticks := make([]core.Tick, len(objs))
	for i, obj := range objs {
		var t core.Tick
		if err := a.decode(ctx, obj.Path, &t); err != nil {
			return nil, err
		}
		if !t.IsValid() {
			return nil, core.WrapError(core.ErrInvalidRecord, fmt.Errorf("%s: missing timestamp or rate", obj.Path))
		}
		// newest objects come first; ticks are returned oldest first
		ticks[len(objs)-1-i] = t
	}
	return ticks, nil
}

func (a *ArchiveSource) Trades(ctx context.Context, strategy string, n int) ([]core.Trade, error) {
	prefix := a.tradesPrefix + strings.Trim(strategy, "/") + "/"
	objs, err := a.newest(ctx, prefix, n)
	if err != nil {
		return nil, err
	}

	trades := make([]core.Trade, 0, len(objs))
	for _, obj := range objs {
		var t core.Trade
		if err := a.decode(ctx, obj.Path, &t); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func (a *ArchiveSource) Close() error { return nil }

func (a *ArchiveSource) newest(ctx context.Context, prefix string, n int) ([]archive.Object, error) {
	objs, err := a.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("listing %s: %w", prefix, err))
	}
	return archive.Newest(objs, n), nil
}

func (a *ArchiveSource) decode(ctx context.Context, path string, v any) error {
	data, err := a.store.Read(ctx, path)
	if err != nil {
		return core.WrapError(core.ErrSourceFailed, fmt.Errorf("reading %s: %w", path, err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.WrapError(core.ErrInvalidRecord, fmt.Errorf("%s: %w", path, err))
	}
	return nil
}
