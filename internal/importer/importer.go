package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/jsonvalue"
	"github.com/treefix50/recapadmin/internal/seriesjson"
)

// SentinelSeriesID stands in for the series id when normalizing a payload
// whose target is not known yet.
const SentinelSeriesID = "temp"

var (
	ErrImportInProgress = errors.New("import already in progress")
	ErrValidation       = errors.New("invalid series JSON")
)

// SeriesStore is the part of the series service the importer writes through.
type SeriesStore interface {
	Get(ctx context.Context, id string) (map[string]any, error)
	Create(ctx context.Context, fields map[string]any) (string, error)
	Replace(ctx context.Context, id string, doc map[string]any) error
}

// Options select how an import is applied.
type Options struct {
	// UpdateIfExists overwrites the target series when it exists.
	UpdateIfExists bool
	// SeriesID is the target; the payload's own id is used when empty.
	SeriesID string
}

// Action tells whether an import created a series or replaced one.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Result is the tagged outcome of an import. It is always returned, never
// panicked or thrown.
type Result struct {
	Success  bool   `json:"success"`
	SeriesID string `json:"seriesId,omitempty"`
	Action   Action `json:"action,omitempty"`
	Error    string `json:"error,omitempty"`

	err error
}

// Err returns the failure cause, or nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return errors.New(r.Error)
}

func succeeded(id string, action Action) Result {
	return Result{Success: true, SeriesID: id, Action: action}
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error(), err: err}
}

// Importer validates, normalizes and writes candidate series. Only one
// import runs at a time per Importer.
type Importer struct {
	store    SeriesStore
	log      *zap.Logger
	inFlight atomic.Bool
}

// New creates an importer writing through store.
func New(store SeriesStore, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, log: log.Named("import")}
}

// Busy reports whether an import is currently running.
func (i *Importer) Busy() bool {
	return i.inFlight.Load()
}

// Import applies candidate as a new series, or as a full replacement of an
// existing one when opts.UpdateIfExists is set and a target id resolves.
// A target that turns out not to exist falls back to creation.
func (i *Importer) Import(ctx context.Context, candidate map[string]any, opts Options) (result Result) {
	if !i.inFlight.CompareAndSwap(false, true) {
		i.log.Warn("import rejected", zap.Error(ErrImportInProgress))
		return failed(ErrImportInProgress)
	}
	defer i.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			result = failed(fmt.Errorf("import series: unexpected failure: %v", r))
			i.log.Error("import panicked", zap.Any("panic", r))
		}
	}()

	i.log.Info("import started",
		zap.Bool("updateIfExists", opts.UpdateIfExists),
		zap.String("seriesId", opts.SeriesID),
		zap.Any("payloadId", candidate["id"]),
		zap.Any("title", candidate["title"]),
	)

	result = i.run(ctx, candidate, opts)
	if result.Success {
		i.log.Info("import finished", zap.String("seriesId", result.SeriesID), zap.String("action", string(result.Action)))
	} else {
		i.log.Error("import failed", zap.String("error", result.Error))
	}
	return result
}

func (i *Importer) run(ctx context.Context, candidate map[string]any, opts Options) Result {
	if v := seriesjson.Validate(candidate); !v.Valid {
		return failed(fmt.Errorf("%w: %s", ErrValidation, v.Error))
	}

	payload, err := clone(candidate)
	if err != nil {
		return failed(err)
	}
	payloadID := ""
	if jsonvalue.Truthy(payload["id"]) {
		payloadID = jsonvalue.Format(payload["id"])
	}
	payload = lo.OmitByKeys(payload, []string{"id", "createdAt", "updatedAt"})

	targetID := lo.Ternary(opts.SeriesID != "", opts.SeriesID, payloadID)
	seriesjson.Normalize(payload, lo.Ternary(targetID != "", targetID, SentinelSeriesID))

	if opts.UpdateIfExists && targetID != "" {
		err := i.update(ctx, targetID, payload)
		if err == nil {
			return succeeded(targetID, ActionUpdated)
		}
		if !catalog.IsNotFound(err) {
			return failed(err)
		}
		i.log.Info("target series not found, creating instead", zap.String("seriesId", targetID))
	}

	id, err := i.store.Create(ctx, payload)
	if err != nil {
		return failed(err)
	}
	return succeeded(id, ActionCreated)
}

func (i *Importer) update(ctx context.Context, id string, payload map[string]any) error {
	if _, err := i.store.Get(ctx, id); err != nil {
		return err
	}
	return i.store.Replace(ctx, id, payload)
}

// clone deep-copies a decoded JSON tree so normalization never reaches the
// caller's value.
func clone(doc map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("copy series payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("copy series payload: %w", err)
	}
	return out, nil
}
