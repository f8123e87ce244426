package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/docstore"
)

// Collection is the document collection holding series records.
const Collection = "series"

// ErrNotFound is returned when a series id does not resolve to a record.
var ErrNotFound = errors.New("series not found")

// Fields managed by the store; never taken from payloads.
var storeManagedFields = []string{"id", "createdAt", "updatedAt"}

// DocumentStore is the subset of the document store the catalog needs.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	List(ctx context.Context, collection string, order docstore.Order) ([]docstore.Document, error)
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// Service reads and writes series documents.
type Service struct {
	store DocumentStore
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a series service over store.
func NewService(store DocumentStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: store,
		log:   log.Named("catalog"),
		now:   time.Now,
	}
}

// WithClock allows tests to override the clock used for write timestamps.
func (s *Service) WithClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// List returns every series summary ordered by title.
func (s *Service) List(ctx context.Context) ([]SeriesListItem, error) {
	docs, err := s.store.List(ctx, Collection, docstore.Order{Field: "title"})
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	return lo.Map(docs, func(doc docstore.Document, _ int) SeriesListItem {
		return SummaryOf(withID(doc))
	}), nil
}

// Get returns the stored document with its id merged in.
func (s *Service) Get(ctx context.Context, id string) (map[string]any, error) {
	doc, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", id, translate(err))
	}
	return withID(doc), nil
}

// Create stores a new series and returns the store-assigned id.
func (s *Service) Create(ctx context.Context, fields map[string]any) (string, error) {
	data := withoutStoreFields(fields)
	stamp := Timestamp(s.now())
	data["createdAt"] = stamp
	data["updatedAt"] = stamp

	id, err := s.store.Add(ctx, Collection, data)
	if err != nil {
		return "", fmt.Errorf("create series: %w", err)
	}
	s.log.Info("series created",
		zap.String("id", id),
		zap.Any("title", data["title"]),
		zap.Int("seasons", seasonCount(data)),
	)
	return id, nil
}

// CreateSeries stores a typed series.
func (s *Service) CreateSeries(ctx context.Context, series Series) (string, error) {
	doc, err := ToDocument(series)
	if err != nil {
		return "", err
	}
	return s.Create(ctx, doc)
}

// Update merges the supplied top-level fields into an existing series.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	data := withoutStoreFields(fields)
	data["updatedAt"] = Timestamp(s.now())

	if err := s.store.Update(ctx, Collection, id, data); err != nil {
		return fmt.Errorf("update series %s: %w", id, translate(err))
	}
	s.log.Info("series updated", zap.String("id", id), zap.Strings("fields", lo.Keys(fields)))
	return nil
}

// Replace overwrites an existing series wholesale. Only the stored creation
// time survives.
func (s *Service) Replace(ctx context.Context, id string, doc map[string]any) error {
	current, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		return fmt.Errorf("replace series %s: %w", id, translate(err))
	}

	data := withoutStoreFields(doc)
	if createdAt, ok := current.Data["createdAt"]; ok {
		data["createdAt"] = createdAt
	}
	data["updatedAt"] = Timestamp(s.now())

	if err := s.store.Set(ctx, Collection, id, data); err != nil {
		return fmt.Errorf("replace series %s: %w", id, translate(err))
	}
	s.log.Info("series replaced", zap.String("id", id), zap.Int("seasons", seasonCount(data)))
	return nil
}

// Delete removes a series. Deleting a missing series is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("delete series %s: %w", id, err)
	}
	s.log.Info("series deleted", zap.String("id", id))
	return nil
}

// IsNotFound reports whether err means the series is absent. Besides the
// sentinel it accepts any message mentioning "not found" or "non trovata",
// which is how remote stores have historically reported it.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, docstore.ErrNotFound) {
		return true
	}
	return containsAny(err.Error(), "not found", "non trovata")
}

func translate(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func withID(doc docstore.Document) map[string]any {
	out := make(map[string]any, len(doc.Data)+1)
	for key, value := range doc.Data {
		out[key] = value
	}
	out["id"] = doc.ID
	return out
}

func withoutStoreFields(fields map[string]any) map[string]any {
	return lo.OmitByKeys(fields, storeManagedFields)
}

func seasonCount(data map[string]any) int {
	seasons, _ := data["seasons"].([]any)
	return len(seasons)
}

func containsAny(msg string, needles ...string) bool {
	msg = strings.ToLower(msg)
	return lo.SomeBy(needles, func(needle string) bool {
		return strings.Contains(msg, needle)
	})
}
