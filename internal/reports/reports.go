// Package reports manages change reports that viewers file against series
// records and that admins review.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/docstore"
)

const Collection = "reportChanges"

type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusRejected Status = "rejected"
)

type ChangeType string

const (
	ChangeDescription ChangeType = "description"
	ChangeMetadata    ChangeType = "metadata"
	ChangeEpisodes    ChangeType = "episodes"
	ChangeOther       ChangeType = "other"
)

var changeTypes = []ChangeType{ChangeDescription, ChangeMetadata, ChangeEpisodes, ChangeOther}

// Filter selects reports by status; FilterAll matches every report.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterPending  Filter = Filter(StatusPending)
	FilterReviewed Filter = Filter(StatusReviewed)
	FilterRejected Filter = Filter(StatusRejected)
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrInvalidStatus = errors.New("invalid report status")
	ErrInvalidFilter = errors.New("invalid report filter")
	ErrInvalidReport = errors.New("invalid report")
)

type Report struct {
	ID          string     `json:"id"`
	SeriesID    string     `json:"seriesId"`
	SeriesTitle string     `json:"seriesTitle"`
	SeriesSlug  string     `json:"seriesSlug,omitempty"`
	ChangeType  ChangeType `json:"changeType"`
	Description string     `json:"description"`
	UserEmail   string     `json:"userEmail,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   string     `json:"createdAt"`
	ReviewedAt  string     `json:"reviewedAt,omitempty"`
	ReviewedBy  string     `json:"reviewedBy,omitempty"`
}

// DocumentStore is the subset of the document store reports need.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	List(ctx context.Context, collection string, order docstore.Order) ([]docstore.Document, error)
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

type Service struct {
	store DocumentStore
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store DocumentStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log.Named("reports"), now: time.Now}
}

// WithClock allows tests to override the clock used for timestamps.
func (s *Service) WithClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// ParseFilter accepts an empty string as FilterAll.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterReviewed, FilterRejected:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, raw)
	}
}

// List returns reports matching filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Report, error) {
	if filter == "" {
		filter = FilterAll
	}
	docs, err := s.store.List(ctx, Collection, docstore.Order{Field: "createdAt", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]Report, 0, len(docs))
	for _, doc := range docs {
		report, err := decode(doc)
		if err != nil {
			s.log.Warn("skipping undecodable report", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, report)
	}

	if filter == FilterAll {
		return out, nil
	}
	return lo.Filter(out, func(r Report, _ int) bool {
		return Filter(r.Status) == filter
	}), nil
}

func (s *Service) Get(ctx context.Context, id string) (Report, error) {
	doc, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		return Report{}, fmt.Errorf("get report %s: %w", id, translate(err))
	}
	return decode(doc)
}

// Submit files a new pending report and returns its id.
func (s *Service) Submit(ctx context.Context, report Report) (string, error) {
	if strings.TrimSpace(report.SeriesID) == "" || strings.TrimSpace(report.Description) == "" {
		return "", fmt.Errorf("%w: seriesId and description are required", ErrInvalidReport)
	}
	if report.ChangeType == "" {
		report.ChangeType = ChangeOther
	}
	if !lo.Contains(changeTypes, report.ChangeType) {
		return "", fmt.Errorf("%w: unknown change type %q", ErrInvalidReport, report.ChangeType)
	}

	report.ID = ""
	report.Status = StatusPending
	report.CreatedAt = catalog.Timestamp(s.now())
	report.ReviewedAt = ""
	report.ReviewedBy = ""

	data, err := encode(report)
	if err != nil {
		return "", err
	}
	id, err := s.store.Add(ctx, Collection, data)
	if err != nil {
		return "", fmt.Errorf("submit report: %w", err)
	}
	s.log.Info("report submitted",
		zap.String("id", id),
		zap.String("seriesId", report.SeriesID),
		zap.String("changeType", string(report.ChangeType)),
	)
	return id, nil
}

// Review marks a report as reviewed or rejected by reviewer.
func (s *Service) Review(ctx context.Context, id string, status Status, reviewer string) error {
	if status != StatusReviewed && status != StatusRejected {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	err := s.store.Update(ctx, Collection, id, map[string]any{
		"status":     string(status),
		"reviewedAt": catalog.Timestamp(s.now()),
		"reviewedBy": reviewer,
	})
	if err != nil {
		return fmt.Errorf("review report %s: %w", id, translate(err))
	}
	s.log.Info("report reviewed", zap.String("id", id), zap.String("status", string(status)), zap.String("reviewer", reviewer))
	return nil
}

func translate(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func encode(report Report) (map[string]any, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	delete(data, "id")
	return data, nil
}

func decode(doc docstore.Document) (Report, error) {
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", doc.ID, err)
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", doc.ID, err)
	}
	report.ID = doc.ID
	return report, nil
}
