package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/seriesjson"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	nextID  int
	getErr  error
	created []map[string]any
	// block, when set, holds Create until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]map[string]any{}}
}

func (f *fakeStore) Get(_ context.Context, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("get series %s: %w", id, catalog.ErrNotFound)
	}
	return doc, nil
}

func (f *fakeStore) Create(_ context.Context, fields map[string]any) (string, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("gen-%d", f.nextID)
	f.docs[id] = fields
	f.created = append(f.created, fields)
	return id, nil
}

func (f *fakeStore) Replace(_ context.Context, id string, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return catalog.ErrNotFound
	}
	f.docs[id] = doc
	return nil
}

func candidate(id string) map[string]any {
	doc := map[string]any{
		"title":       "Severance",
		"category":    "Thriller",
		"description": "Work and life, surgically divided.",
		"createdAt":   "2020-01-01T00:00:00Z",
		"seasons": []any{
			map[string]any{
				"id":           "s1",
				"seasonNumber": 1.0,
				"title":        "Season 1",
				"episodes": []any{
					map[string]any{"episodeNumber": 1.0, "title": "Good News About Hell"},
				},
			},
		},
	}
	if id != "" {
		doc["id"] = id
	}
	return doc
}

func firstEpisode(doc map[string]any) map[string]any {
	season := doc["seasons"].([]any)[0].(map[string]any)
	return season["episodes"].([]any)[0].(map[string]any)
}

func TestImportCreatesNewSeries(t *testing.T) {
	store := newFakeStore()
	imp := New(store, zaptest.NewLogger(t))

	input := candidate("")
	result := imp.Import(context.Background(), input, Options{})

	require.True(t, result.Success)
	require.NoError(t, result.Err())
	require.Equal(t, "gen-1", result.SeriesID)
	require.Equal(t, ActionCreated, result.Action)

	stored := store.docs["gen-1"]
	require.NotContains(t, stored, "id")
	require.NotContains(t, stored, "createdAt")
	require.Equal(t, "temp-s1-e1", firstEpisode(stored)["id"])
	require.Equal(t, 1.0, firstEpisode(stored)["seasonNumber"])

	// The caller's value is left untouched.
	require.NotContains(t, firstEpisode(input), "id")
}

func TestImportWithoutUpdateIgnoresPayloadIDForTarget(t *testing.T) {
	store := newFakeStore()
	store.docs["sev"] = candidate("")
	imp := New(store, nil)

	result := imp.Import(context.Background(), candidate("sev"), Options{})

	require.True(t, result.Success)
	require.Equal(t, "gen-1", result.SeriesID)
	require.Equal(t, "sev-s1-e1", firstEpisode(store.docs["gen-1"])["id"])
}

func TestImportUpdatesExistingSeries(t *testing.T) {
	store := newFakeStore()
	store.docs["sev"] = map[string]any{"title": "Old"}
	imp := New(store, nil)

	result := imp.Import(context.Background(), candidate(""), Options{UpdateIfExists: true, SeriesID: "sev"})

	require.True(t, result.Success)
	require.Equal(t, "sev", result.SeriesID)
	require.Equal(t, ActionUpdated, result.Action)
	require.Equal(t, "Severance", store.docs["sev"]["title"])
	require.Equal(t, "sev-s1-e1", firstEpisode(store.docs["sev"])["id"])
	require.Empty(t, store.created)
}

func TestImportUsesPayloadIDAsUpdateTarget(t *testing.T) {
	store := newFakeStore()
	store.docs["sev"] = map[string]any{"title": "Old"}
	imp := New(store, nil)

	result := imp.Import(context.Background(), candidate("sev"), Options{UpdateIfExists: true})

	require.True(t, result.Success)
	require.Equal(t, "sev", result.SeriesID)
	require.Equal(t, ActionUpdated, result.Action)
}

func TestImportUsesNumericPayloadIDAsUpdateTarget(t *testing.T) {
	store := newFakeStore()
	store.docs["42"] = map[string]any{"title": "Old"}
	imp := New(store, nil)

	input := candidate("")
	input["id"] = 42.0
	result := imp.Import(context.Background(), input, Options{UpdateIfExists: true})

	require.True(t, result.Success)
	require.Equal(t, "42", result.SeriesID)
	require.Equal(t, ActionUpdated, result.Action)
	require.Equal(t, "42-s1-e1", firstEpisode(store.docs["42"])["id"])
	require.Empty(t, store.created)
}

func TestImportFallsBackToCreateWhenTargetMissing(t *testing.T) {
	tests := []struct {
		name   string
		getErr error
	}{
		{name: "sentinel", getErr: nil},
		{name: "remote message", getErr: errors.New("Serie non trovata")},
		{name: "english message", getErr: errors.New("document Not Found")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.getErr = tt.getErr
			imp := New(store, nil)

			result := imp.Import(context.Background(), candidate(""), Options{UpdateIfExists: true, SeriesID: "ghost"})

			require.True(t, result.Success)
			require.Equal(t, "gen-1", result.SeriesID)
			require.Equal(t, ActionCreated, result.Action)
			require.Equal(t, "ghost-s1-e1", firstEpisode(store.docs["gen-1"])["id"])
		})
	}
}

func TestImportReportsOtherStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("permission denied")
	imp := New(store, nil)

	result := imp.Import(context.Background(), candidate(""), Options{UpdateIfExists: true, SeriesID: "sev"})

	require.False(t, result.Success)
	require.Equal(t, "permission denied", result.Error)
	require.Empty(t, store.created)
}

func TestImportRejectsInvalidPayload(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil)

	doc := candidate("")
	delete(doc, "title")
	result := imp.Import(context.Background(), doc, Options{})

	require.False(t, result.Success)
	require.ErrorIs(t, result.Err(), ErrValidation)
	require.Contains(t, result.Error, `field "title" is required`)
	require.Empty(t, store.docs)
}

type panickingStore struct{ fakeStore }

func (p *panickingStore) Create(context.Context, map[string]any) (string, error) {
	panic("boom")
}

func TestImportRecoversFromPanics(t *testing.T) {
	imp := New(&panickingStore{}, nil)

	result := imp.Import(context.Background(), candidate(""), Options{})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "boom")
	require.False(t, imp.Busy())
}

func TestImportRejectsConcurrentImport(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	store.entered = make(chan struct{})
	imp := New(store, nil)

	done := make(chan Result)
	go func() {
		done <- imp.Import(context.Background(), candidate(""), Options{})
	}()
	<-store.entered

	require.True(t, imp.Busy())
	second := imp.Import(context.Background(), candidate(""), Options{})
	require.False(t, second.Success)
	require.ErrorIs(t, second.Err(), ErrImportInProgress)

	close(store.block)
	first := <-done
	require.True(t, first.Success)
	require.False(t, imp.Busy())
	require.Len(t, store.created, 1)
}

func TestResultErr(t *testing.T) {
	require.NoError(t, Result{Success: true}.Err())
	require.EqualError(t, Result{Error: "nope"}.Err(), "nope")
}

func TestWorkflowCreatePath(t *testing.T) {
	store := newFakeStore()
	wf := NewWorkflow(New(store, nil), nil)
	require.Equal(t, StateIdle, wf.State())

	require.NoError(t, wf.SetText([]byte(`{"title":"Severance","category":"Thriller","description":"d","seasons":[]}`)))
	verification, err := wf.Verify()
	require.NoError(t, err)
	require.NotNil(t, verification.Preview)
	require.Equal(t, seriesjson.PlaceholderID, verification.Preview.ID)
	require.Equal(t, StateVerified, wf.State())

	require.NoError(t, wf.Confirm())
	require.Equal(t, StateFirstConfirmed, wf.State())
	require.NoError(t, wf.Confirm())
	require.Equal(t, StateSecondConfirmed, wf.State())

	result, err := wf.Import(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, StateIdle, wf.State())
	require.Len(t, store.created, 1)
}

func TestWorkflowUpdatePathShowsChanges(t *testing.T) {
	store := newFakeStore()
	current := candidate("sev")
	store.docs["sev"] = current
	wf := NewWorkflow(New(store, nil), current)

	require.NoError(t, wf.SetText([]byte(`{"title":"Severance II","category":"Thriller","description":"Work and life, surgically divided.","seasons":[]}`)))
	verification, err := wf.Verify()
	require.NoError(t, err)
	require.Nil(t, verification.Preview)
	require.Equal(t, "title", verification.Changes[0].Field)

	require.NoError(t, wf.Confirm())
	require.NoError(t, wf.Confirm())
	result, err := wf.Import(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, ActionUpdated, result.Action)
	require.Equal(t, "Severance II", store.docs["sev"]["title"])
}

func TestWorkflowRejectsSkippedSteps(t *testing.T) {
	wf := NewWorkflow(New(newFakeStore(), nil), nil)

	require.ErrorIs(t, wf.Confirm(), ErrInvalidTransition)
	_, err := wf.Import(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, wf.SetText([]byte(`{"title":"t","category":"c","description":"d","seasons":[]}`)))
	_, err = wf.Verify()
	require.NoError(t, err)
	require.NoError(t, wf.Confirm())

	_, err = wf.Import(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StateFirstConfirmed, wf.State())
}

func TestWorkflowTextChangeResets(t *testing.T) {
	wf := NewWorkflow(New(newFakeStore(), nil), nil)
	text := []byte(`{"title":"t","category":"c","description":"d","seasons":[]}`)

	require.NoError(t, wf.SetText(text))
	_, err := wf.Verify()
	require.NoError(t, err)
	require.NoError(t, wf.Confirm())
	require.NoError(t, wf.Confirm())

	require.NoError(t, wf.SetText(text))
	require.Equal(t, StateIdle, wf.State())
	require.ErrorIs(t, wf.Confirm(), ErrInvalidTransition)
}

func TestWorkflowVerifyErrors(t *testing.T) {
	wf := NewWorkflow(New(newFakeStore(), nil), nil)

	_, err := wf.Verify()
	require.ErrorIs(t, err, ErrEmptyInput)

	require.NoError(t, wf.SetText([]byte(`{"title":`)))
	_, err = wf.Verify()
	require.ErrorContains(t, err, "parse series JSON")
	require.Equal(t, StateIdle, wf.State())

	require.NoError(t, wf.SetText([]byte(`{"title":"t","category":"c","description":"d"}`)))
	_, err = wf.Verify()
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, StateIdle, wf.State())
}
