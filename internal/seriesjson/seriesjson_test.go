package seriesjson

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/treefix50/recapadmin/internal/catalog"
)

const sampleJSON = `{
  "id": "breaking-bad",
  "title": "Breaking Bad",
  "category": "Drama",
  "description": "A chemistry teacher turns to crime.",
  "startYear": 2008,
  "endYear": 2013,
  "status": "ended",
  "totalSeasons": 2,
  "seasons": [
    {
      "id": "s1",
      "seasonNumber": 1,
      "title": "Season One",
      "recap": "Walter White is diagnosed with cancer.",
      "episodes": [
        {"id": "e1", "episodeNumber": 1, "title": "Pilot"},
        {"id": "e2", "episodeNumber": 2, "title": "Cat's in the Bag..."}
      ]
    },
    {
      "id": "s2",
      "seasonNumber": 2,
      "title": "Season Two",
      "episodes": [
        {"id": "e3", "episodeNumber": 1, "title": "Seven Thirty-Seven"}
      ]
    }
  ]
}`

func sample(t *testing.T) map[string]any {
	t.Helper()
	doc, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)
	return doc
}

func seasonAt(doc map[string]any, i int) map[string]any {
	return doc["seasons"].([]any)[i].(map[string]any)
}

func episodeAt(season map[string]any, i int) map[string]any {
	return season["episodes"].([]any)[i].(map[string]any)
}

func TestValidateAcceptsWellFormedSeries(t *testing.T) {
	require.Equal(t, Validation{Valid: true}, Validate(sample(t)))
}

func TestValidateAcceptsEpisodeWithoutID(t *testing.T) {
	doc := sample(t)
	delete(episodeAt(seasonAt(doc, 0), 0), "id")
	require.True(t, Validate(doc).Valid)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   string
	}{
		{
			name:   "missing title",
			mutate: func(doc map[string]any) { delete(doc, "title") },
			want:   `field "title" is required and must be a string`,
		},
		{
			name:   "empty category",
			mutate: func(doc map[string]any) { doc["category"] = "" },
			want:   `field "category" is required and must be a string`,
		},
		{
			name:   "numeric description",
			mutate: func(doc map[string]any) { doc["description"] = 12.0 },
			want:   `field "description" is required and must be a string`,
		},
		{
			name:   "seasons not an array",
			mutate: func(doc map[string]any) { doc["seasons"] = "none" },
			want:   `field "seasons" is required and must be an array`,
		},
		{
			name:   "season without title",
			mutate: func(doc map[string]any) { delete(seasonAt(doc, 1), "title") },
			want:   "season 2: fields id, seasonNumber and title are required",
		},
		{
			name:   "season number zero",
			mutate: func(doc map[string]any) { seasonAt(doc, 0)["seasonNumber"] = 0.0 },
			want:   "season 1: fields id, seasonNumber and title are required",
		},
		{
			name:   "episodes missing",
			mutate: func(doc map[string]any) { delete(seasonAt(doc, 0), "episodes") },
			want:   `season 1: field "episodes" must be an array`,
		},
		{
			name:   "episode number as string",
			mutate: func(doc map[string]any) { episodeAt(seasonAt(doc, 0), 1)["episodeNumber"] = "2" },
			want:   "season 1, episode 2: field episodeNumber is required and must be a number",
		},
		{
			name:   "episode without title",
			mutate: func(doc map[string]any) { delete(episodeAt(seasonAt(doc, 1), 0), "title") },
			want:   "season 2, episode 1: field title is required and must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sample(t)
			tt.mutate(doc)
			got := Validate(doc)
			require.False(t, got.Valid)
			require.Equal(t, tt.want, got.Error)
		})
	}
}

func TestValidateRejectsNonObject(t *testing.T) {
	got := Validate([]any{"x"})
	require.False(t, got.Valid)
	require.NotEmpty(t, got.Error)
}

func TestValidateStopsAtFirstViolation(t *testing.T) {
	doc := sample(t)
	delete(doc, "title")
	delete(doc, "seasons")
	require.Equal(t, `field "title" is required and must be a string`, Validate(doc).Error)
}

func TestValidateDoesNotModifyInput(t *testing.T) {
	doc := sample(t)
	delete(episodeAt(seasonAt(doc, 0), 0), "id")
	before := sample(t)
	delete(episodeAt(seasonAt(before, 0), 0), "id")

	Validate(doc)
	require.Empty(t, cmp.Diff(before, doc))
}

func TestNormalizeDerivesMissingEpisodeFields(t *testing.T) {
	doc := sample(t)
	episode := episodeAt(seasonAt(doc, 1), 0)
	delete(episode, "id")

	Normalize(doc, "bb")

	require.Equal(t, "bb-s2-e1", episode["id"])
	require.Equal(t, 2.0, episode["seasonNumber"])
	require.Equal(t, "e1", episodeAt(seasonAt(doc, 0), 0)["id"])
}

func TestNormalizeIsIdempotent(t *testing.T) {
	doc := sample(t)
	delete(episodeAt(seasonAt(doc, 0), 1), "id")

	Normalize(doc, "bb")
	once := sample(t)
	delete(episodeAt(seasonAt(once, 0), 1), "id")
	Normalize(once, "bb")
	Normalize(once, "bb")

	require.Empty(t, cmp.Diff(doc, once))
}

func TestNormalizeWithoutSeasonsIsNoop(t *testing.T) {
	doc := map[string]any{"title": "x"}
	Normalize(doc, "id")
	require.Equal(t, map[string]any{"title": "x"}, doc)
}

func TestEpisodeID(t *testing.T) {
	require.Equal(t, "temp-s3-e12", EpisodeID("temp", 3.0, 12.0))
	require.Equal(t, "x-s1-e", EpisodeID("x", 1, nil))
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	require.Empty(t, Diff(sample(t), sample(t)))
}

func TestDiffTitleChange(t *testing.T) {
	candidate := sample(t)
	candidate["title"] = "Breaking Good"

	want := []Change{{Field: "title", OldValue: "Breaking Bad", NewValue: "Breaking Good", Kind: Modified}}
	require.Empty(t, cmp.Diff(want, Diff(sample(t), candidate)))
}

func TestDiffIgnoresAbsentCandidateFields(t *testing.T) {
	candidate := sample(t)
	delete(candidate, "endYear")
	delete(candidate, "status")
	require.Empty(t, Diff(sample(t), candidate))
}

func TestDiffAddedSeason(t *testing.T) {
	candidate := sample(t)
	candidate["seasons"] = append(candidate["seasons"].([]any), map[string]any{
		"id":           "s3",
		"seasonNumber": 3.0,
		"title":        "Season Three",
		"episodes":     []any{},
	})

	want := []Change{
		{Field: "seasons", OldValue: "2 seasons", NewValue: "3 seasons", Kind: Added},
		{Field: "Season 3", OldValue: nil, NewValue: "Added: Season Three", Kind: Added},
	}
	require.Empty(t, cmp.Diff(want, Diff(sample(t), candidate)))
}

func TestDiffRemovedSeason(t *testing.T) {
	candidate := sample(t)
	candidate["seasons"] = candidate["seasons"].([]any)[:1]

	want := []Change{{Field: "seasons", OldValue: "2 seasons", NewValue: "1 seasons", Kind: Removed}}
	require.Empty(t, cmp.Diff(want, Diff(sample(t), candidate)))
}

func TestDiffAlignsReorderedSeasonsByID(t *testing.T) {
	candidate := sample(t)
	seasons := candidate["seasons"].([]any)
	candidate["seasons"] = []any{seasons[1], seasons[0]}

	require.Empty(t, Diff(sample(t), candidate))
}

func TestDiffSeasonDetails(t *testing.T) {
	candidate := sample(t)
	first := seasonAt(candidate, 0)
	first["recap"] = "A much longer recap that certainly goes well past the fifty character preview."
	first["curiosities"] = []any{"Filmed in Albuquerque."}
	first["episodes"] = first["episodes"].([]any)[:1]
	seasonAt(candidate, 1)["recap"] = "Jesse"

	got := Diff(sample(t), candidate)
	want := []Change{
		{Field: "Season 1 - Episodes", OldValue: "2 episodes", NewValue: "1 episodes", Kind: Removed},
		{
			Field:    "Season 1 - Recap",
			OldValue: "Walter White is diagnosed with cancer....",
			NewValue: "A much longer recap that certainly goes well past ...",
			Kind:     Modified,
		},
		{Field: "Season 1 - Curiosities", OldValue: "0 curiosities", NewValue: "1 curiosities", Kind: Modified},
		{Field: "Season 2 - Recap", OldValue: "None", NewValue: "Jesse...", Kind: Modified},
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestExtractPreview(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	end := 2013

	want := &catalog.SeriesListItem{
		ID:            "breaking-bad",
		Title:         "Breaking Bad",
		Description:   "A chemistry teacher turns to crime.",
		StartYear:     2008,
		EndYear:       &end,
		Status:        catalog.StatusEnded,
		TotalSeasons:  2,
		TotalEpisodes: 0,
		Category:      "Drama",
		Seasons: []catalog.SeasonStub{
			{ID: "s1", SeasonNumber: 1, Title: "Season One"},
			{ID: "s2", SeasonNumber: 2, Title: "Season Two"},
		},
	}
	require.Empty(t, cmp.Diff(want, ExtractPreview(sample(t), now)))
}

func TestExtractPreviewDefaults(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	doc := map[string]any{
		"title":       "Dark",
		"category":    "Sci-Fi",
		"description": "Time travel in Winden.",
		"seasons":     []any{map[string]any{"id": "a", "seasonNumber": 1.0, "title": "One"}},
	}

	got := ExtractPreview(doc, now)
	require.NotNil(t, got)
	require.Equal(t, PlaceholderID, got.ID)
	require.Equal(t, 2026, got.StartYear)
	require.Nil(t, got.EndYear)
	require.Equal(t, catalog.StatusOngoing, got.Status)
	require.Equal(t, 1, got.TotalSeasons)
}

func TestExtractPreviewRequiresDisplayFields(t *testing.T) {
	now := time.Now()
	for _, field := range []string{"title", "category", "description"} {
		doc := sample(t)
		delete(doc, field)
		require.Nil(t, ExtractPreview(doc, now), field)
	}
	require.Nil(t, ExtractPreview("not an object", now))
}

func TestParse(t *testing.T) {
	_, err := Parse([]byte("  "))
	require.ErrorContains(t, err, "empty input")

	_, err = Parse([]byte(`{"title": `))
	require.ErrorContains(t, err, "parse series JSON")

	_, err = Parse([]byte(`[1, 2]`))
	require.ErrorContains(t, err, "must be an object")
}

func TestExportRoundTripsThroughValidate(t *testing.T) {
	stored := sample(t)
	stored["createdAt"] = "2024-01-01T00:00:00Z"
	stored["updatedAt"] = "2024-02-01T00:00:00Z"

	raw, err := Export(stored)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "createdAt")
	require.NotContains(t, string(raw), "updatedAt")
	require.Contains(t, string(raw), `"Cat's in the Bag..."`)

	doc, err := Parse(raw)
	require.NoError(t, err)
	require.True(t, Validate(doc).Valid)
	require.Equal(t, "breaking-bad", doc["id"])
	require.Empty(t, Diff(stored, doc))
	require.Contains(t, stored, "createdAt")
}

func TestExportKeepsStoredFieldsAsIs(t *testing.T) {
	stored := sample(t)
	stored["slug"] = "breaking-bad-2008"
	stored["imageUrl"] = "https://img.example/bb.jpg?w=300&h=400"
	first := seasonAt(stored, 0)
	first["id"] = 7.0
	first["seasonNumber"] = "1"
	episodeAt(first, 0)["duration"] = 58.0

	raw, err := Export(stored)
	require.NoError(t, err)
	require.Contains(t, string(raw), "?w=300&h=400")

	doc, err := Parse(raw)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(stored, doc))
	require.Empty(t, Diff(stored, doc))
}

func TestDiffNullOverAbsentField(t *testing.T) {
	candidate := sample(t)
	candidate["imageUrl"] = nil

	want := []Change{{Field: "imageUrl", OldValue: nil, NewValue: nil, Kind: Modified}}
	require.Empty(t, cmp.Diff(want, Diff(sample(t), candidate)))
}

func TestExportFilename(t *testing.T) {
	tests := map[string]string{
		"Breaking Bad":          "breaking-bad.json",
		"  The   Office  (US) ": "the-office-(us).json",
		"":                      "series.json",
	}
	for title, want := range tests {
		require.Equal(t, want, ExportFilename(title), title)
	}
}
