package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/treefix50/recapadmin/internal/jsonvalue"
)

type Category string

const (
	CategoryDrama    Category = "Drama"
	CategoryFantasy  Category = "Fantasy"
	CategoryCrime    Category = "Crime"
	CategoryComedy   Category = "Comedy"
	CategoryThriller Category = "Thriller"
	CategorySciFi    Category = "Sci-Fi"
	CategoryAction   Category = "Action"
)

var Categories = []Category{
	CategoryDrama,
	CategoryFantasy,
	CategoryCrime,
	CategoryComedy,
	CategoryThriller,
	CategorySciFi,
	CategoryAction,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusEnded   Status = "ended"
	StatusOngoing Status = "ongoing"
)

type AccessType string

const (
	AccessSubscription AccessType = "subscription"
	AccessRent         AccessType = "rent"
	AccessBuy          AccessType = "buy"
)

// Availability tells where a series can be watched.
type Availability struct {
	Platform string     `json:"platform"`
	Country  string     `json:"country"`
	Type     AccessType `json:"type"`
	Deeplink string     `json:"deeplink"`
}

// ImportantMinute marks a range of an episode worth remembering, in minutes.
type ImportantMinute struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Description string  `json:"description,omitempty"`
}

type Episode struct {
	ID               string            `json:"id"`
	SeasonNumber     int               `json:"seasonNumber"`
	EpisodeNumber    int               `json:"episodeNumber"`
	Title            string            `json:"title"`
	ImportantMinutes []ImportantMinute `json:"importantMinutes,omitempty"`
}

type Season struct {
	ID           string    `json:"id"`
	SeasonNumber int       `json:"seasonNumber"`
	Title        string    `json:"title"`
	Episodes     []Episode `json:"episodes"`
	Recap        string    `json:"recap,omitempty"`
	Curiosities  []string  `json:"curiosities,omitempty"`
	Spoilers     []string  `json:"spoilers,omitempty"`
	// EpisodeCount is the real episode total when only part of the season is documented.
	EpisodeCount *int `json:"episodeCount,omitempty"`
}

// Series is the full catalog record; seasons and episodes are embedded.
type Series struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	StartYear       int            `json:"startYear"`
	EndYear         *int           `json:"endYear"`
	Status          Status         `json:"status"`
	TotalSeasons    int            `json:"totalSeasons"`
	TotalEpisodes   int            `json:"totalEpisodes"`
	OriginalNetwork string         `json:"originalNetwork"`
	Countries       []string       `json:"countries"`
	Tags            []string       `json:"tags"`
	Availability    []Availability `json:"availability"`
	Description     string         `json:"description"`
	ImageURL        string         `json:"imageUrl,omitempty"`
	Category        Category       `json:"category"`
	Seasons         []Season       `json:"seasons"`
	CreatedAt       string         `json:"createdAt,omitempty"`
	UpdatedAt       string         `json:"updatedAt,omitempty"`
}

// SeasonStub is the minimal season view used in listings.
type SeasonStub struct {
	ID           string `json:"id"`
	SeasonNumber int    `json:"seasonNumber"`
	Title        string `json:"title"`
}

// SeriesListItem is the summary shown in the series list and in import previews.
type SeriesListItem struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	Description   string       `json:"description"`
	StartYear     int          `json:"startYear"`
	EndYear       *int         `json:"endYear"`
	Status        Status       `json:"status"`
	TotalSeasons  int          `json:"totalSeasons"`
	TotalEpisodes int          `json:"totalEpisodes"`
	Category      string       `json:"category"`
	Seasons       []SeasonStub `json:"seasons"`
}

// SummaryOf builds the list view straight from a stored document. It reads
// ids and numbers loosely, the way imports accept them, so every stored
// series can be listed.
func SummaryOf(doc map[string]any) SeriesListItem {
	seasons, _ := doc["seasons"].([]any)
	stubs := make([]SeasonStub, 0, len(seasons))
	for _, raw := range seasons {
		season, _ := raw.(map[string]any)
		stubs = append(stubs, SeasonStub{
			ID:           jsonvalue.Format(season["id"]),
			SeasonNumber: jsonvalue.IntOr(season["seasonNumber"], 0),
			Title:        jsonvalue.Format(season["title"]),
		})
	}
	return SeriesListItem{
		ID:            jsonvalue.Format(doc["id"]),
		Title:         jsonvalue.Format(doc["title"]),
		ImageURL:      jsonvalue.Format(doc["imageUrl"]),
		Description:   jsonvalue.Format(doc["description"]),
		StartYear:     jsonvalue.IntOr(doc["startYear"], 0),
		EndYear:       jsonvalue.OptionalInt(doc["endYear"]),
		Status:        Status(jsonvalue.Format(doc["status"])),
		TotalSeasons:  jsonvalue.IntOr(doc["totalSeasons"], len(seasons)),
		TotalEpisodes: jsonvalue.IntOr(doc["totalEpisodes"], 0),
		Category:      jsonvalue.Format(doc["category"]),
		Seasons:       stubs,
	}
}

// Timestamp renders a write time the way documents store it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ToDocument converts a typed Series into its generic JSON document form.
func ToDocument(series Series) (map[string]any, error) {
	raw, err := json.Marshal(series)
	if err != nil {
		return nil, fmt.Errorf("encode series: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return doc, nil
}
