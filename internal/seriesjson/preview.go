package seriesjson

import (
	"time"

	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/jsonvalue"
)

// PlaceholderID is shown for a series that has not been stored yet.
const PlaceholderID = "new"

// ExtractPreview summarizes a candidate for display before it is committed.
// It returns nil when title, category or description is missing. Missing
// numbers default to zero and a missing start year to now's year.
func ExtractPreview(v any, now time.Time) *catalog.SeriesListItem {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if !jsonvalue.NonEmptyString(doc["title"]) || !jsonvalue.NonEmptyString(doc["category"]) || !jsonvalue.NonEmptyString(doc["description"]) {
		return nil
	}

	preview := catalog.SummaryOf(doc)
	if !jsonvalue.Truthy(doc["id"]) {
		preview.ID = PlaceholderID
	}
	if preview.StartYear == 0 {
		preview.StartYear = now.Year()
	}
	if preview.Status == "" {
		preview.Status = catalog.StatusOngoing
	}
	return &preview
}
