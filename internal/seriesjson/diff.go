package seriesjson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/treefix50/recapadmin/internal/jsonvalue"
)

// ChangeKind tells whether a change adds, removes or modifies a value.
type ChangeKind string

const (
	Modified ChangeKind = "modified"
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
)

// Change is one field-level difference between a stored series and a candidate.
type Change struct {
	Field    string     `json:"field"`
	OldValue any        `json:"oldValue"`
	NewValue any        `json:"newValue"`
	Kind     ChangeKind `json:"kind"`
}

// ComparedFields are the top-level fields Diff inspects, in output order.
var ComparedFields = []string{
	"title",
	"description",
	"category",
	"imageUrl",
	"startYear",
	"endYear",
	"status",
	"totalSeasons",
	"totalEpisodes",
	"originalNetwork",
	"countries",
	"tags",
	"availability",
}

const recapPreviewRunes = 50

// Diff lists the changes importing candidate over existing would make.
// Top-level fields come first, then the season count, then per-season
// changes in candidate order. Episode lists only surface as count changes.
func Diff(existing, candidate map[string]any) []Change {
	var changes []Change

	for _, field := range ComparedFields {
		newValue, defined := candidate[field]
		if !defined {
			continue
		}
		// an explicit null over an absent field still counts as a change
		oldValue, had := existing[field]
		if !had || !sameJSON(oldValue, newValue) {
			changes = append(changes, Change{
				Field:    field,
				OldValue: oldValue,
				NewValue: newValue,
				Kind:     Modified,
			})
		}
	}

	oldSeasons := objects(existing["seasons"])
	newSeasons := objects(candidate["seasons"])

	if len(oldSeasons) != len(newSeasons) {
		changes = append(changes, Change{
			Field:    "seasons",
			OldValue: fmt.Sprintf("%d seasons", len(oldSeasons)),
			NewValue: fmt.Sprintf("%d seasons", len(newSeasons)),
			Kind:     growth(len(oldSeasons), len(newSeasons)),
		})
	}

	matches := alignSeasons(oldSeasons, newSeasons)
	for i, newSeason := range newSeasons {
		label := "Season " + jsonvalue.Format(newSeason["seasonNumber"])

		oldSeason := matches[i]
		if oldSeason == nil {
			changes = append(changes, Change{
				Field:    label,
				OldValue: nil,
				NewValue: "Added: " + jsonvalue.Format(newSeason["title"]),
				Kind:     Added,
			})
			continue
		}

		changes = append(changes, diffSeason(label, oldSeason, newSeason)...)
	}

	return changes
}

func diffSeason(label string, oldSeason, newSeason map[string]any) []Change {
	var changes []Change

	oldEpisodes := len(objects(oldSeason["episodes"]))
	newEpisodes := len(objects(newSeason["episodes"]))
	if oldEpisodes != newEpisodes {
		changes = append(changes, Change{
			Field:    label + " - Episodes",
			OldValue: fmt.Sprintf("%d episodes", oldEpisodes),
			NewValue: fmt.Sprintf("%d episodes", newEpisodes),
			Kind:     growth(oldEpisodes, newEpisodes),
		})
	}

	if newRecap, ok := newSeason["recap"]; ok {
		oldRecap, had := oldSeason["recap"]
		if !had || !sameJSON(oldRecap, newRecap) {
			changes = append(changes, Change{
				Field:    label + " - Recap",
				OldValue: recapPreview(oldRecap),
				NewValue: recapPreview(newRecap),
				Kind:     Modified,
			})
		}
	}

	for _, list := range []struct{ key, title, unit string }{
		{"curiosities", "Curiosities", "curiosities"},
		{"spoilers", "Spoilers", "spoilers"},
	} {
		newList := newSeason[list.key]
		if newList == nil || sameJSON(oldSeason[list.key], newList) {
			continue
		}
		changes = append(changes, Change{
			Field:    label + " - " + list.title,
			OldValue: fmt.Sprintf("%d %s", lengthOf(oldSeason[list.key]), list.unit),
			NewValue: fmt.Sprintf("%d %s", lengthOf(newList), list.unit),
			Kind:     Modified,
		})
	}

	return changes
}

// alignSeasons pairs every candidate season with a stored one. Seasons are
// matched by id; a candidate season falls back to the stored season at the
// same position only when one of the two has no id to compare, or both carry
// the same duplicated id. Each stored season is used at most once; unmatched
// entries are nil.
func alignSeasons(oldSeasons, newSeasons []map[string]any) []map[string]any {
	byID := make(map[string]int, len(oldSeasons))
	for i, season := range oldSeasons {
		if id := idOf(season); id != "" {
			if _, dup := byID[id]; !dup {
				byID[id] = i
			}
		}
	}

	matches := make([]map[string]any, len(newSeasons))
	claimed := make([]bool, len(oldSeasons))

	for i, season := range newSeasons {
		id := idOf(season)
		if id == "" {
			continue
		}
		if j, ok := byID[id]; ok && !claimed[j] {
			matches[i] = oldSeasons[j]
			claimed[j] = true
		}
	}

	for i, season := range newSeasons {
		if matches[i] != nil || i >= len(oldSeasons) || claimed[i] {
			continue
		}
		newID, oldID := idOf(season), idOf(oldSeasons[i])
		if newID == "" || oldID == "" || newID == oldID {
			matches[i] = oldSeasons[i]
			claimed[i] = true
		}
	}

	return matches
}

func idOf(season map[string]any) string {
	if !jsonvalue.Truthy(season["id"]) {
		return ""
	}
	return jsonvalue.Format(season["id"])
}

func growth(before, after int) ChangeKind {
	if before < after {
		return Added
	}
	return Removed
}

func recapPreview(v any) string {
	s, _ := v.(string)
	if s == "" {
		return "None"
	}
	runes := []rune(s)
	if len(runes) > recapPreviewRunes {
		runes = runes[:recapPreviewRunes]
	}
	return string(runes) + "..."
}

func lengthOf(v any) int {
	list, _ := v.([]any)
	return len(list)
}

func objects(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		obj, _ := item.(map[string]any)
		if obj == nil {
			obj = map[string]any{}
		}
		out = append(out, obj)
	}
	return out
}

// sameJSON compares two values by their serialized form. Map keys serialize
// sorted, so key order never produces a difference.
func sameJSON(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(left, right)
}
