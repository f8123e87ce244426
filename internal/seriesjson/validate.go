// Package seriesjson handles the JSON interchange format for series records:
// shape validation, episode id normalization, diffing against a stored record
// and preview extraction. Candidate records are kept as decoded generic JSON
// so that field presence can be told apart from zero values.
package seriesjson

import (
	"fmt"

	"github.com/treefix50/recapadmin/internal/jsonvalue"
)

// Validation is the outcome of Validate.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func invalid(format string, args ...any) Validation {
	return Validation{Valid: false, Error: fmt.Sprintf(format, args...)}
}

// Validate checks v against the required series shape and stops at the first
// violation, scanning seasons and episodes in order. v is never modified.
func Validate(v any) Validation {
	doc, ok := v.(map[string]any)
	if !ok {
		return invalid("series JSON must be an object")
	}

	for _, field := range []string{"title", "category", "description"} {
		if !jsonvalue.NonEmptyString(doc[field]) {
			return invalid("field %q is required and must be a string", field)
		}
	}

	seasons, ok := doc["seasons"].([]any)
	if !ok {
		return invalid("field %q is required and must be an array", "seasons")
	}

	for i, rawSeason := range seasons {
		season, ok := rawSeason.(map[string]any)
		if !ok || !jsonvalue.Truthy(season["id"]) || !jsonvalue.Truthy(season["seasonNumber"]) || !jsonvalue.Truthy(season["title"]) {
			return invalid("season %d: fields id, seasonNumber and title are required", i+1)
		}

		// episodeCount is optional; older exports do not carry it.
		episodes, ok := season["episodes"].([]any)
		if !ok {
			return invalid("season %d: field %q must be an array", i+1, "episodes")
		}

		for j, rawEpisode := range episodes {
			episode, ok := rawEpisode.(map[string]any)
			if !ok {
				return invalid("season %d, episode %d: episode must be an object", i+1, j+1)
			}
			if n, ok := jsonvalue.Number(episode["episodeNumber"]); !ok || n == 0 {
				return invalid("season %d, episode %d: field episodeNumber is required and must be a number", i+1, j+1)
			}
			if !jsonvalue.NonEmptyString(episode["title"]) {
				return invalid("season %d, episode %d: field title is required and must be a string", i+1, j+1)
			}
			// id may be absent; Normalize derives it at import time.
		}
	}

	return Validation{Valid: true}
}
