package seriesjson

import (
	"fmt"

	"github.com/treefix50/recapadmin/internal/jsonvalue"
)

// EpisodeID derives the id of an episode that was imported without one.
func EpisodeID(seriesID string, seasonNumber, episodeNumber any) string {
	return fmt.Sprintf("%s-s%s-e%s", seriesID, jsonvalue.Format(seasonNumber), jsonvalue.Format(episodeNumber))
}

// Normalize fills in episode ids and season numbers that can be derived from
// the parent context. It mutates doc in place and is idempotent.
func Normalize(doc map[string]any, seriesID string) {
	seasons, ok := doc["seasons"].([]any)
	if !ok {
		return
	}

	for _, rawSeason := range seasons {
		season, ok := rawSeason.(map[string]any)
		if !ok {
			continue
		}
		episodes, ok := season["episodes"].([]any)
		if !ok {
			continue
		}

		for _, rawEpisode := range episodes {
			episode, ok := rawEpisode.(map[string]any)
			if !ok {
				continue
			}
			if !jsonvalue.Truthy(episode["id"]) {
				episode["id"] = EpisodeID(seriesID, season["seasonNumber"], episode["episodeNumber"])
			}
			if !jsonvalue.Truthy(episode["seasonNumber"]) && jsonvalue.Truthy(season["seasonNumber"]) {
				episode["seasonNumber"] = season["seasonNumber"]
			}
		}
	}
}
