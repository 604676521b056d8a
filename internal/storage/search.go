package storage

import (
	"strings"

	"clipstream/internal/models"
	"golang.org/x/text/cases"
)

// SearchField selects which video attribute a search scans.
type SearchField string

const (
	SearchByTitle    SearchField = "title"
	SearchByTag      SearchField = "tag"
	SearchByCategory SearchField = "category"
)

var searchFolder = cases.Fold()

// SearchVideos performs a case-folded substring scan over the canonical
// videos collection. Deliberately a linear scan; the dataset is the single
// source of truth and no index is maintained.
func (s *Storage) SearchVideos(field SearchField, query string) []models.Video {
	needle := searchFolder.String(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]models.Video, 0)
	for _, video := range s.data.Videos {
		var haystacks []string
		switch field {
		case SearchByTitle:
			haystacks = []string{video.Title}
		case SearchByTag:
			haystacks = video.Tags
		case SearchByCategory:
			haystacks = []string{video.Category}
		default:
			haystacks = append([]string{video.Title, video.Category}, video.Tags...)
		}
		for _, haystack := range haystacks {
			if strings.Contains(searchFolder.String(haystack), needle) {
				matches = append(matches, cloneVideo(video))
				break
			}
		}
	}
	return matches
}
