package tmdb

import (
	"strconv"
	"time"

	"marquee/internal/metadata"
)

// Candidate converts a search result into the pipeline candidate shape.
func Candidate(res Result) metadata.Candidate {
	return metadata.Candidate{
		ID:          res.ID,
		Title:       res.Title,
		Year:        releaseYear(res.ReleaseDate),
		PosterPath:  res.PosterPath,
		Popularity:  res.Popularity,
		VoteAverage: res.VoteAverage,
		VoteCount:   res.VoteCount,
	}
}

// Record converts a detail result into a confirmed metadata record. Genre
// names come from the embedded detail genres when present, falling back to
// the supplied id table for search-shaped results.
func Record(res Result, genreNames map[int64]string, fetchedAt time.Time) metadata.Record {
	var genres []string
	if len(res.Genres) > 0 {
		genres = make([]string, 0, len(res.Genres))
		for _, genre := range res.Genres {
			if genre.Name != "" {
				genres = append(genres, genre.Name)
			}
		}
	} else if len(res.GenreIDs) > 0 && genreNames != nil {
		genres = make([]string, 0, len(res.GenreIDs))
		for _, id := range res.GenreIDs {
			if name, ok := genreNames[id]; ok {
				genres = append(genres, name)
			}
		}
	}

	return metadata.Record{
		ID:         res.ID,
		Title:      res.Title,
		Year:       releaseYear(res.ReleaseDate),
		Synopsis:   res.Overview,
		Rating:     res.VoteAverage,
		Genres:     genres,
		PosterPath: res.PosterPath,
		FetchedAt:  fetchedAt,
	}
}

func releaseYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}
