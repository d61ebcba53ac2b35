// Package ranking builds the per-course leaderboard from type ratings and
// submission history, with an optional Redis cache in front.
package ranking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mind-engage/mindengage-autograde/internal/rating"
)

// Entry is one learner's row on a course leaderboard.
type Entry struct {
	Rank             int         `json:"rank"`
	UserID           string      `json:"user_id"`
	Rating           float64     `json:"rating"`
	Display          string      `json:"display"`
	Tier             rating.Tier `json:"tier"`
	QuizzesCompleted int         `json:"quizzes_completed"`
	Debt             int         `json:"debt"` // course problems not yet completed
}

type Service struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	fallback float64
	logger   zerolog.Logger
}

// NewService builds a ranking service. cache may be nil.
func NewService(db *sql.DB, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		cacheTTL: ttl,
		fallback: rating.DefaultParams().DefaultRating,
		logger:   logger.With().Str("component", "ranking_service").Logger(),
	}
}

func cacheKey(courseID string) string { return fmt.Sprintf("ranking:course:%s", courseID) }

// Course returns the leaderboard of courseID, best rating first.
func (s *Service) Course(ctx context.Context, courseID string) ([]Entry, error) {
	key := cacheKey(courseID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var entries []Entry
			if unmarshalErr := json.Unmarshal([]byte(cached), &entries); unmarshalErr == nil {
				s.logger.Debug().Str("course_id", courseID).Msg("ranking cache hit")
				return entries, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read ranking cache")
		}
	}

	entries, err := s.compute(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(entries)
		if err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store ranking cache")
			}
		}
	}
	return entries, nil
}

// Invalidate drops the cached leaderboard of courseID.
func (s *Service) Invalidate(ctx context.Context, courseID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey(courseID)).Err()
}

type tally struct {
	weighted  float64
	count     int64
	completed int
}

func (s *Service) compute(ctx context.Context, courseID string) ([]Entry, error) {
	var totalProblems int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM course_problems WHERE course_id=$1`, courseID).Scan(&totalProblems); err != nil {
		return nil, fmt.Errorf("count course problems: %w", err)
	}

	learners := map[string]*tally{}
	get := func(id string) *tally {
		t, ok := learners[id]
		if !ok {
			t = &tally{}
			learners[id] = t
		}
		return t
	}

	rows, err := s.db.QueryContext(ctx, `SELECT user_id, SUM(rating * submission_count), SUM(submission_count)
		FROM type_ratings WHERE course_id=$1 GROUP BY user_id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("aggregate type ratings: %w", err)
	}
	for rows.Next() {
		var (
			id       string
			weighted float64
			count    int64
		)
		if err := rows.Scan(&id, &weighted, &count); err != nil {
			rows.Close()
			return nil, err
		}
		t := get(id)
		t.weighted, t.count = weighted, count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT user_id,
		COUNT(DISTINCT CASE WHEN status IN ('submitted','graded','returned') THEN problem_id END)
		FROM submissions WHERE course_id=$1 GROUP BY user_id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("count completed problems: %w", err)
	}
	for rows.Next() {
		var (
			id        string
			completed int
		)
		if err := rows.Scan(&id, &completed); err != nil {
			rows.Close()
			return nil, err
		}
		get(id).completed = completed
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(learners))
	for id, t := range learners {
		r := s.fallback
		if t.count > 0 {
			r = t.weighted / float64(t.count)
		}
		entries = append(entries, Entry{
			UserID:           id,
			Rating:           r,
			Display:          rating.Format(r),
			Tier:             rating.TierFor(r),
			QuizzesCompleted: t.completed,
			Debt:             max(0, totalProblems-t.completed),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
