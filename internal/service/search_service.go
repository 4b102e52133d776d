package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/aditya/go-boleia/internal/errors"
	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/internal/matching"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/observability"
	"github.com/aditya/go-boleia/internal/region"
	"go.uber.org/zap"
)

// RideFinder is the read side of the ride store used by searches.
type RideFinder interface {
	FindOpen(ctx context.Context, filter models.RideFilter) ([]*models.Ride, error)
}

type SearchService interface {
	Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error)
	Nearby(ctx context.Context, location string, seatsNeeded int, radiusKm float64) (*models.SearchResponse, error)
}

type SearchConfig struct {
	CandidateLimit  int
	ResultLimit     int
	DefaultRadiusKM float64
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{CandidateLimit: 100, ResultLimit: 50, DefaultRadiusKM: 50}
}

type searchService struct {
	rides      RideFinder
	classifier *region.Classifier
	scorer     *matching.Scorer
	cfg        SearchConfig
	now        func() time.Time
}

func NewSearchService(rides RideFinder, classifier *region.Classifier, scorer *matching.Scorer, cfg SearchConfig) SearchService {
	return &searchService{
		rides:      rides,
		classifier: classifier,
		scorer:     scorer,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *searchService) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error) {
	start := time.Now()
	if criteria.MinSeats < 0 {
		return nil, apperrors.BadRequest("min_seats cannot be negative")
	}
	if criteria.MaxPrice != nil && *criteria.MaxPrice < 0 {
		return nil, apperrors.BadRequest("max_price cannot be negative")
	}

	filter := models.RideFilter{
		DepartingFrom: s.departingFrom(criteria.Date),
		MinSeats:      max(criteria.MinSeats, 1),
		MaxPrice:      criteria.MaxPrice,
		Limit:         s.cfg.CandidateLimit,
	}

	hasFrom := strings.TrimSpace(criteria.From) != ""
	hasTo := strings.TrimSpace(criteria.To) != ""

	var from, to *region.Region
	if hasFrom {
		r := s.classify(criteria.From)
		from = &r
	}
	if hasTo {
		r := s.classify(criteria.To)
		to = &r
	}

	kind := "ranked"
	if !hasFrom || !hasTo {
		// Ranking needs both endpoints; a single endpoint narrows the
		// candidates by region instead.
		kind = "unranked"
		filter.OriginRegion = from
		filter.DestinationRegion = to
	}

	candidates, err := s.rides.FindOpen(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find open rides: %w", err)
	}

	var results []models.MatchResult
	if kind == "ranked" {
		results = s.rank(candidates, matching.Route{Origin: *from, Destination: *to})
	} else {
		results = unranked(candidates)
	}
	for i := range results {
		results[i].PassengerOriginRegion = from
		results[i].PassengerDestinationRegion = to
	}
	results = truncate(results, s.cfg.ResultLimit)

	s.record(ctx, kind, start, len(candidates), results)
	return &models.SearchResponse{
		Results:      results,
		Count:        len(results),
		Ranked:       kind == "ranked",
		TableVersion: s.classifier.Version(),
	}, nil
}

// Nearby treats the location's region as both endpoints of the passenger
// route. The radius only caps how many rides come back.
func (s *searchService) Nearby(ctx context.Context, location string, seatsNeeded int, radiusKm float64) (*models.SearchResponse, error) {
	start := time.Now()
	if strings.TrimSpace(location) == "" {
		return nil, apperrors.BadRequest("location is required")
	}
	if seatsNeeded < 0 {
		return nil, apperrors.BadRequest("seats cannot be negative")
	}

	r := s.classify(location)
	candidates, err := s.rides.FindOpen(ctx, models.RideFilter{
		DepartingFrom: s.now().UTC(),
		MinSeats:      max(seatsNeeded, 1),
		Limit:         s.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("find open rides: %w", err)
	}

	results := s.rank(candidates, matching.Route{Origin: r, Destination: r})
	for i := range results {
		results[i].PassengerOriginRegion = &r
		results[i].PassengerDestinationRegion = &r
	}
	results = truncate(results, s.nearbyLimit(radiusKm))

	s.record(ctx, "nearby", start, len(candidates), results)
	return &models.SearchResponse{
		Results:      results,
		Count:        len(results),
		Ranked:       true,
		TableVersion: s.classifier.Version(),
	}, nil
}

// nearbyLimit maps the radius hint to a result cap: one ride per 2.5 km,
// between 5 and the configured result limit. The default 50 km gives 20.
func (s *searchService) nearbyLimit(radiusKm float64) int {
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		radiusKm = s.cfg.DefaultRadiusKM
	}
	limit := int(radiusKm / 2.5)
	return min(max(limit, 5), s.cfg.ResultLimit)
}

func (s *searchService) departingFrom(date *time.Time) time.Time {
	now := s.now().UTC()
	if date == nil {
		return now
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).UTC()
	if day.Before(now) {
		return now
	}
	return day
}

func (s *searchService) classify(text string) region.Region {
	r, matched := s.classifier.Resolve(text)
	if !matched {
		observability.ClassifierMisses.Inc()
	}
	return r
}

func (s *searchService) rank(rides []*models.Ride, passenger matching.Route) []models.MatchResult {
	byID := make(map[string]*models.Ride, len(rides))
	candidates := make([]matching.Candidate, 0, len(rides))
	for _, ride := range rides {
		byID[ride.ID] = ride
		candidates = append(candidates, matching.Candidate{
			RideID:      ride.ID,
			Route:       ride.Route(),
			DepartureAt: ride.DepartureAt,
		})
	}

	ranked := s.scorer.Rank(candidates, passenger)
	results := make([]models.MatchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, models.MatchResult{Ride: byID[r.RideID], Score: r.Score, Tag: r.Tag})
	}
	return results
}

func (s *searchService) record(ctx context.Context, kind string, start time.Time, candidates int, results []models.MatchResult) {
	observability.SearchLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	observability.SearchResults.WithLabelValues(kind).Observe(float64(len(results)))
	for _, r := range results {
		if r.Tag != matching.TagUnranked {
			observability.MatchTags.WithLabelValues(string(r.Tag)).Inc()
		}
	}
	logger.DebugContext(ctx, "ride search completed",
		zap.String("kind", kind),
		zap.Int("candidates_evaluated", candidates),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
	)
}

func unranked(rides []*models.Ride) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(rides))
	for _, ride := range rides {
		results = append(results, models.MatchResult{Ride: ride, Tag: matching.TagUnranked})
	}
	return results
}

func truncate(results []models.MatchResult, limit int) []models.MatchResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
