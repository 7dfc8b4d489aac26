package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"weave/internal/models"
	"weave/internal/observability"
	"weave/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Similarity signal weights. Each signal contributes only when both sides
// have the attribute populated; a null on either side contributes zero and
// never penalizes. Scores are purely additive and unbounded above.
const (
	professionMatchScore   = 3.0
	bioMatchScore          = 5.0
	languageMatchScore     = 1.5
	mutualConnectionWeight = 0.5
)

// DefaultSuggestionLimit is the number of suggestions returned when the
// caller does not override the limit.
const DefaultSuggestionLimit = 6

// maxFallbackCandidates caps the all-users fallback scan. Without it a user
// with no network would trigger a full O(n) similarity pass over the whole
// user base on every request.
const maxFallbackCandidates = 1000

// SuggestionService recommends new connections by traversing the
// friend-of-friend graph and ranking candidates by profile similarity and
// mutual-connection strength. It is stateless between invocations: every
// request recomputes the traversal and scores from current store contents.
type SuggestionService struct {
	connRepo repository.ConnectionRepository
	userRepo repository.UserRepository
}

// NewSuggestionService returns a new SuggestionService.
func NewSuggestionService(connRepo repository.ConnectionRepository, userRepo repository.UserRepository) *SuggestionService {
	return &SuggestionService{
		connRepo: connRepo,
		userRepo: userRepo,
	}
}

type scoredCandidate struct {
	user  models.User
	score float64
}

// Suggestions returns up to limit candidate users for userID, ranked by
// descending similarity score. It fails with NotFound only when the seed
// user is unknown; an empty result is valid. Candidates never include any
// user already linked to the seed by an edge of any status.
func (s *SuggestionService) Suggestions(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	defer observability.ObserveSuggestion(time.Now())
	span, ctx := observability.NewSpan(ctx, "suggestions.compute")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	direct, err := s.connRepo.NeighborIDs(ctx, userID, models.ConnectionStatusAccepted)
	if err != nil {
		return nil, err
	}
	directSet := toSet(direct)

	// Exclusion set: any edge in any status, broader than direct.
	anyConnected, err := s.connRepo.NeighborIDs(ctx, userID,
		models.ConnectionStatusPending, models.ConnectionStatusAccepted)
	if err != nil {
		return nil, err
	}
	excluded := toSet(anyConnected)

	candidates, err := s.candidateUsers(ctx, userID, direct, directSet, excluded)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for i := range candidates {
		cand := candidates[i]

		// Defensive re-exclusion: a second-degree neighbor may itself
		// already hold a pending edge to the seed user.
		if _, ok := excluded[cand.ID]; ok || cand.ID == userID {
			continue
		}
		// Incomplete profiles provide no comparable attributes.
		if !cand.ComputeProfileComplete() {
			continue
		}

		score := ProfileSimilarity(user, &cand)
		mutual, err := s.countMutualConnections(ctx, directSet, cand.ID)
		if err != nil {
			return nil, err
		}
		score += float64(mutual) * mutualConnectionWeight

		scored = append(scored, scoredCandidate{user: cand, score: score})
	}

	// Deterministic order: score descending, then ascending user id.
	// Candidate sets come from map-backed unions, so without the explicit
	// tie-break the order would vary between runs.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].user.ID < scored[j].user.ID
	})

	span.AddAttributes(
		attribute.Int("suggestions.candidates", len(scored)),
		attribute.Int("suggestions.limit", limit),
	)

	if len(scored) > limit {
		scored = scored[:limit]
	}
	result := make([]models.User, len(scored))
	for i := range scored {
		result[i] = scored[i].user
	}
	return result, nil
}

// candidateUsers computes the second-degree pool: the union of accepted
// neighbors of every accepted neighbor, minus the seed, its direct
// connections and its exclusion set. When the pool is empty it falls back
// to every known user except self minus the exclusion set, losing the
// friend-of-friend signal but keeping sparse networks served.
func (s *SuggestionService) candidateUsers(ctx context.Context, userID uint, direct []uint, directSet, excluded map[uint]struct{}) ([]models.User, error) {
	secondDegree := make(map[uint]struct{})
	for _, neighborID := range direct {
		theirNeighbors, err := s.connRepo.NeighborIDs(ctx, neighborID, models.ConnectionStatusAccepted)
		if err != nil {
			return nil, err
		}
		for _, id := range theirNeighbors {
			secondDegree[id] = struct{}{}
		}
	}
	delete(secondDegree, userID)
	for id := range directSet {
		delete(secondDegree, id)
	}
	for id := range excluded {
		delete(secondDegree, id)
	}

	if len(secondDegree) == 0 {
		observability.SuggestionFallbacks.Inc()
		all, err := s.userRepo.ListOthers(ctx, userID, maxFallbackCandidates)
		if err != nil {
			return nil, err
		}
		candidates := all[:0]
		for i := range all {
			if _, ok := excluded[all[i].ID]; !ok {
				candidates = append(candidates, all[i])
			}
		}
		return candidates, nil
	}

	ids := make([]uint, 0, len(secondDegree))
	for id := range secondDegree {
		ids = append(ids, id)
	}
	return s.userRepo.GetByIDs(ctx, ids)
}

func (s *SuggestionService) countMutualConnections(ctx context.Context, userNeighbors map[uint]struct{}, candidateID uint) (int, error) {
	candNeighbors, err := s.connRepo.NeighborIDs(ctx, candidateID, models.ConnectionStatusAccepted)
	if err != nil {
		return 0, err
	}
	mutual := 0
	for _, id := range candNeighbors {
		if _, ok := userNeighbors[id]; ok {
			mutual++
		}
	}
	return mutual, nil
}

// ProfileSimilarity computes the additive attribute-match score between two
// users. Matches are case-insensitive but otherwise exact; there is no
// fuzzy or partial matching.
func ProfileSimilarity(a, b *models.User) float64 {
	score := 0.0
	if bothEqualFold(a.Profession, b.Profession) {
		score += professionMatchScore
	}
	if bothEqualFold(a.Bio, b.Bio) {
		score += bioMatchScore
	}
	if bothEqualFold(a.NativeLanguage, b.NativeLanguage) {
		score += languageMatchScore
	}
	return score
}

func bothEqualFold(a, b *string) bool {
	return a != nil && b != nil && strings.EqualFold(*a, *b)
}

func toSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
