package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
)

type QueryConfig struct {
	// DefaultTopK is used when a request does not specify how many sources
	// it wants.
	DefaultTopK int
	// MinScore drops candidates whose query relevance falls below it before
	// generation. Diversity-selected candidates are judged on the similarity
	// behind their selection objective, not the objective itself. Falling
	// below the threshold is not an error; the answer falls back instead.
	MinScore float64
	// FallbackAnswer is returned verbatim when no usable context exists.
	FallbackAnswer string
	// RerankInitialK is the default first-stage candidate window for
	// two-stage retrieval.
	RerankInitialK int
	// Collection names the backing index in stats responses.
	Collection string
}

// QueryService answers questions grounded in the indexed corpus. The
// generator is only ever invoked with a non-empty context; when retrieval
// produces nothing usable the service answers with the fallback and an
// empty source list.
type QueryService struct {
	log          *slog.Logger
	retriever    *Retriever
	crossEncoder ports.CrossEncoder
	generator    ports.AnswerGenerator
	vectors      ports.VectorIndex
	cfg          QueryConfig
}

func NewQueryService(
	log *slog.Logger,
	retriever *Retriever,
	crossEncoder ports.CrossEncoder,
	generator ports.AnswerGenerator,
	vectors ports.VectorIndex,
	cfg QueryConfig,
) *QueryService {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.RerankInitialK <= 0 {
		cfg.RerankInitialK = 20
	}
	if cfg.FallbackAnswer == "" {
		cfg.FallbackAnswer = "I don't know based on the available documents."
	}
	return &QueryService{
		log:          log,
		retriever:    retriever,
		crossEncoder: crossEncoder,
		generator:    generator,
		vectors:      vectors,
		cfg:          cfg,
	}
}

func (s *QueryService) Ask(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("empty question"))
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	candidates, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		if domain.IsKind(err, domain.ErrEmptyIndex) {
			s.log.Info("answering with fallback", "reason", "empty index")
			return s.fallbackAnswer(), nil
		}
		return nil, err
	}

	candidates = s.aboveThreshold(candidates)
	if len(candidates) == 0 {
		s.log.Info("answering with fallback", "reason", "no candidate above threshold")
		return s.fallbackAnswer(), nil
	}

	text, err := s.generator.GenerateAnswer(ctx, question, candidates)
	if err != nil {
		return nil, err
	}

	sources := guardSources(assembleSources(candidates), candidates)
	s.log.Info("question answered",
		"sources", len(sources),
		"top_score", candidates[0].Score,
		"stage", string(candidates[0].Stage),
	)
	return &domain.Answer{Text: text, Sources: sources}, nil
}

func (s *QueryService) AskReranked(ctx context.Context, question string, initialK, finalK int) (*domain.RerankedAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask reranked", fmt.Errorf("empty question"))
	}
	if finalK <= 0 {
		finalK = s.cfg.DefaultTopK
	}
	if initialK <= 0 {
		initialK = s.cfg.RerankInitialK
	}
	if initialK < finalK {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "ask reranked",
			fmt.Errorf("initial_k %d smaller than final_k %d", initialK, finalK))
	}

	initial, err := s.retriever.RetrieveVector(ctx, question, initialK)
	if err != nil {
		if domain.IsKind(err, domain.ErrEmptyIndex) {
			s.log.Info("answering with fallback", "reason", "empty index")
			return s.fallbackRerankedAnswer(RerankingOutcome{}), nil
		}
		return nil, err
	}
	if len(initial) == 0 {
		return s.fallbackRerankedAnswer(RerankingOutcome{}), nil
	}

	outcome, err := rerankCandidates(ctx, s.crossEncoder, question, initial, finalK)
	if err != nil {
		return nil, err
	}

	final := s.aboveThreshold(outcome.Final)
	if len(final) == 0 {
		s.log.Info("answering with fallback", "reason", "no reranked candidate above threshold")
		return s.fallbackRerankedAnswer(outcome), nil
	}

	text, err := s.generator.GenerateAnswer(ctx, question, final)
	if err != nil {
		return nil, err
	}

	sources := guardSources(assembleSources(final), final)
	s.log.Info("question answered",
		"sources", len(sources),
		"order_changed", outcome.Stats.RerankingChangedOrder,
	)
	return &domain.RerankedAnswer{
		Answer: domain.Answer{Text: text, Sources: sources},
		Stats:  outcome.Stats,
	}, nil
}

func (s *QueryService) Stats(ctx context.Context) (domain.IndexStats, error) {
	count, err := s.vectors.Count(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}
	return domain.IndexStats{
		Collection: s.cfg.Collection,
		ChunkCount: count,
	}, nil
}

func (s *QueryService) aboveThreshold(candidates []domain.RetrievalCandidate) []domain.RetrievalCandidate {
	if s.cfg.MinScore <= 0 {
		return candidates
	}
	kept := candidates[:0]
	for _, candidate := range candidates {
		if candidate.Relevance >= s.cfg.MinScore {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func (s *QueryService) fallbackAnswer() *domain.Answer {
	return &domain.Answer{
		Text:    s.cfg.FallbackAnswer,
		Sources: []domain.Citation{},
	}
}

func (s *QueryService) fallbackRerankedAnswer(outcome RerankingOutcome) *domain.RerankedAnswer {
	stats := outcome.Stats
	stats.FinalResults = 0
	if stats.OriginalTop3Chunks == nil {
		stats.OriginalTop3Chunks = []int{}
	}
	if stats.RerankedTop3Chunks == nil {
		stats.RerankedTop3Chunks = []int{}
	}
	return &domain.RerankedAnswer{
		Answer: *s.fallbackAnswer(),
		Stats:  stats,
	}
}
