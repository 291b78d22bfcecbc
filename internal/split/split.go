// Package split detects document boundaries inside a multi-page file.
// Strategies are registered by name and selected per job, with a
// configured default.
package split

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

// DocumentBoundary marks one detected document as an inclusive page range.
type DocumentBoundary struct {
	StartPage        int
	EndPage          int
	Confidence       float64
	Reasoning        string
	DetectedTypeHint string
}

// Result is the outcome of boundary detection over a file.
type Result struct {
	Boundaries     []DocumentBoundary
	TotalDocuments int
	TotalPages     int
	StrategyUsed   string
	Confidence     float64
}

// Splitter detects document boundaries in a page sequence.
type Splitter interface {
	Name() string
	DetectBoundaries(ctx context.Context, pages []preprocess.PageImage) (*Result, error)
}

// Service dispatches to registered splitters by strategy name.
type Service struct {
	mu              sync.RWMutex
	splitters       map[string]Splitter
	defaultStrategy string
	logger          *observability.Logger
}

// NewService creates a splitting service with the given default strategy.
func NewService(defaultStrategy string, logger *observability.Logger) *Service {
	return &Service{
		splitters:       make(map[string]Splitter),
		defaultStrategy: defaultStrategy,
		logger:          logger,
	}
}

// Register adds a splitter, replacing any previous one with the same name.
func (s *Service) Register(sp Splitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.splitters[sp.Name()] = sp
}

// Strategies returns the registered strategy names, sorted.
func (s *Service) Strategies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.splitters))
	for n := range s.splitters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Split runs the named strategy, falling back to the default when
// strategy is empty. A result always contains at least one boundary.
func (s *Service) Split(ctx context.Context, strategy string, pages []preprocess.PageImage) (*Result, error) {
	if strategy == "" {
		strategy = s.defaultStrategy
	}

	s.mu.RLock()
	sp, ok := s.splitters[strategy]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown splitting strategy %q", strategy)
	}

	result, err := sp.DetectBoundaries(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", strategy, err)
	}
	if len(result.Boundaries) == 0 {
		return nil, fmt.Errorf("strategy %s detected no documents", strategy)
	}

	s.logger.Info().
		Str("strategy", result.StrategyUsed).
		Int("total_pages", result.TotalPages).
		Int("documents_detected", result.TotalDocuments).
		Float64("confidence", result.Confidence).
		Msg("Boundary detection completed")

	return result, nil
}
