package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
)

var (
	// ErrEmptyEmbedding means the service answered without any values.
	ErrEmptyEmbedding = errors.New("no embedding values returned from API")

	// ErrDimensionMismatch means the service returned a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyText is returned for blank input without calling the service.
	ErrEmptyText = errors.New("cannot embed empty text")
)

// FailureKind distinguishes why an embedding call gave up.
type FailureKind int

const (
	// FailurePermanent is a non-retryable error, or a bad response.
	FailurePermanent FailureKind = iota
	// FailureExhausted means every attempt hit a rate limit.
	FailureExhausted
)

func (k FailureKind) String() string {
	if k == FailureExhausted {
		return "exhausted"
	}
	return "permanent"
}

// Failure is the only error type Embed and EmbedBatch return.
type Failure struct {
	Kind     FailureKind
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("embedding failed (%s after %d attempt(s)): %v", f.Kind, f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Options tune a Service built around an explicit Provider.
type Options struct {
	// Dimensions, when positive, is enforced on every returned vector.
	Dimensions int
	Policy     Policy

	// EmbedBatch sleeps PaceDelay before every PaceEvery-th item.
	PaceEvery int
	PaceDelay time.Duration

	Sleeper Sleeper
	Logger  *zerolog.Logger
}

// Service provides embedding generation with retry and pacing
type Service struct {
	provider  Provider
	dims      int
	policy    Policy
	paceEvery int
	paceDelay time.Duration
	sleeper   Sleeper
	logger    zerolog.Logger
}

// NewService creates a new embedding service for the configured provider
func NewService(cfg *config.EmbeddingConfig) (*Service, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.Provider {
	case "google", "":
		provider, err = NewGoogleClient(cfg)
	case "openai":
		provider, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return New(provider, Options{
		Dimensions: cfg.Dimensions,
		Policy:     PolicyFromConfig(cfg.Retry),
		PaceEvery:  cfg.PaceEvery,
		PaceDelay:  cfg.PaceDelay,
	}), nil
}

// New wraps provider with the given options.
func New(provider Provider, opts Options) *Service {
	if opts.Policy.MaxAttempts < 1 {
		opts.Policy = DefaultPolicy
	}
	if opts.Sleeper == nil {
		opts.Sleeper = RealSleeper
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Service{
		provider:  provider,
		dims:      opts.Dimensions,
		policy:    opts.Policy,
		paceEvery: opts.PaceEvery,
		paceDelay: opts.PaceDelay,
		sleeper:   opts.Sleeper,
		logger:    logger.With().Str("component", "embedding").Str("provider", provider.Name()).Logger(),
	}
}

// Embed returns the vector for text, retrying rate-limited calls per the policy.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &Failure{Kind: FailurePermanent, Err: ErrEmptyText}
	}

	var lastErr error
	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		raw, err := s.provider.EmbedContent(ctx, text)
		if err == nil {
			vec, err := s.normalize(raw)
			if err != nil {
				return nil, &Failure{Kind: FailurePermanent, Attempts: attempt + 1, Err: err}
			}
			if attempt > 0 {
				s.logger.Debug().Int("attempts", attempt+1).Msg("embedding succeeded after retry")
			}
			return vec, nil
		}

		class := Classify(err)
		if class == ClassPermanent {
			return nil, &Failure{Kind: FailurePermanent, Attempts: attempt + 1, Err: err}
		}
		lastErr = err
		if attempt == s.policy.MaxAttempts-1 {
			break
		}

		wait := s.policy.Delay(attempt, class)
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", s.policy.MaxAttempts).
			Stringer("class", class).
			Dur("wait", wait).
			Msg("embedding rate limited, backing off")

		if err := s.sleeper.Sleep(ctx, wait); err != nil {
			return nil, &Failure{Kind: FailurePermanent, Attempts: attempt + 1, Err: err}
		}
	}

	return nil, &Failure{Kind: FailureExhausted, Attempts: s.policy.MaxAttempts, Err: lastErr}
}

// EmbedBatch embeds texts one at a time, in order. The first failure aborts
// the batch and no vectors are returned.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if i > 0 && s.paceEvery > 0 && i%s.paceEvery == 0 {
			s.logger.Debug().Int("done", i).Int("total", len(texts)).Msg("embedding batch progress")
			if err := s.sleeper.Sleep(ctx, s.paceDelay); err != nil {
				return nil, &Failure{Kind: FailurePermanent, Err: err}
			}
		}

		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("item %d of %d: %w", i, len(texts), err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the enforced vector length, or 0 when unchecked.
func (s *Service) Dimensions() int {
	return s.dims
}

func (s *Service) normalize(raw []float64) ([]float32, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if s.dims > 0 && len(raw) != s.dims {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(raw), s.dims)
	}
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
