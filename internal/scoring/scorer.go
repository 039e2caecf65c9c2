package scoring

import (
	"context"
	"errors"
	"math"
	"unicode/utf8"

	"github.com/spigell/resume-matcher/internal/utils"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 200

// EngineError wraps any failure of the scoring engine.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return "scoring engine: " + e.Err.Error() }

func (e *EngineError) Unwrap() error { return e.Err }

var errNoResults = errors.New("no results returned")

// Scorer turns the engine's top result into a percentage.
type Scorer struct {
	engine    Engine
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(engine Engine, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		engine:    engine,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Score returns the similarity of the résumé to the job description as a
// percentage in [0,100] rounded to two decimals. The engine receives the
// résumé text first.
func (s *Scorer) Score(ctx context.Context, jobDescription, resume string) (float64, error) {
	s.logger.Debug("scoring request",
		zap.Int("jd_length", utf8.RuneCountInString(jobDescription)),
		zap.String("jd_preview", utils.TruncateForLog(jobDescription, s.maxLogLen)),
		zap.Int("resume_length", utf8.RuneCountInString(resume)),
		zap.String("resume_preview", utils.TruncateForLog(resume, s.maxLogLen)),
	)

	results, err := s.engine.Score(ctx, resume, jobDescription)
	if err != nil {
		return 0, &EngineError{Err: err}
	}
	if len(results) == 0 {
		return 0, &EngineError{Err: errNoResults}
	}

	top := results[0]
	score := Percentage(top.Score)

	s.logger.Info("similarity score",
		zap.Float64("raw", top.Score),
		zap.Float64("score", score),
		zap.String("model", top.Model),
		zap.Int("results", len(results)),
	)

	return score, nil
}

// Percentage clamps raw to [0,1], scales it to 0–100 and rounds half away
// from zero to two decimals.
func Percentage(raw float64) float64 {
	if math.IsNaN(raw) || raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	return math.Round(raw*100*100) / 100
}
