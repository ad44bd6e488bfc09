package manager

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scored/pkg/types"
)

// RunOption customizes a single Run call.
type RunOption func(*runOptions)

type runOptions struct {
	runID      string
	onProgress func(done, total int)
}

// WithRunID tags the run's log lines with id instead of a generated UUID.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// WithProgress registers a callback invoked after each input is generated.
func WithProgress(fn func(done, total int)) RunOption {
	return func(o *runOptions) { o.onProgress = fn }
}

// Run answers one scoring request: it parses the envelope, selects a device,
// then tokenizes, generates and decodes every input in order. Errors are one
// of the uninitialized, malformed-input or generation kinds; a failure on any
// input fails the whole request.
func (m *Manager) Run(ctx context.Context, raw []byte, opts ...RunOption) (types.ScoreResult, error) {
	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	log := m.log.With().Str("run_id", o.runID).Logger()
	start := time.Now()
	defer func() {
		log.Info().Dur("dur", time.Since(start)).Msgf("%q executed in %.4fs", "run", time.Since(start).Seconds())
	}()

	res, err := m.run(ctx, raw, log, o)
	m.runs.Add(1)
	runsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		m.setLastError(err)
		m.pub.Publish(Event{Name: EventRunError, Fields: map[string]any{"run_id": o.runID, "error": err.Error()}})
		log.Error().Err(err).Msg("run failed")
	}
	return res, err
}

// RunJSON is Run with JSON in and out. It never fails: errors are rendered as
// the {"error": "..."} envelope.
func (m *Manager) RunJSON(ctx context.Context, raw []byte, opts ...RunOption) []byte {
	res, err := m.Run(ctx, raw, opts...)
	if err != nil {
		return ErrorJSON(err)
	}
	b, err := json.Marshal(res)
	if err != nil {
		return ErrorJSON(generationError{err: err})
	}
	return b
}

func (m *Manager) run(ctx context.Context, raw []byte, log zerolog.Logger, o runOptions) (types.ScoreResult, error) {
	if !m.Ready() {
		return types.ScoreResult{}, ErrUninitialized
	}
	log.Debug().RawJSON("data", sanitizeJSON(raw)).Msg("request")

	inputs, params, err := parseRequest(raw)
	if err != nil {
		return types.ScoreResult{}, err
	}
	gp, err := params.generateParams()
	if err != nil {
		return types.ScoreResult{}, errMalformed(err.Error())
	}
	dev := m.selectDevice(params.Device(), log)

	sl, err := m.ensureSlot(dev)
	if err != nil {
		if IsUninitialized(err) {
			return types.ScoreResult{}, err
		}
		return types.ScoreResult{}, generationError{err: err}
	}
	release, err := m.acquire(ctx, sl)
	if err != nil {
		return types.ScoreResult{}, generationError{err: err}
	}
	defer release()

	out := make([]string, 0, len(inputs))
	for i, in := range inputs {
		g, err := m.generate(ctx, sl, in, gp)
		if err != nil {
			return types.ScoreResult{}, generationError{err: err}
		}
		generatedTokensTotal.WithLabelValues(dev.String()).Add(float64(g.NewTokens))
		log.Debug().Int("input", i).Int("prompt_tokens", g.PromptTokens).Int("new_tokens", g.NewTokens).Str("finish_reason", g.FinishReason).Msg("generated")
		out = append(out, g.Text)
		if o.onProgress != nil {
			o.onProgress(i+1, len(inputs))
		}
	}
	return types.ScoreResult{Result: out}, nil
}

// generate runs one input on sl, converting a backend panic into an error.
func (m *Manager) generate(ctx context.Context, sl *slot, input string, gp GenerateParams) (g Generation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return Generation{}, err
	}
	g, err = sl.sess.Generate(ctx, input, gp)
	if err != nil {
		return Generation{}, err
	}
	m.mu.Lock()
	sl.gens++
	sl.lastUsed = time.Now()
	m.mu.Unlock()
	return g, nil
}

// sanitizeJSON returns raw when it is valid JSON, else a JSON string of it,
// so the request can always be logged as a raw JSON field.
func sanitizeJSON(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	b, _ := json.Marshal(string(raw))
	return b
}
