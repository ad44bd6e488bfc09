package manager

import (
	"context"
	"errors"
)

// forwardFunc runs the model over a full token sequence and returns the
// logits of its last position.
type forwardFunc func(seq []int64) ([]float32, error)

// decodeLoop appends sampled tokens to prompt until MaxNewTokens tokens were
// produced, an EOS token is sampled or the sequence reaches maxContext
// (0 means unbounded). The returned sequence starts with the prompt.
// ctx is checked before every forward pass.
func decodeLoop(ctx context.Context, prompt []int64, forward forwardFunc, cfg modelConfig, maxContext int, p GenerateParams) ([]int64, string, error) {
	if len(prompt) == 0 {
		return nil, "", errors.New("input produced no tokens")
	}
	seq := make([]int64, len(prompt), len(prompt)+max(0, p.MaxNewTokens))
	copy(seq, prompt)
	smp := newSampler(p.Seed)
	for step := 0; step < p.MaxNewTokens; step++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if maxContext > 0 && len(seq) >= maxContext {
			break
		}
		logits, err := forward(seq)
		if err != nil {
			return nil, "", err
		}
		next := smp.sample(logits, p)
		seq = append(seq, int64(next))
		if cfg.isEOS(next) {
			return seq, FinishStop, nil
		}
	}
	return seq, FinishLength, nil
}
