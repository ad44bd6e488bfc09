package manager

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// sampler draws the next token from logits with temperature, top-k and
// top-p (nucleus) filtering. It is not safe for concurrent use.
type sampler struct {
	rng *rand.Rand
}

// newSampler seeds the sampler; seed 0 picks a time-based seed.
func newSampler(seed int64) *sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &sampler{rng: rand.New(rand.NewSource(seed))}
}

// sample returns the index of the chosen token. logits is not modified.
func (s *sampler) sample(logits []float32, p GenerateParams) int {
	if len(logits) == 0 {
		return 0
	}
	idx := make([]int, len(logits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return logits[idx[a]] > logits[idx[b]] })
	if p.TopK > 0 && p.TopK < len(idx) {
		idx = idx[:p.TopK]
	}

	temp := float64(p.Temperature)
	if temp <= 0 {
		temp = DefaultTemperature
	}
	// softmax over the candidates, max-shifted for numerical stability
	maxL := float64(logits[idx[0]]) / temp
	probs := make([]float64, len(idx))
	var sum float64
	for i, id := range idx {
		probs[i] = math.Exp(float64(logits[id])/temp - maxL)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	// nucleus: smallest prefix whose mass reaches top_p, at least one token
	if p.TopP > 0 && p.TopP < 1 {
		var cum float64
		cut := len(probs)
		for i, pr := range probs {
			cum += pr
			if cum >= float64(p.TopP) {
				cut = i + 1
				break
			}
		}
		idx, probs = idx[:cut], probs[:cut]
		sum = 0
		for _, pr := range probs {
			sum += pr
		}
		for i := range probs {
			probs[i] /= sum
		}
	}

	r := s.rng.Float64()
	var cum float64
	for i, pr := range probs {
		cum += pr
		if r < cum {
			return idx[i]
		}
	}
	return idx[len(idx)-1]
}
