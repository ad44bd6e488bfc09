package manager

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// modelConfig is the subset of a pretrained config.json used for decoding.
type modelConfig struct {
	VocabSize int
	EOS       []int
	MaxPos    int
}

// readModelConfig parses config.json. eos_token_id may be a number or a
// list. A missing path yields a zero config.
func readModelConfig(path string) (modelConfig, error) {
	var mc modelConfig
	if path == "" {
		return mc, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return mc, fmt.Errorf("read model config: %w", err)
	}
	var raw struct {
		VocabSize int             `json:"vocab_size"`
		EOS       json.RawMessage `json:"eos_token_id"`
		MaxPos    int             `json:"max_position_embeddings"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return mc, fmt.Errorf("parse model config: %w", err)
	}
	mc.VocabSize = raw.VocabSize
	mc.MaxPos = raw.MaxPos
	if isNull(raw.EOS) {
		return mc, nil
	}
	var one int
	if err := json.Unmarshal(raw.EOS, &one); err == nil {
		mc.EOS = []int{one}
		return mc, nil
	}
	if err := json.Unmarshal(raw.EOS, &mc.EOS); err != nil {
		return mc, fmt.Errorf("parse eos_token_id: %w", err)
	}
	return mc, nil
}

func (mc modelConfig) isEOS(id int) bool {
	for _, e := range mc.EOS {
		if e == id {
			return true
		}
	}
	return false
}
