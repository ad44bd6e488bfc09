package manager

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Generation defaults applied when params omit a key.
const (
	DefaultMaxNewTokens = 512
	DefaultTemperature  = 1.0
	DefaultTopK         = 50
	DefaultTopP         = 1.0
)

// deviceCPURequest is the device value meaning "do not use the GPU".
const deviceCPURequest = -1

// Params is the free-form generation option mapping of a request.
type Params map[string]any

// wireRequest mirrors {"inputs": {"input_str": [...], "params": {...}}}.
// Raw messages let missing and null keys be told apart from wrong types.
type wireRequest struct {
	Inputs json.RawMessage `json:"inputs"`
}

type wireInputs struct {
	InputStr json.RawMessage `json:"input_str"`
	Params   json.RawMessage `json:"params"`
}

// parseRequest extracts the input list and parameter mapping from a raw
// envelope. Every failure is a malformed-input error.
func parseRequest(raw []byte) ([]string, Params, error) {
	var req wireRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, nil, errMalformed(fmt.Sprintf("invalid JSON: %v", err))
	}
	if isNull(req.Inputs) {
		return nil, nil, errMalformed("missing key 'inputs'")
	}
	var in wireInputs
	if err := json.Unmarshal(req.Inputs, &in); err != nil {
		return nil, nil, errMalformed("'inputs' must be an object")
	}
	if isNull(in.InputStr) {
		return nil, nil, errMalformed("missing key 'input_str'")
	}
	if isNull(in.Params) {
		return nil, nil, errMalformed("missing key 'params'")
	}
	var elems []*string
	if err := json.Unmarshal(in.InputStr, &elems); err != nil {
		return nil, nil, errMalformed("'input_str' must be a list of strings")
	}
	inputs := make([]string, len(elems))
	for i, e := range elems {
		if e == nil {
			return nil, nil, errMalformed("'input_str' must be a list of strings")
		}
		inputs[i] = *e
	}
	params := Params{}
	dec := json.NewDecoder(bytes.NewReader(in.Params))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, nil, errMalformed("'params' must be an object")
	}
	return inputs, params, nil
}

func isNull(m json.RawMessage) bool {
	t := bytes.TrimSpace(m)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// Device returns the requested device selector: only a JSON number equal to
// 0 asks for the GPU. Anything else, including the string "0", means CPU.
func (p Params) Device() int {
	var f float64
	switch x := p["device"].(type) {
	case json.Number:
		v, err := x.Float64()
		if err != nil {
			return deviceCPURequest
		}
		f = v
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return deviceCPURequest
	}
	if f != 0 {
		return deviceCPURequest
	}
	return 0
}

// MaxNewTokens returns max_new_tokens, defaulting to DefaultMaxNewTokens.
func (p Params) MaxNewTokens() (int, error) {
	n, err := p.intParam("max_new_tokens", DefaultMaxNewTokens)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("max_new_tokens must be positive, got %d", n)
	}
	return n, nil
}

// generateParams collects every recognized sampling option.
func (p Params) generateParams() (GenerateParams, error) {
	var gp GenerateParams
	var err error
	if gp.MaxNewTokens, err = p.MaxNewTokens(); err != nil {
		return gp, err
	}
	temp, err := p.floatParam("temperature", DefaultTemperature)
	if err != nil {
		return gp, err
	}
	if temp <= 0 {
		return gp, fmt.Errorf("temperature must be strictly positive, got %v", temp)
	}
	gp.Temperature = float32(temp)
	if gp.TopK, err = p.intParam("top_k", DefaultTopK); err != nil {
		return gp, err
	}
	if gp.TopK < 0 {
		return gp, fmt.Errorf("top_k must be non-negative, got %d", gp.TopK)
	}
	topP, err := p.floatParam("top_p", DefaultTopP)
	if err != nil {
		return gp, err
	}
	if topP <= 0 || topP > 1 {
		return gp, fmt.Errorf("top_p must be in (0, 1], got %v", topP)
	}
	gp.TopP = float32(topP)
	seed, err := p.intParam("seed", 0)
	if err != nil {
		return gp, err
	}
	gp.Seed = int64(seed)
	return gp, nil
}

func (p Params) intParam(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%s must be an integer, got %v", key, v)
	}
	return int(f), nil
}

func (p Params) floatParam(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
