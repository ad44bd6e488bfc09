package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"scored/internal/common/fsutil"
	"scored/pkg/types"
)

// Artifact formats recognized by Inspect.
const (
	FormatONNX = "onnx"
	FormatGGUF = "gguf"
)

// Well-known file names inside a pretrained model directory.
const (
	TokenizerFile = "tokenizer.json"
	ONNXModelFile = "model.onnx"
	ConfigFile    = "config.json"
)

// ErrNoArtifacts is returned when a directory holds no loadable model.
var ErrNoArtifacts = errors.New("no loadable model artifacts")

// ResolveModelDir joins the artifact root, the model path and the fixed
// subfolder, and checks the result is a directory. A subfolder of "." selects
// the model path itself.
func ResolveModelDir(root, modelPath, subfolder string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("model root is not set")
	}
	base, err := fsutil.ExpandHome(root)
	if err != nil {
		return "", err
	}
	dir, err := filepath.Abs(filepath.Join(base, modelPath, subfolder))
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	if !fsutil.IsDir(dir) {
		return "", fmt.Errorf("model directory not found: %s", dir)
	}
	return dir, nil
}

// Inspect classifies a model directory. A model.onnx next to a tokenizer.json
// is preferred; otherwise the first *.gguf (which embeds its tokenizer) is used.
func Inspect(dir string) (types.ModelArtifacts, error) {
	a := types.ModelArtifacts{Dir: dir}
	if !fsutil.IsDir(dir) {
		return a, fmt.Errorf("model directory not found: %s", dir)
	}
	if cfg := filepath.Join(dir, ConfigFile); fsutil.IsFile(cfg) {
		a.Config = cfg
	}
	onnx := filepath.Join(dir, ONNXModelFile)
	tok := filepath.Join(dir, TokenizerFile)
	if fsutil.IsFile(onnx) {
		if !fsutil.IsFile(tok) {
			return a, fmt.Errorf("%s present but %s missing in %s", ONNXModelFile, TokenizerFile, dir)
		}
		a.Format = FormatONNX
		a.Weights = onnx
		a.Tokenizer = tok
		return a, nil
	}
	ggufs, err := fsutil.FilesWithSuffix(dir, ".gguf")
	if err != nil {
		return a, err
	}
	if len(ggufs) > 0 {
		a.Format = FormatGGUF
		a.Weights = ggufs[0]
		return a, nil
	}
	return a, fmt.Errorf("%w in %s", ErrNoArtifacts, dir)
}
