package types

// ModelArtifacts describes a pretrained model directory on disk.
type ModelArtifacts struct {
	// Directory holding the artifacts.
	// example: /var/azureml-app/model/INPUT_model_path/open_llama
	Dir string `json:"dir"`
	// Detected artifact format (onnx, gguf).
	// example: onnx
	Format string `json:"format"`
	// Tokenizer definition (tokenizer.json); empty for formats that embed it.
	Tokenizer string `json:"tokenizer,omitempty"`
	// Model weights file.
	Weights string `json:"weights"`
	// Model config (config.json), when present.
	Config string `json:"config,omitempty"`
}
