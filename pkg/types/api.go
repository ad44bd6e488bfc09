package types

// ScoreRequest is the scoring request envelope accepted by POST /score.
type ScoreRequest struct {
	// Inputs carries the input strings and the generation parameters.
	Inputs ScoreInputs `json:"inputs"`
}

// ScoreInputs holds the texts to continue and free-form generation options.
type ScoreInputs struct {
	// Input strings; one continuation is produced per entry, in order.
	// example: ["Hello, my dog is cute."]
	InputStr []string `json:"input_str" example:"Hello, my dog is cute."`
	// Free-form generation options. Recognized keys: device (0 = GPU),
	// max_new_tokens (default 512), temperature, top_k, top_p, seed.
	Params map[string]any `json:"params"`
}

// ScoreResult is the success envelope: one decoded string per input.
type ScoreResult struct {
	// Decoded continuations in input order.
	// example: ["Hello, my dog is cute. He likes to run."]
	Result []string `json:"result" example:"Hello, my dog is cute. He likes to run."`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Model or tokenizer was not initialized correctly. Could not infer
	Error string `json:"error" example:"Model or tokenizer was not initialized correctly. Could not infer"`
	// HTTP status code. Omitted when the envelope is produced outside HTTP.
	// example: 503
	Code int `json:"code,omitempty" example:"503"`
}

// SessionStatus summarizes a device session for /status.
type SessionStatus struct {
	// Device the session is pinned to (cpu or cuda).
	// example: cpu
	Device string `json:"device" example:"cpu"`
	// Lifecycle state of the session.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this session served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Number of generations currently running on this session (0 or 1).
	// example: 0
	Inflight int `json:"inflight" example:"0"`
	// Requests waiting for the session.
	// example: 0
	Waiting int `json:"waiting" example:"0"`
	// Inputs generated on this session since it was opened.
	// example: 42
	Generations uint64 `json:"generations" example:"42"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall state (unloaded, loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Backend serving the model (onnx, llama, llama-server).
	// example: onnx
	Backend string `json:"backend,omitempty" example:"onnx"`
	// Resolved model directory.
	// example: /var/azureml-app/model/INPUT_model_path/open_llama
	ModelDir string `json:"model_dir,omitempty"`
	// Whether a GPU was detected at load time.
	// example: false
	GPUAvailable bool `json:"gpu_available" example:"false"`
	// Open device sessions.
	Sessions []SessionStatus `json:"sessions"`
	// Last load or generation error observed (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of scoring runs handled.
	// example: 12
	RunsTotal uint64 `json:"runs_total" example:"12"`
	// Total number of model loads (initialization plus device sessions).
	// example: 1
	LoadsTotal uint64 `json:"loads_total" example:"1"`
}
