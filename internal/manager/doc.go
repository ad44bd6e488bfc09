// Package manager owns the process-wide model state and answers scoring
// requests. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, Init and simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: internal state types (State, Device, session slots).
//   - errors.go: the four error kinds and helpers (IsLoad, IsUninitialized, ...).
//   - envelope.go: request envelope parsing and parameter accessors.
//   - device.go: per-request device selection with GPU fallback.
//   - ensure.go: lazy, once-per-device session opening.
//   - admission.go: single in-flight generation per device session.
//   - run.go: Run/RunJSON entry points and the generation loop.
//   - status_report.go, sanity.go: Status and SanityCheck reporting.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors for runs and loads.
//   - sampling.go: temperature/top-k/top-p sampler used by in-process backends.
//
// Backends and build tags:
//
//   - onnx (`-tags=onnx`): tokenizer.json via daulet/tokenizers and model.onnx
//     via onnxruntime_go. A stub is compiled without the tag.
//   - llama (`-tags=llama`): in-process go-llama.cpp over a *.gguf file.
//     A stub is compiled without the tag.
//   - llama-server: always built; spawns one llama.cpp server per device and
//     talks to it over HTTP.
//
// A device session is opened once and never moved to another device; work on
// one session is serialized. External packages should use the public methods
// only (New, Init, Ready, Run, RunJSON, Status, SanityCheck, Close).
package manager
