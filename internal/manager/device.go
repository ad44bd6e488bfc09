package manager

import "github.com/rs/zerolog"

// selectDevice maps the requested device selector to a device. A GPU request
// without a GPU falls back to the CPU with a warning; running on the CPU while
// a GPU is available only warns.
func (m *Manager) selectDevice(requested int, log zerolog.Logger) Device {
	m.mu.RLock()
	gpuOK := m.gpuAvail
	m.mu.RUnlock()

	d := DeviceCPU
	switch {
	case requested == 0 && gpuOK:
		d = DeviceGPU
	case requested == 0:
		log.Warn().Msg("CUDA unavailable. Defaulting to CPU device.")
		deviceFallbacksTotal.Inc()
		m.pub.Publish(Event{Name: EventDeviceFallback, Device: DeviceCPU.String(), Fields: map[string]any{}})
	case gpuOK:
		log.Warn().Msg("CUDA available. To switch to GPU device pass `\"params\": {\"device\" : 0}` in the input.")
		m.pub.Publish(Event{Name: EventGPUIdle, Device: DeviceCPU.String(), Fields: map[string]any{}})
	}
	log.Info().Str("device", d.String()).Msgf("Using device: %s for the inference", d)
	return d
}
