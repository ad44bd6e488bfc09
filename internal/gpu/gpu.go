// Package gpu detects whether a CUDA-capable device is usable by this process.
package gpu

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"scored/internal/common/fsutil"
)

// Probe reports GPU availability. Tests substitute their own.
type Probe func() bool

// driverVersionFile is exposed by the NVIDIA kernel driver when loaded.
var driverVersionFile = "/proc/driver/nvidia/version"

// smiTimeout bounds the nvidia-smi listing.
var smiTimeout = 3 * time.Second

// Available reports whether a CUDA device can be used. CUDA_VISIBLE_DEVICES
// set to an empty value, "-1" or "none" hides every device.
func Available() bool {
	if v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok && hidden(v) {
		return false
	}
	if fsutil.IsFile(driverVersionFile) {
		return true
	}
	return smiListsGPU()
}

func hidden(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "-1", "none", "void", "nodevfiles":
		return true
	}
	return false
}

// smiListsGPU asks nvidia-smi for the device list; a line starting with
// "GPU " means at least one device is present.
func smiListsGPU() bool {
	bin, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), smiTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "-L").Output()
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "GPU ") {
			return true
		}
	}
	return false
}
