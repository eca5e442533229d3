package separation

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Devices accepted by the separator.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
	DeviceMPS  = "mps"
)

type platform struct {
	goos     string
	goarch   string
	lookPath func(string) (string, error)
}

func hostPlatform() platform {
	return platform{goos: runtime.GOOS, goarch: runtime.GOARCH, lookPath: exec.LookPath}
}

// resolveDevice maps a configured device to a concrete one. auto prefers CUDA
// when nvidia-smi is on PATH, then Apple MPS, then CPU.
func (p platform) resolveDevice(requested string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case "", DeviceAuto:
		if p.lookPath != nil {
			if _, err := p.lookPath("nvidia-smi"); err == nil {
				return DeviceCUDA, nil
			}
		}
		if p.goos == "darwin" && p.goarch == "arm64" {
			return DeviceMPS, nil
		}
		return DeviceCPU, nil
	case DeviceCPU:
		return DeviceCPU, nil
	case DeviceCUDA:
		return DeviceCUDA, nil
	case DeviceMPS:
		return DeviceMPS, nil
	default:
		return "", fmt.Errorf("unsupported device %q", requested)
	}
}
