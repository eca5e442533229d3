package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// lookPath resolves commands; tests replace it.
var lookPath = exec.LookPath

// Requirement defines an external binary stemsplit relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Check resolves req.Command. On success Command holds the resolved path.
func Check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := lookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("%q not found in PATH", status.Command)
		if req.Optional {
			status.Detail += " (optional)"
		}
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}

// CheckBinaries checks every requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = Check(req)
	}
	return results
}

// MissingRequired returns the unavailable, non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
