package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external program one of the conversion modes shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional requirements never fail a run; the feature they back is skipped.
	Optional bool
}

// Status is the outcome of resolving a Requirement on PATH.
type Status struct {
	Requirement
	Path      string // resolved executable when Available
	Available bool
	Detail    string
}

// CheckBinaries resolves every requirement and reports availability in
// input order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		results[i] = resolve(req)
	}
	return results
}

func resolve(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	switch {
	case err == nil:
		status.Path = path
		status.Available = true
	case errors.Is(err, exec.ErrNotFound):
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
	default:
		status.Detail = fmt.Sprintf("binary %q unusable: %v", req.Command, err)
	}
	return status
}

// Missing filters statuses down to unavailable required programs.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
