package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external tool an import run shells out to.
type Requirement struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	// ConfigKey is the config setting that overrides Command.
	ConfigKey string `json:"config_key,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
}

// Status is the outcome of looking up one requirement.
type Status struct {
	Requirement
	Available bool `json:"available"`
	// Path is where the command was found.
	Path   string `json:"path,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// CheckBinaries looks each requirement up on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, lookup(req))
	}
	return results
}

func lookup(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured" + configHint(req)
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("%s binary %q not found%s", req.Name, req.Command, configHint(req))
		return status
	}
	status.Available = true
	status.Path = path
	return status
}

func configHint(req Requirement) string {
	if req.ConfigKey == "" {
		return ""
	}
	return "; install it or set " + req.ConfigKey
}
