// Package deps checks that external tools are installed before a scan
// depends on them.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary a tool runs.
type Requirement struct {
	Name     string
	Command  string
	Purpose  string
	Install  string
	Optional bool
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// CheckBinaries resolves every requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		if req.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(req.Command)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing joins an error for every unavailable required binary. Optional
// requirements never fail.
func Missing(statuses []Status) error {
	var errs []error
	for _, s := range statuses {
		if s.Available || s.Optional {
			continue
		}
		msg := fmt.Sprintf("%s (%s): %s", s.Name, s.Purpose, s.Detail)
		if s.Install != "" {
			msg += "; " + s.Install
		}
		errs = append(errs, errors.New(msg))
	}
	return errors.Join(errs...)
}

// FFprobe describes ffprobe, used to read audio tags.
func FFprobe(command string, optional bool) Requirement {
	return Requirement{
		Name:     "ffprobe",
		Command:  command,
		Purpose:  "reads audio tags",
		Install:  "install ffmpeg",
		Optional: optional,
	}
}

// Fpcalc describes chromaprint's fpcalc, used for acoustic fingerprints.
func Fpcalc(command string) Requirement {
	return Requirement{
		Name:    "fpcalc",
		Command: command,
		Purpose: "computes acoustic fingerprints",
		Install: "install chromaprint (libchromaprint-tools)",
	}
}
