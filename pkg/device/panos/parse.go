package panos

import (
	"regexp"
	"strings"

	"github.com/panshift/panshift/pkg/device"
)

// atPrompt reports whether the accumulated output ends at a CLI prompt.
// Prompts look like admin@fw-1> in operational mode and admin@fw-1# in
// configure mode, sometimes with an HA suffix such as admin@fw-1(active)>.
func atPrompt(out string) bool {
	line := lastLine(out)
	if !strings.Contains(line, "@") {
		return false
	}
	return strings.HasSuffix(line, ">") || strings.HasSuffix(line, "#")
}

// lastLine returns the final non-terminated line of out, trimmed. A chunk
// ending in a newline has no pending line, so the result is empty.
func lastLine(out string) string {
	out = strings.TrimRight(out, " \t")
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	return strings.TrimSpace(out)
}

// stripEcho drops the echoed command from the head of raw output and the
// prompt from its tail.
func stripEcho(out, cmd string) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	lines := strings.Split(out, "\n")

	start := 0
	if cmd != "" && len(lines) > 0 && strings.Contains(lines[0], cmd) {
		start = 1
	}
	end := len(lines)
	for end > start && (strings.TrimSpace(lines[end-1]) == "" || atPrompt(lines[end-1])) {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// responseError scans command output for a CLI rejection and returns the
// offending line, or empty when the output looks clean.
func responseError(out string) string {
	for _, line := range strings.Split(out, "\n") {
		l := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(l, "invalid syntax"),
			strings.HasPrefix(l, "unknown command"),
			strings.HasPrefix(l, "validation error"),
			strings.HasPrefix(l, "server error"),
			strings.HasPrefix(l, "error:"),
			strings.Contains(l, "failed to "):
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// parseSystemInfo extracts identity fields from show system info output.
// Lines are key: value pairs; values may themselves contain colons, so only
// the first colon splits.
func parseSystemInfo(out string) *device.Identity {
	id := &device.Identity{}
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "hostname":
			id.Hostname = value
		case "serial":
			id.Serial = value
		case "model":
			id.Model = value
		case "sw-version":
			id.Version = value
		}
	}
	return id
}

var jobIDRE = regexp.MustCompile(`(?i)jobid (\d+)`)

// parseCommitResult classifies commit output. Success prints Commit
// succeeded or Configuration committed successfully; failures carry an
// Error: or Validation Error line with the reason. An empty candidate
// config reports no changes, which is not a failure.
func parseCommitResult(out string) *device.CommitResult {
	res := &device.CommitResult{}
	if m := jobIDRE.FindStringSubmatch(out); m != nil {
		res.JobID = m[1]
	}

	l := strings.ToLower(out)
	switch {
	case strings.Contains(l, "commit succeeded"),
		strings.Contains(l, "configuration committed successfully"):
		res.Success = true
	case strings.Contains(l, "no changes to commit"):
		res.Success = true
		res.Detail = "no changes to commit"
	default:
		res.Success = false
		res.Detail = strings.TrimSpace(out)
		if line := responseError(out); line != "" {
			res.Detail = line
		}
	}
	return res
}
