// Package model defines the domain types for the compose-combine CLI.
//
// These types describe what the aggregation discovered and produced. They
// carry no YAML trees themselves; the compose package owns the documents
// and fills these values in as it works so the CLI can report on a run.
package model

import (
	"fmt"
	"strings"
)

// DefaultComposeFileName is the exact file name searched for in every
// subdirectory of the root.
const DefaultComposeFileName = "docker-compose.yml"

// DefaultComposeVersion is written as the top-level `version` of the
// combined document.
const DefaultComposeVersion = "3.4"

// TokenSeparator replaces path separators when a relative directory is
// flattened into a token, and joins a token with an original name.
const TokenSeparator = "_"

// ComposeSource is a single compose file found during discovery.
type ComposeSource struct {
	// Path is the path to the compose file as found under the root.
	Path string `json:"path"`

	// Dir is the directory containing the file, relative to the root
	// (e.g., "api" or "backend/db").
	Dir string `json:"dir"`

	// Token is Dir with every path separator replaced by "_". It prefixes
	// every service, volume, and network name taken from this file.
	Token string `json:"token"`
}

// QualifiedName returns the namespaced name for an entry of this source,
// e.g. token "svcA" and name "web" → "svcA_web".
func (s ComposeSource) QualifiedName(name string) string {
	return Qualify(s.Token, name)
}

// Qualify joins a directory token and an original name.
func Qualify(token, name string) string {
	return token + TokenSeparator + name
}

// MountKind classifies a service volume entry for reporting.
type MountKind string

const (
	// MountBind is a host path mounted into the container.
	MountBind MountKind = "bind"

	// MountVolume is a reference to a named volume.
	MountVolume MountKind = "volume"

	// MountUnknown is used when the entry could not be classified.
	MountUnknown MountKind = "unknown"
)

// String returns the string representation of MountKind.
func (k MountKind) String() string {
	return string(k)
}

// MountEntry describes one short-syntax service volume entry as it was
// carried into the combined file.
type MountEntry struct {
	// Service is the namespaced service name (e.g., "svcA_web").
	Service string `json:"service"`

	// Original is the entry as written in the source file.
	Original string `json:"original"`

	// Rewritten is the entry as written to the combined file. Equal to
	// Original when the source was not "./"-relative.
	Rewritten string `json:"rewritten"`

	// Source is the host path or volume name the entry mounts.
	Source string `json:"source,omitempty"`

	// Kind is how Compose interprets the rewritten entry.
	Kind MountKind `json:"kind"`

	// Relocated is true when the source was moved under the token directory.
	Relocated bool `json:"relocated"`
}

// String returns a human-readable representation of the entry.
// Format: "service: original → rewritten"
func (m MountEntry) String() string {
	return fmt.Sprintf("%s: %s → %s", m.Service, m.Original, m.Rewritten)
}

// SourceSummary counts what a single compose file contributed.
type SourceSummary struct {
	ComposeSource

	Services int `json:"services"`
	Volumes  int `json:"volumes"`
	Networks int `json:"networks"`
}

// RunSummary describes a completed aggregation.
type RunSummary struct {
	// Root is the directory that was scanned.
	Root string `json:"root"`

	// Output is the destination file, or "-" for stdout.
	Output string `json:"output"`

	// Sources lists every compose file merged, in visitation order.
	Sources []SourceSummary `json:"sources"`

	// Services, Volumes and Networks are the totals in the combined file.
	Services int `json:"services"`
	Volumes  int `json:"volumes"`
	Networks int `json:"networks"`

	// Mounts lists every short-syntax service volume entry.
	Mounts []MountEntry `json:"mounts"`
}

// Relocated returns the mount entries whose source was rewritten.
func (r *RunSummary) Relocated() []MountEntry {
	var out []MountEntry
	for _, m := range r.Mounts {
		if m.Relocated {
			out = append(out, m)
		}
	}
	return out
}

// Tokens returns the tokens of all merged sources, joined by ", ".
// Returns "-" if nothing was merged.
func (r *RunSummary) Tokens() string {
	if len(r.Sources) == 0 {
		return "-"
	}
	tokens := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		tokens = append(tokens, s.Token)
	}
	return strings.Join(tokens, ", ")
}

// ExitCode defines the process exit codes of the CLI. Each failure kind
// has its own code so scripts can tell a broken input from a broken disk.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitParseError indicates a compose file is not well-formed YAML.
	ExitParseError ExitCode = 2

	// ExitIOError indicates a file could not be read or the output
	// could not be written.
	ExitIOError ExitCode = 3

	// ExitShapeError indicates a compose field has an unexpected type,
	// e.g. `volumes` is a list where a mapping is required.
	ExitShapeError ExitCode = 4

	// ExitCollision indicates two sources produced the same namespaced name.
	ExitCollision ExitCode = 5

	// ExitInvalidConfig indicates invalid flags, environment or config file.
	ExitInvalidConfig ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
