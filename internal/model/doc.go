// Package model defines the domain types and value objects for the
// compose-combine CLI.
//
// This package contains pure data structures with no external dependencies:
// discovered compose sources, the per-run summary, and mount rewrite records.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
