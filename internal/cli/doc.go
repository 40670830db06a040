// Package cli parses command-line arguments for nodegrid. Flags are
// layered over the .env file and the process environment, the merged
// config.Config is validated, and failures become an ExitError carrying
// the process exit code.
package cli
