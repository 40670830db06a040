// Package config holds the runtime configuration of the nodegrid binary.
//
// Values are layered from lowest to highest precedence: built-in defaults,
// an optional .env file, process environment variables and finally the
// command-line flags applied by the cli package. Validate checks the merged
// result with struct tags.
package config
