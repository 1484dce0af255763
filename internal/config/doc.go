// Package config loads the vstore.toml configuration describing a storage
// backing: which medium to use, where it lives, and how values are encoded.
// The vstore CLI and any tooling that opens backings from a file share it.
package config
