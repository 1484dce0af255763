// Package hooks provides scope-aware timing helpers for components: ticking
// intervals, one-shot timeouts, and debounced triggers. Every helper is tied
// to the scope that created it and stops when the scope is disposed, so
// components never leak timers.
package hooks
