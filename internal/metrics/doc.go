// Package metrics defines the typed object model built from registry
// documents: one Go type per metric kind, the ping type, and the merged
// object tree handed to code generators.
package metrics
