// Package target declares the two build targets of the application (the
// foreground bridge and the headless tracker) and resolves the set of
// heavyweight packages each one must not pull into its bundle.
package target
