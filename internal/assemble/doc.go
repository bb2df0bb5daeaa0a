// Package assemble builds one directory tree per target by driving the
// Python bundler: entry point, hidden imports, resources and the resolved
// exclusion set become a single bundler invocation. A conflict between a
// target's required imports and its exclusions aborts before the bundler runs.
package assemble
