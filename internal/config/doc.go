// Package config loads, validates and persists the pipeline settings YAML.
//
// Settings cover paths only (application source root, output tree, binary
// cache) plus the interpreter used to drive the bundling toolchain. The
// application's own version is deliberately absent: it is resolved at run
// time from the application's config module, never duplicated here.
package config
