// Package appinfo resolves identity metadata of the packaged application.
//
// The release version is obtained by evaluating the application's own
// configuration module rather than from a version file maintained in the
// packaging layer, so artifact names and installer metadata can never drift
// from what the application reports about itself.
package appinfo
