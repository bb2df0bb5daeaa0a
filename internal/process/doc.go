// Package process terminates running application instances by executable
// name, so rebuilds never race a previously built binary holding files open.
package process
