// Package version reports which build of seqkit is running.
//
// The version comes from -ldflags when set:
//
//	go build -ldflags "-X github.com/kbukum/seqkit/version.Version=1.4.0"
//
// and otherwise from the module build information, which covers both a
// seqkit binary and a program that depends on seqkit as a library.
package version
