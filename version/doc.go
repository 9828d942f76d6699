// Package version reports the recordbind build.
//
// Version, commit and build time are injected with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/recordbind/version.Version=1.2.0" ./cmd/recordbind
//
// Values left empty fall back to the module build info.
package version
