// Package version carries the build version, injected at release time via
// -ldflags "-X yt-tutor-console/internal/version.Value=v1.2.3".
package version

var Value = "dev"
