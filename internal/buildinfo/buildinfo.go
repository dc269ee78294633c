// Package buildinfo carries the version stamp injected at build time:
//
//	go build -ldflags "-X lark/internal/buildinfo.Version=v0.3.0 \
//	    -X lark/internal/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X lark/internal/buildinfo.Date=$(date -u +%Y-%m-%d)"
//
// Unstamped builds report "dev".
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the tersest useful identifier: the version when stamped,
// the commit otherwise, "dev" as the fallback. Used for window titles.
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "" && Commit != "unknown":
		return Commit
	default:
		return "dev"
	}
}

// Long returns the full stamp for -version output.
func Long() string {
	return Short() + " (" + Commit + " " + Date + ")"
}
