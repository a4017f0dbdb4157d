// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Overridden at build time via
// -ldflags "-X github.com/papercomputeco/qfagent/pkg/utils.Version=v0.3.0".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// UserAgent is the User-Agent header sent with every platform request.
func UserAgent() string {
	return "qfagent/" + Version
}
