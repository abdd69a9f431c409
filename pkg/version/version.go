// Package version provides version information for btcratios.
package version

// Version is the current version of btcratios.
const Version = "0.3.1"

// AgentString returns the User-Agent sent to upstream price APIs.
// Format: btcratios/v{version}
func AgentString() string {
	return "btcratios/v" + Version
}
