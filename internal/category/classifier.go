// Package category buckets tickets into reporting folders from their issue
// text alone.
package category

import "strings"

// Category labels produced by Classify.
const (
	AccountAuthentication = "Account / Authentication"
	HardwareSupport       = "Hardware Support"
	NetworkSupport        = "Network Support"
	SoftwareSupport       = "Software Support"
	SecurityIncident      = "Security Incident"
	GeneralSupport        = "General Support"
)

type rule struct {
	category string
	keywords []string
}

// Rule order is part of the contract: the first matching rule wins, so an
// issue mentioning both "password" and "laptop" lands in
// Account / Authentication. Reordering changes user-visible results.
var rules = []rule{
	{AccountAuthentication, []string{"password", "account", "login", "authentication", "mfa", "lockout"}},
	{HardwareSupport, []string{"laptop", "hardware", "bsod", "fan", "usb", "monitor"}},
	{NetworkSupport, []string{"network", "wifi", "ethernet", "internet", "connection"}},
	{SoftwareSupport, []string{"software", "windows", "browser", "outlook", "application"}},
	{SecurityIncident, []string{"stolen", "security", "burglary", "remote wipe"}},
}

// Classify maps issue text to a category label. Matching is case-insensitive
// substring search; unmatched text falls back to General Support. The
// function is pure: same input, same output.
func Classify(issue string) string {
	lowered := strings.ToLower(issue)
	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lowered, keyword) {
				return r.category
			}
		}
	}
	return GeneralSupport
}
