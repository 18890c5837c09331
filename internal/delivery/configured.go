package delivery

import "strings"

// Placeholder values shipped as configuration defaults.
const (
	PlaceholderWeb3FormsKey     = "your_web3forms_key"
	PlaceholderEmailJSService   = "your_service_id"
	PlaceholderEmailJSTemplate  = "your_template_id"
	PlaceholderEmailJSPublicKey = "your_public_key"
)

// IsConfigured reports whether value is a real credential: not blank and not
// the shipped placeholder.
func IsConfigured(value, placeholder string) bool {
	v := strings.TrimSpace(value)
	return v != "" && v != placeholder
}
