package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Auth Errors (E100-E199)
	// ============================================

	"E100": {
		Category:   CategoryAuth,
		Message:    "Authentication rejected",
		Detail:     "The backend did not accept the supplied credentials.",
		Suggestion: "Log in again with valid credentials",
	},
	"E101": {
		Category:   CategoryAuth,
		Message:    "Session expired",
		Detail:     "The backend session is no longer valid.",
		Suggestion: "Log in again",
	},
	"E102": {
		Category: CategoryAuth,
		Message:  "Logout failed",
		Detail:   "The backend did not confirm the logout request.",
	},
	"E103": {
		Category: CategoryAuth,
		Message:  "Logout redirect missing",
		Detail:   "The backend answered the logout request with a redirect but sent no X-Location header.",
	},
	"E104": {
		Category: CategoryAuth,
		Message:  "Authentication method probe failed",
		Detail:   "The backend could not be reached to learn which authentication method it requires.",
	},

	// ============================================
	// Target Errors (E200-E299)
	// ============================================

	"E200": {
		Category:   CategoryTarget,
		Message:    "Target JMX authentication required",
		Detail:     "The selected target requires JMX credentials.",
		Suggestion: "Provide JMX credentials for the target and retry",
	},
	"E201": {
		Category:   CategoryTarget,
		Message:    "Target SSL trust failure",
		Detail:     "The backend does not trust the certificate presented by the selected target.",
		Suggestion: "Add the target certificate to the backend trust store",
	},

	// ============================================
	// Channel Errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryChannel,
		Message:  "Notification endpoint lookup failed",
		Detail:   "The notifications URL could not be resolved. The lookup is retried on the next reconnect tick.",
	},
	"E301": {
		Category: CategoryChannel,
		Message:  "WebSocket connection failed",
		Detail:   "The push channel could not be opened. The connection is retried on the next reconnect tick.",
	},
	"E302": {
		Category: CategoryChannel,
		Message:  "Malformed notification frame",
		Detail:   "A frame received on the push channel could not be decoded.",
	},

	// ============================================
	// Application Errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryApplication,
		Message:  "Request failed",
	},
	"E401": {
		Category: CategoryApplication,
		Message:  "Unexpected response",
		Detail:   "The backend response could not be decoded.",
	},

	// ============================================
	// Config Errors (E500-E599)
	// ============================================

	"E500": {
		Category: CategoryConfig,
		Message:  "Configuration load failed",
	},
	"E501": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"E502": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create cryoconsole.json or pass --config",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
