package errors

// Registered error codes.
const (
	ECodePathResolution        = "E100"
	ECodeBackendMutation       = "E101"
	ECodeRegistryInconsistency = "E102"
	ECodeApplyInFlight         = "E103"
	ECodeNotMounted            = "E104"
	ECodeNotConverged          = "E105"

	ECodeTreeParse         = "E110"
	ECodeUnsupportedFormat = "E111"
	ECodeRootCount         = "E112"
	ECodeFileNotFound      = "E113"
	ECodeJSONPatch         = "E114"

	ECodeConfigInvalid = "E120"
	ECodeConfigParse   = "E121"

	ECodeCodecDecode = "E130"
	ECodeRemote      = "E131"

	ECodeWatchFailed  = "E140"
	ECodeMirrorFailed = "E141"

	ECodeBadArgs   = "E150"
	ECodeBadFilter = "E151"
	ECodeInternal  = "E199"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Apply Errors (E100-E109)
	// ============================================

	ECodePathResolution: {
		Category: CategoryApply,
		Message:  "Patch path does not resolve",
		Detail:   "A patch addressed a node that is not in the live tree. The live tree and the patch list have desynchronized.",
		DocURL:   "https://vtree.dev/docs/errors/E100",
	},
	ECodeBackendMutation: {
		Category: CategoryApply,
		Message:  "Backend mutation failed",
		Detail:   "The live backend refused or failed an operation. Patches before the failing one were already applied.",
		DocURL:   "https://vtree.dev/docs/errors/E101",
	},
	ECodeRegistryInconsistency: {
		Category: CategoryRegistry,
		Message:  "Listener registry inconsistency",
		Detail:   "A listener handle was registered twice or released without being registered. Strict registry mode turns this into an error.",
		DocURL:   "https://vtree.dev/docs/errors/E102",
	},
	ECodeApplyInFlight: {
		Category: CategoryApply,
		Message:  "Apply already in flight",
		Detail:   "An update started while another update was still applying to the same live tree.",
		DocURL:   "https://vtree.dev/docs/errors/E103",
	},
	ECodeNotMounted: {
		Category: CategoryApply,
		Message:  "Tree not mounted",
		Detail:   "The updater has no live tree yet. Mount a tree before sending updates.",
		DocURL:   "https://vtree.dev/docs/errors/E104",
	},
	ECodeNotConverged: {
		Category: CategoryApply,
		Message:  "Applied tree differs from target",
		Detail:   "Applying the patch list to the old tree did not produce the new tree.",
		DocURL:   "https://vtree.dev/docs/errors/E105",
	},

	// ============================================
	// Parse Errors (E110-E119)
	// ============================================

	ECodeTreeParse: {
		Category: CategoryParse,
		Message:  "Tree file could not be parsed",
		Detail:   "The tree file is not valid for its format.",
		DocURL:   "https://vtree.dev/docs/errors/E110",
	},
	ECodeUnsupportedFormat: {
		Category: CategoryParse,
		Message:  "Unsupported tree format",
		Detail:   "Tree files must end in .html, .htm, .json, .yaml or .yml.",
		DocURL:   "https://vtree.dev/docs/errors/E111",
	},
	ECodeRootCount: {
		Category: CategoryParse,
		Message:  "HTML fragment must have exactly one root element",
		Detail:   "A tree has a single root. Wrap sibling elements in a container element.",
		DocURL:   "https://vtree.dev/docs/errors/E112",
	},
	ECodeFileNotFound: {
		Category: CategoryParse,
		Message:  "File not found",
		Detail:   "The file does not exist or cannot be read.",
		DocURL:   "https://vtree.dev/docs/errors/E113",
	},
	ECodeJSONPatch: {
		Category: CategoryParse,
		Message:  "JSON Patch translation failed",
		Detail:   "The patch list could not be expressed as an RFC 6902 document against the old tree.",
		DocURL:   "https://vtree.dev/docs/errors/E114",
	},

	// ============================================
	// Config Errors (E120-E129)
	// ============================================

	ECodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "vtree.json holds a value that is out of range or unknown.",
		DocURL:   "https://vtree.dev/docs/errors/E120",
	},
	ECodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Configuration could not be parsed",
		Detail:   "vtree.json is not valid JSON.",
		DocURL:   "https://vtree.dev/docs/errors/E121",
	},

	// ============================================
	// Protocol Errors (E130-E139)
	// ============================================

	ECodeCodecDecode: {
		Category: CategoryProtocol,
		Message:  "Frame could not be decoded",
		Detail:   "A wire frame was malformed or exceeded the decoding limits.",
		DocURL:   "https://vtree.dev/docs/errors/E130",
	},
	ECodeRemote: {
		Category: CategoryProtocol,
		Message:  "Peer reported an error",
		Detail:   "The other side of the connection sent an error frame.",
		DocURL:   "https://vtree.dev/docs/errors/E131",
	},

	// ============================================
	// Watch Errors (E140-E149)
	// ============================================

	ECodeWatchFailed: {
		Category: CategoryWatch,
		Message:  "Watch server failed",
		Detail:   "The watch server stopped with an error.",
		DocURL:   "https://vtree.dev/docs/errors/E140",
	},
	ECodeMirrorFailed: {
		Category: CategoryWatch,
		Message:  "Mirror connection failed",
		Detail:   "Unable to connect to the watch server or the connection broke.",
		DocURL:   "https://vtree.dev/docs/errors/E141",
	},

	// ============================================
	// CLI Errors (E150-E199)
	// ============================================

	ECodeBadArgs: {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command was called with the wrong number or kind of arguments.",
		DocURL:   "https://vtree.dev/docs/errors/E150",
	},
	ECodeBadFilter: {
		Category: CategoryCLI,
		Message:  "Invalid patch filter",
		Detail:   "The --where expression did not compile or does not return a boolean.",
		DocURL:   "https://vtree.dev/docs/errors/E151",
	},
	ECodeInternal: {
		Category: CategoryCLI,
		Message:  "Internal error",
		Detail:   "An unexpected error occurred.",
		DocURL:   "https://vtree.dev/docs/errors/E199",
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

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
