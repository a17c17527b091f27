package errors

// Error code constants organized by kind
// E001-E099: Query syntax errors
// E100-E199: EDM XML errors
// E200-E299: IO errors
// E300-E399: Configuration errors

const (
	// Query syntax errors (E001-E099)
	ErrEmptyDocument         = "E001"
	ErrWhitespaceInRoot      = "E002"
	ErrMissingOptionName     = "E003"
	ErrMissingEquals         = "E004"
	ErrUnterminatedString    = "E005"
	ErrUnbalancedParens      = "E006"
	ErrUnknownSystemOption   = "E007"
	ErrDuplicateSystemOption = "E008"
	ErrInvalidOptionName     = "E009"

	// EDM XML errors (E100-E199)
	ErrMalformedXML       = "E100"
	ErrMissingRoot        = "E101"
	ErrMissingDataService = "E102"

	// IO errors (E200-E299)
	ErrFileNotFound   = "E200"
	ErrFileUnreadable = "E201"

	// Configuration errors (E300-E399)
	ErrInvalidMapEntry = "E300"
	ErrInvalidConfig   = "E301"
)

// codeDescriptions maps error codes to short descriptions
var codeDescriptions = map[string]string{
	ErrEmptyDocument:         "Query document has no service root",
	ErrWhitespaceInRoot:      "Service root contains whitespace",
	ErrMissingOptionName:     "Query option has no name",
	ErrMissingEquals:         "Query option is missing '='",
	ErrUnterminatedString:    "Unterminated string literal",
	ErrUnbalancedParens:      "Unbalanced parentheses",
	ErrUnknownSystemOption:   "Unknown system query option",
	ErrDuplicateSystemOption: "Duplicate system query option",
	ErrInvalidOptionName:     "Invalid character in option name",

	ErrMalformedXML:       "Malformed metadata XML",
	ErrMissingRoot:        "Metadata document has no root element",
	ErrMissingDataService: "Metadata document has no DataServices element",

	ErrFileNotFound:   "Metadata file not found",
	ErrFileUnreadable: "Metadata file could not be read",

	ErrInvalidMapEntry: "Invalid metadata map entry",
	ErrInvalidConfig:   "Invalid configuration",
}

// Describe returns the short description of an error code
func Describe(code string) string {
	if desc, ok := codeDescriptions[code]; ok {
		return desc
	}
	return "Unknown error"
}
