package core

// TargetLanguages are the suggested output languages offered to pickers. Any
// non-empty language name is accepted.
var TargetLanguages = []string{
	"English", "Spanish", "Korean", "French", "Chinese", "German", "Hindi",
	"Arabic", "Portuguese", "Japanese", "Russian", "Turkish", "Italian",
	"Vietnamese", "Tagalog", "Urdu",
}

// DefaultTargetLanguage is preselected by pickers and the CLI.
const DefaultTargetLanguage = "English"
