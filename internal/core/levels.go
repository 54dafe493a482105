package core

import "strings"

// DetailLevel is the closed set of rewrite styles a caller can request.
type DetailLevel int

const (
	// LevelGeneric is the fallback for any level name we do not recognize.
	LevelGeneric DetailLevel = iota
	LevelELI5
	LevelELI10
	LevelPlainEnglish
	LevelExecutiveSummary
	LevelLegalSummary
	LevelMedicalExplanation
	LevelADHDFriendly
	LevelStudyGuide
)

// GenericInstruction is applied when the requested level is not recognized.
const GenericInstruction = "Make it clear and simple. Use simple words and examples. Keep it brief and clear."

// Levels lists the recognized levels in display order (LevelGeneric excluded).
var Levels = []DetailLevel{
	LevelELI5,
	LevelELI10,
	LevelPlainEnglish,
	LevelExecutiveSummary,
	LevelLegalSummary,
	LevelMedicalExplanation,
	LevelADHDFriendly,
	LevelStudyGuide,
}

// String returns the canonical display name.
func (l DetailLevel) String() string {
	switch l {
	case LevelELI5:
		return "ELI5"
	case LevelELI10:
		return "ELI10"
	case LevelPlainEnglish:
		return "Plain English"
	case LevelExecutiveSummary:
		return "Executive summary"
	case LevelLegalSummary:
		return "Legal summary"
	case LevelMedicalExplanation:
		return "Medical explanation"
	case LevelADHDFriendly:
		return "ADHD-friendly"
	case LevelStudyGuide:
		return "Study guide"
	default:
		return "Generic"
	}
}

// ID returns a stable slug for the level.
func (l DetailLevel) ID() string {
	switch l {
	case LevelELI5:
		return "eli5"
	case LevelELI10:
		return "eli10"
	case LevelPlainEnglish:
		return "plain-english"
	case LevelExecutiveSummary:
		return "executive-summary"
	case LevelLegalSummary:
		return "legal-summary"
	case LevelMedicalExplanation:
		return "medical-explanation"
	case LevelADHDFriendly:
		return "adhd-friendly"
	case LevelStudyGuide:
		return "study-guide"
	default:
		return "generic"
	}
}

// Instruction returns the rewrite directive that is embedded in the system prompt.
func (l DetailLevel) Instruction() string {
	switch l {
	case LevelELI5:
		return "Explain it like you are talking to a 5-year-old: very short sentences, everyday words and one simple example."
	case LevelELI10:
		return "Explain it like you are talking to a 10-year-old: simple words, short paragraphs and a relatable example."
	case LevelPlainEnglish:
		return "Rewrite it in plain language for an adult reader. Remove jargon but keep every important point."
	case LevelExecutiveSummary:
		return "Summarize it as 3 to 5 concise bullet points for a busy executive, leading with the key takeaway or decision."
	case LevelLegalSummary:
		return "Explain what this legal text means in plain language: who is bound, what they must or must not do, deadlines and consequences. Do not give legal advice."
	case LevelMedicalExplanation:
		return "Explain the medical content in calm, plain language a patient can follow and define every medical term. Do not diagnose or recommend treatment."
	case LevelADHDFriendly:
		return "Rewrite it for a reader with ADHD: a one-line summary first, then short chunks with one idea per line and the key words in bold."
	case LevelStudyGuide:
		return "Turn it into a study guide: key concepts with short definitions, a brief summary and 3 review questions."
	default:
		return GenericInstruction
	}
}

// Aliases returns the alternate names accepted for the level.
func (l DetailLevel) Aliases() []string {
	switch l {
	case LevelELI5:
		return []string{"Explain like I'm 5", "Explain like I’m 5"}
	case LevelELI10:
		return []string{"Explain like I'm 10", "Explain like I’m 10"}
	case LevelADHDFriendly:
		return []string{"ADHD friendly"}
	default:
		return nil
	}
}

var levelIndex = buildLevelIndex()

func buildLevelIndex() map[string]DetailLevel {
	index := make(map[string]DetailLevel)
	for _, level := range Levels {
		index[normalizeLevelName(level.String())] = level
		index[normalizeLevelName(level.ID())] = level
		for _, alias := range level.Aliases() {
			index[normalizeLevelName(alias)] = level
		}
	}
	return index
}

// ParseDetailLevel resolves a caller-supplied level name. Unknown names map to
// LevelGeneric and ok is false.
func ParseDetailLevel(name string) (level DetailLevel, ok bool) {
	level, ok = levelIndex[normalizeLevelName(name)]
	if !ok {
		return LevelGeneric, false
	}
	return level, true
}

func normalizeLevelName(name string) string {
	name = strings.ReplaceAll(name, "’", "'")
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
