package language

import "strings"

type entry struct {
	code    string   // ISO 639-1, the form the transcriber reports and accepts
	display string   // Human-readable name for tables and notifications
	aliases []string // ISO 639-2 codes and full word forms operators may type
}

// languages covers the codes whisper-family transcribers commonly detect.
// Unlisted codes still pass through Normalize untouched so a new model
// language never breaks configuration.
var languages = []entry{
	{"en", "English", []string{"eng", "english"}},
	{"es", "Spanish", []string{"spa", "spanish"}},
	{"fr", "French", []string{"fra", "fre", "french"}},
	{"de", "German", []string{"deu", "ger", "german"}},
	{"it", "Italian", []string{"ita", "italian"}},
	{"pt", "Portuguese", []string{"por", "portuguese"}},
	{"ja", "Japanese", []string{"jpn", "japanese"}},
	{"ko", "Korean", []string{"kor", "korean"}},
	{"zh", "Chinese", []string{"zho", "chi", "chinese"}},
	{"ru", "Russian", []string{"rus", "russian"}},
	{"ar", "Arabic", []string{"ara", "arabic"}},
	{"hi", "Hindi", []string{"hin", "hindi"}},
	{"nl", "Dutch", []string{"nld", "dut", "dutch"}},
	{"pl", "Polish", []string{"pol", "polish"}},
	{"sv", "Swedish", []string{"swe", "swedish"}},
	{"da", "Danish", []string{"dan", "danish"}},
	{"no", "Norwegian", []string{"nor", "norwegian"}},
	{"fi", "Finnish", []string{"fin", "finnish"}},
}

var index map[string]*entry

func init() {
	index = make(map[string]*entry, len(languages)*3)
	for i := range languages {
		e := &languages[i]
		index[e.code] = e
		for _, alias := range e.aliases {
			index[alias] = e
		}
	}
}

func lookup(value string) *entry {
	return index[strings.ToLower(strings.TrimSpace(value))]
}

// Normalize maps an operator-supplied language value (2- or 3-letter code or
// full word) to the ISO 639-1 code the transcriber expects. Unrecognized
// values pass through unchanged, lowercased, so forcing a language outside
// the known set still reaches the command line.
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if e := lookup(value); e != nil {
		return e.code
	}
	return value
}

// DisplayName renders a detected language code for humans. Unknown codes
// come back uppercased so raw model output stays recognizable; empty input
// yields "Unknown".
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "unknown") {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(code)
}
