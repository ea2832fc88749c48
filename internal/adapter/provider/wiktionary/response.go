package wiktionary

// apiEntry is one usage block of the REST definition response. The response
// body maps a language code to a list of these.
type apiEntry struct {
	PartOfSpeech string          `json:"partOfSpeech"`
	Language     string          `json:"language"`
	Definitions  []apiDefinition `json:"definitions"`
}

// apiDefinition is a single sense. Definition carries HTML markup.
type apiDefinition struct {
	Definition string `json:"definition"`
}
