package kaikki

// entry mirrors the fields of one Kaikki JSONL line that the lexicon uses.
type entry struct {
	Word   string  `json:"word"`
	POS    string  `json:"pos"`
	Senses []sense `json:"senses"`
}

// sense mirrors one sense of a Kaikki entry. Only the first gloss is kept.
type sense struct {
	Glosses []string `json:"glosses"`
}

// Stats reports what a parse run saw.
type Stats struct {
	TotalLines     int
	MalformedLines int
	Words          int
	Senses         int
}
