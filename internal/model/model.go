// Package model holds the domain types shared by the extraction client, the
// history store and the front-ends.
package model

import "strings"

// Kind is the capture modality a result came from.
type Kind string

const (
	KindScan  Kind = "scan"
	KindAudio Kind = "audio"
)

func (k Kind) Valid() bool {
	return k == KindScan || k == KindAudio
}

// ExtractedItem is one transcribed and translated fragment. Allergens is empty
// when the model found none.
type ExtractedItem struct {
	OriginalText   string `json:"originalText" jsonschema:"description=Text exactly as it appears in the source"`
	TranslatedText string `json:"translatedText" jsonschema:"description=Translation into the target language"`
	Context        string `json:"context" jsonschema:"description=Short cultural or culinary explanation in the target language"`
	Allergens      string `json:"allergens,omitempty" jsonschema:"description=Comma-separated likely allergens or empty"`
}

// Extraction is the structured result of one extraction call.
type Extraction struct {
	Items []ExtractedItem `json:"items"`
}

// NormalizeEmail returns the canonical ownership key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
