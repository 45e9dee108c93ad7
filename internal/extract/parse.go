package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lenslingua/internal/model"
)

// extractJSONPayload strips code fences and keeps the text between the first
// '{' and the last '}'. It returns false when there is no such span.
func extractJSONPayload(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return trimmed[start : end+1], true
}

// ParseResponse turns raw model output into an Extraction. Any deviation from
// the expected shape yields a *MalformedResponseError.
func ParseResponse(raw string) (model.Extraction, error) {
	payload, ok := extractJSONPayload(raw)
	if !ok {
		return model.Extraction{}, malformed(raw, "no JSON object found", nil)
	}

	var envelope struct {
		Items *[]json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return model.Extraction{}, malformed(raw, "invalid JSON", err)
	}
	if envelope.Items == nil {
		return model.Extraction{}, malformed(raw, `missing "items" array`, nil)
	}

	out := model.Extraction{Items: make([]model.ExtractedItem, 0, len(*envelope.Items))}
	for i, rawItem := range *envelope.Items {
		item, err := parseItem(rawItem)
		if err != nil {
			return model.Extraction{}, malformed(raw, fmt.Sprintf("item %d", i), err)
		}
		if isBlank(item) {
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func parseItem(raw json.RawMessage) (model.ExtractedItem, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return model.ExtractedItem{}, errors.New("not an object")
	}

	var item model.ExtractedItem
	var err error
	if item.OriginalText, err = stringField(fields, "originalText"); err != nil {
		return item, err
	}
	if item.TranslatedText, err = stringField(fields, "translatedText"); err != nil {
		return item, err
	}
	if item.Context, err = stringField(fields, "context"); err != nil {
		return item, err
	}
	if item.Allergens, err = allergensField(fields); err != nil {
		return item, err
	}
	return item, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s is not a string", name)
	}
	return strings.TrimSpace(s), nil
}

// allergensField accepts a string or an array of strings.
func allergensField(fields map[string]json.RawMessage) (string, error) {
	raw, ok := fields["allergens"]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", errors.New("allergens is neither a string nor a list of strings")
	}
	kept := list[:0]
	for _, a := range list {
		if a = strings.TrimSpace(a); a != "" {
			kept = append(kept, a)
		}
	}
	return strings.Join(kept, ", "), nil
}

func isBlank(item model.ExtractedItem) bool {
	return item.OriginalText == "" && item.TranslatedText == "" && item.Context == "" && item.Allergens == ""
}
