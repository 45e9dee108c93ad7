package extract

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a travel interpreter helping a visitor read menus, signs and overheard speech.
Reply with a single JSON object and nothing else, shaped exactly like:
{"items":[{"originalText":"...","translatedText":"...","context":"...","allergens":"..."}]}
Rules:
- One item per dish, sign line or spoken phrase, in source order.
- originalText is copied exactly as written or spoken, in the source language and script.
- translatedText and context are written in the target language.
- context is one or two sentences of cultural or culinary background; use "" when there is nothing useful to add.
- allergens lists likely allergens (for example gluten, nuts, shellfish, dairy, egg, soy) separated by commas, or "" when none apply or the item is not food.
- If nothing readable or audible is present, return {"items":[]}.`

func imagePrompt(targetLanguage string) string {
	return fmt.Sprintf("Transcribe and translate every piece of text visible in this image into %s.", targetLanguage)
}

func audioPrompt(targetLanguage, format string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcribe and translate everything said in this audio recording into %s.", targetLanguage)
	if format != "" {
		fmt.Fprintf(&b, " The recording is in %s format.", format)
	}
	return b.String()
}
