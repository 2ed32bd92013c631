package llm

import (
	"regexp"
	"strings"

	"MarketBridge/internal/domain"
)

const (
	minDetailSectionLen = 18
	minSellingPointLen  = 6
	maxDetailSections   = 12
	maxSellingPoints    = 10
)

// evidenceWords gate the rating/delivery vocabulary: only when the facts
// themselves mention ratings may the copy keep such sentences.
var evidenceWords = []string{"rating", "review", "별점", "평점"}

// blockWords cover rating/delivery/satisfaction/age claims that must not
// appear without evidence.
var blockWords = []string{"평점", "별점", "배송", "만족도", "연령", "세 이상"}

var (
	spaceBeforeDotExpr = regexp.MustCompile(`\s+\.`)
	multiSpaceExpr     = regexp.MustCompile(`\s+`)
)

// postprocess sanitizes service output: whitespace normalization, length
// floors and caps on lists, unevidenced-claim stripping, and the Hangul
// gate that blanks untranslated primary fields.
func postprocess(out domain.Enrichment, factsBlob string) domain.Enrichment {
	out.SummaryKO = cleanText(out.SummaryKO)
	out.ProductJudgementKO = cleanText(out.ProductJudgementKO)
	out.TranslatedDescriptionKO = cleanText(out.TranslatedDescriptionKO)
	out.TranslatedSnippetKO = cleanText(out.TranslatedSnippetKO)

	out.SellingPointsKO = cleanList(out.SellingPointsKO)
	out.DetailOutlineKO = cleanList(out.DetailOutlineKO)
	out.DetailSectionsKO = cleanList(out.DetailSectionsKO)
	out.TranslatedKeyFeaturesKO = cleanList(out.TranslatedKeyFeaturesKO)

	out.DetailSectionsKO = capList(filterMinLen(out.DetailSectionsKO, minDetailSectionLen), maxDetailSections)
	out.SellingPointsKO = capList(filterMinLen(out.SellingPointsKO, minSellingPointLen), maxSellingPoints)

	if !containsAnyFold(factsBlob, evidenceWords) {
		out.SummaryKO = dropSentencesWithWords(out.SummaryKO, blockWords)
		out.ProductJudgementKO = dropSentencesWithWords(out.ProductJudgementKO, blockWords)
		out.TranslatedDescriptionKO = dropSentencesWithWords(out.TranslatedDescriptionKO, blockWords)
		out.TranslatedSnippetKO = dropSentencesWithWords(out.TranslatedSnippetKO, blockWords)

		out.SellingPointsKO = dropEntriesWithWords(out.SellingPointsKO, blockWords)
		out.DetailSectionsKO = dropEntriesWithWords(out.DetailSectionsKO, blockWords)
		out.TranslatedKeyFeaturesKO = dropEntriesWithWords(out.TranslatedKeyFeaturesKO, blockWords)
	}

	// untranslated leakage guard on the customer-facing primary fields
	if out.SummaryKO != "" && !ContainsHangul(out.SummaryKO) {
		out.SummaryKO = ""
	}
	if out.ProductJudgementKO != "" && !ContainsHangul(out.ProductJudgementKO) {
		out.ProductJudgementKO = ""
	}
	if out.TranslatedDescriptionKO != "" && !ContainsHangul(out.TranslatedDescriptionKO) {
		out.TranslatedDescriptionKO = ""
	}

	return out
}

func cleanText(s string) string {
	t := strings.ReplaceAll(s, "|", " ")
	t = spaceBeforeDotExpr.ReplaceAllString(t, ".")
	t = multiSpaceExpr.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if cleaned := cleanText(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func filterMinLen(values []string, min int) []string {
	var out []string
	for _, v := range values {
		if len([]rune(v)) >= min {
			out = append(out, v)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// dropSentencesWithWords strips only the offending sentences, keeping the
// rest of the field intact.
func dropSentencesWithWords(text string, words []string) string {
	if text == "" {
		return text
	}
	var kept []string
	for _, sentence := range splitSentences(text) {
		if containsAny(sentence, words) {
			continue
		}
		kept = append(kept, sentence)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

func dropEntriesWithWords(values []string, words []string) []string {
	var out []string
	for _, v := range values {
		if containsAny(v, words) {
			continue
		}
		out = append(out, v)
	}
	if out == nil {
		return []string{}
	}
	return out
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func containsAnyFold(text string, words []string) bool {
	lowered := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

// ContainsHangul reports whether any Hangul syllable appears in the text.
func ContainsHangul(text string) bool {
	for _, r := range text {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return true
		}
	}
	return false
}
