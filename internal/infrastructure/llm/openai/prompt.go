package openai

import (
	"fmt"
	"sort"
	"strings"
)

const processingSystemPrompt = `You are a food science assistant. You classify how industrially processed a food product is, following the spirit of the NOVA classification. Score 0 means a whole unprocessed food, 10 means heavily ultra-processed. Be conservative when the ingredient list is short or ambiguous.`

func processingUserPrompt(ingredientsText, productName, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", valueOrUnknown(productName))
	fmt.Fprintf(&b, "Ingredients: %s\n", valueOrUnknown(ingredientsText))
	fmt.Fprintf(&b, "Answer the explanation in language %q.\n", defaultLanguage(language))
	b.WriteString("Classify every listed ingredient into exactly one of the three category buckets.")
	return b.String()
}

const glycemicSystemPrompt = `You are a nutrition assistant estimating the glycemic impact of a food product. Estimate the glycemic index (0-100) and the glycemic load per typical serving (0-40) from the ingredient list and the per-100g nutrition values. When data is thin, prefer mid-range estimates and say so in the explanation.`

func glycemicUserPrompt(ingredientsText, productName string, nutriments map[string]float64, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", valueOrUnknown(productName))
	fmt.Fprintf(&b, "Ingredients: %s\n", valueOrUnknown(ingredientsText))
	if len(nutriments) > 0 {
		b.WriteString("Nutrition per 100g:\n")
		keys := make([]string, 0, len(nutriments))
		for k := range nutriments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %.2f\n", k, nutriments[k])
		}
	}
	fmt.Fprintf(&b, "Answer the explanation and impact description in language %q.", defaultLanguage(language))
	return b.String()
}

const expansionSystemPrompt = `You expand a free-text food search query into alternate search keywords. Return 3 to 5 short keyword phrases a product database would match, the most likely food category, and the detected language of the query.`

func expansionUserPrompt(query string) string {
	return fmt.Sprintf("Query: %s", query)
}

const genericSystemPrompt = `You describe a typical generic version of a food product that could not be found in any database. Invent nothing brand-specific. Provide a plain name, category, one-sentence description, a typical ingredient list and typical nutrition values per 100g. Use 0 for nutrition values you cannot reasonably estimate.`

func genericUserPrompt(query string) string {
	return fmt.Sprintf("Product searched for: %s", query)
}

const ingredientsSystemPrompt = `You recall the typical ingredient list of a food product by name. Return a comma separated ingredient list, or an empty string when you do not know the product well enough to answer responsibly.`

func ingredientsUserPrompt(productName string) string {
	return fmt.Sprintf("Product: %s", productName)
}

func valueOrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unknown)"
	}
	return s
}

func defaultLanguage(language string) string {
	if language == "" {
		return "en"
	}
	return language
}
