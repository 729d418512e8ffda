package providers

import "strings"

// Canonical per-100g nutrient keys shared by every adapter. Provider
// payloads use their own taxonomies; normalizeNutrients maps what it
// recognizes and keeps unknown keys as-is, so sparse maps stay sparse.
const (
	KeyEnergyKcal   = "energy-kcal_100g"
	KeyProteins     = "proteins_100g"
	KeyCarbohydrate = "carbohydrates_100g"
	KeySugars       = "sugars_100g"
	KeyFat          = "fat_100g"
	KeySaturatedFat = "saturated-fat_100g"
	KeyFiber        = "fiber_100g"
	KeySalt         = "salt_100g"
	KeySodium       = "sodium_100g"
)

// SodiumToSaltFactor converts grams of sodium to grams of salt. The
// upstream per-provider mappings disagreed (2.5 in one module, 0.00254 in
// another, the latter apparently a mg-based copy); the g-based factor is
// used everywhere here and the divergence is documented rather than hidden.
const SodiumToSaltFactor = 2.5

var nutrientAliases = map[string]string{
	"energy_kcal":       KeyEnergyKcal,
	"energy-kcal":       KeyEnergyKcal,
	"energy_kcal_100g":  KeyEnergyKcal,
	"calories":          KeyEnergyKcal,
	"kcal":              KeyEnergyKcal,
	"protein":           KeyProteins,
	"proteins":          KeyProteins,
	"protein_100g":      KeyProteins,
	"carbohydrate":      KeyCarbohydrate,
	"carbohydrates":     KeyCarbohydrate,
	"carbs":             KeyCarbohydrate,
	"sugar":             KeySugars,
	"sugars":            KeySugars,
	"total_fat":         KeyFat,
	"fat":               KeyFat,
	"saturated_fat":     KeySaturatedFat,
	"saturated-fat":     KeySaturatedFat,
	"fibre":             KeyFiber,
	"fiber":             KeyFiber,
	"dietary_fiber":     KeyFiber,
	"salt":              KeySalt,
	"sodium":            KeySodium,
	"sodium_100g":       KeySodium,
	"natrium":           KeySodium,
	"eiwit":             KeyProteins,
	"koolhydraten":      KeyCarbohydrate,
	"suikers":           KeySugars,
	"vet":               KeyFat,
	"verzadigd_vet":     KeySaturatedFat,
	"voedingsvezel":     KeyFiber,
	"energie_kcal":      KeyEnergyKcal,
	"glucides":          KeyCarbohydrate,
	"proteines":         KeyProteins,
	"lipides":           KeyFat,
	"fibres":            KeyFiber,
	"sucres":            KeySugars,
	"energie_kcal_100g": KeyEnergyKcal,
}

// normalizeNutrients maps provider nutrient keys onto the canonical
// taxonomy and derives salt from sodium when only sodium is present.
func normalizeNutrients(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}

	out := make(map[string]float64, len(raw))
	for key, value := range raw {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if canonical, ok := nutrientAliases[normalized]; ok {
			out[canonical] = value
			continue
		}
		out[normalized] = value
	}

	if _, ok := out[KeySalt]; !ok {
		if sodium, ok := out[KeySodium]; ok {
			out[KeySalt] = sodium * SodiumToSaltFactor
		}
	}
	return out
}
