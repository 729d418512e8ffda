package domain

import "strings"

// InputType is the detected kind of a lookup query.
type InputType string

const (
	BarcodeInput InputType = "barcode"
	TextInput    InputType = "text"
)

// DetectInputType routes a query to the barcode or free-text path. A query
// whose digits (interior spaces ignored) form a string of length 6-18 is a
// barcode; anything else is free text.
func DetectInputType(input string) InputType {
	code := NormalizeBarcode(input)
	if len(code) < 6 || len(code) > 18 {
		return TextInput
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return TextInput
		}
	}
	return BarcodeInput
}

// NormalizeBarcode strips surrounding and interior whitespace. Scanners and
// manual entry both produce grouped digits like "54 49000 000996".
func NormalizeBarcode(input string) string {
	return strings.ReplaceAll(strings.TrimSpace(input), " ", "")
}

// BarcodeVariants returns the identifiers a provider should try for a
// scanned code, covering the zero-padding mismatches between UPC-A, EAN-13
// and ITF-14. The canonical code always comes first and duplicates are
// dropped.
func BarcodeVariants(code string) []string {
	code = NormalizeBarcode(code)
	variants := []string{code}

	switch len(code) {
	case 12:
		// UPC-A is an EAN-13 with a leading zero.
		variants = append(variants, "0"+code)
	case 13:
		if strings.HasPrefix(code, "0") {
			variants = append(variants, code[1:])
		}
	case 14:
		// ITF-14 wraps an EAN-13 with a packaging indicator digit.
		variants = append(variants, code[1:])
		if strings.HasPrefix(code, "00") {
			variants = append(variants, code[2:])
		}
	case 8:
		// EAN-8 occasionally appears zero-padded to EAN-13 in databases.
		variants = append(variants, "00000"+code)
	}

	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
