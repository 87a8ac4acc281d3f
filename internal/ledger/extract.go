package ledger

import "regexp"

// A customer token is a seven digit run starting with 1 or 4 that is preceded
// by a non-digit and not followed by another digit. Longer digit runs never
// match.
var customerTokenRx = regexp.MustCompile(`\D([14][0-9]{6})(?:\D|$)`)

// Compact concatenates per-country batches into one table and derives the
// customer number for every item. Batch order and the row order within each
// batch are preserved so downstream output stays deterministic.
//
// The customer number comes from the first token match in the item text.
// Items without a match fall back to the offsetting account, except when the
// offsetting account is the cheque clearing account, which carries no
// customer identity. The fallback applies only when both conditions hold;
// TestCompactFallbackSemantics pins this down.
func Compact(batches [][]LineItem) ([]LineItem, error) {
	if len(batches) == 0 {
		return nil, ErrEmptyInput
	}
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	items := make([]LineItem, 0, total)
	for _, b := range batches {
		items = append(items, b...)
	}
	for i := range items {
		if num, ok := extractCustomer(items[i].Text); ok {
			items[i].CustomerNumber = num
			items[i].HasCustomer = true
			continue
		}
		if items[i].OffsettingAccount != ChequeAccount {
			items[i].CustomerNumber = uint32(items[i].OffsettingAccount)
			items[i].HasCustomer = true
		}
	}
	return items, nil
}

func extractCustomer(text string) (uint32, bool) {
	m := customerTokenRx.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	var num uint32
	for _, c := range m[1] {
		num = num*10 + uint32(c-'0')
	}
	return num, true
}
