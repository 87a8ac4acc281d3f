package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DeductionBucket classifies the absolute posting amount into a size class.
type DeductionBucket string

// Bucket boundaries are right-closed: exactly 30 stays under 30, exactly 50
// stays in the middle class. A zero amount counts as under 30.
const (
	BucketUnder30 DeductionBucket = "under 30"
	Bucket30To50  DeductionBucket = "30 - 50"
	BucketOver50  DeductionBucket = "over 50"
)

// Buckets lists the deduction classes in report order.
var Buckets = [3]DeductionBucket{BucketUnder30, Bucket30To50, BucketOver50}

var (
	bucketBound30 = decimal.NewFromInt(30)
	bucketBound50 = decimal.NewFromInt(50)
)

// GroupKey identifies one aggregation group. CustomerNumber is zero for
// items without an established customer identity.
type GroupKey struct {
	CompanyCode    string
	GLAccount      uint64
	Year           uint16
	Period         uint8
	CustomerNumber uint32
	Currency       string
}

// AggregatedRow is one (group, bucket) cell of the deduction pivot.
type AggregatedRow struct {
	GroupKey
	Bucket          DeductionBucket
	DeductionsCount uint16
	DeductionsTotal decimal.Decimal
}

// BucketOf returns the deduction class for an absolute amount.
func BucketOf(abs decimal.Decimal) DeductionBucket {
	switch {
	case abs.LessThanOrEqual(bucketBound30):
		return BucketUnder30
	case abs.LessThanOrEqual(bucketBound50):
		return Bucket30To50
	default:
		return BucketOver50
	}
}

// Aggregate pivots line items into per-group deduction counts and totals.
// Every group that has at least one contributing item gets all three bucket
// rows, with zero count and total where no item fell in the class. Totals sum
// the signed amounts, so across the three rows of a group they add up to the
// group's net amount. Output order is deterministic.
func Aggregate(items []LineItem) ([]AggregatedRow, error) {
	if len(items) == 0 {
		return nil, ErrEmptyInput
	}

	type cells [3]struct {
		count uint16
		total decimal.Decimal
	}
	groups := make(map[GroupKey]*cells)
	keys := make([]GroupKey, 0)

	for _, item := range items {
		key := GroupKey{
			CompanyCode:    item.CompanyCode,
			GLAccount:      item.GLAccount,
			Year:           item.Year,
			Period:         item.Period,
			CustomerNumber: item.CustomerNumber,
			Currency:       item.Currency,
		}
		if !item.HasCustomer {
			key.CustomerNumber = 0
		}
		grp, ok := groups[key]
		if !ok {
			grp = &cells{}
			groups[key] = grp
			keys = append(keys, key)
		}
		idx := bucketIndex(BucketOf(item.LocalAmount.Abs()))
		grp[idx].count++
		grp[idx].total = grp[idx].total.Add(item.LocalAmount)
	}

	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	rows := make([]AggregatedRow, 0, len(keys)*len(Buckets))
	for _, key := range keys {
		grp := groups[key]
		for idx, bucket := range Buckets {
			rows = append(rows, AggregatedRow{
				GroupKey:        key,
				Bucket:          bucket,
				DeductionsCount: grp[idx].count,
				DeductionsTotal: grp[idx].total,
			})
		}
	}
	return rows, nil
}

func bucketIndex(b DeductionBucket) int {
	for i, bucket := range Buckets {
		if bucket == b {
			return i
		}
	}
	return 0
}

func lessKey(a, b GroupKey) bool {
	if a.CompanyCode != b.CompanyCode {
		return a.CompanyCode < b.CompanyCode
	}
	if a.GLAccount != b.GLAccount {
		return a.GLAccount < b.GLAccount
	}
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	if a.Period != b.Period {
		return a.Period < b.Period
	}
	if a.CustomerNumber != b.CustomerNumber {
		return a.CustomerNumber < b.CustomerNumber
	}
	return a.Currency < b.Currency
}
