package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-service/pkg/xerrors"
)

// minorUnitExponent is the number of decimal places of the ledger currency
// (cents). Balances and amounts are stored as int64 minor units; decimals
// only appear at the API boundary.
const minorUnitExponent = 2

// ParseMinorUnits converts a JSON amount into int64 minor units.
//
// The wire value must be a whole number of minor units: "1000" is ten
// currency units, "10.50" is rejected. Parsing goes through decimal rather
// than float so large amounts survive the trip exactly.
func ParseMinorUnits(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a number", xerrors.ErrInvalidRequest, raw)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: amount must be whole minor units, got %s", xerrors.ErrInvalidRequest, d)
	}
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: amount %s out of range", xerrors.ErrInvalidRequest, d)
	}
	return d.IntPart(), nil
}

// FormatMinorUnits renders minor units as a display amount, e.g. 1050 -> "10.50".
func FormatMinorUnits(amount int64) string {
	return decimal.New(amount, -minorUnitExponent).StringFixed(minorUnitExponent)
}
