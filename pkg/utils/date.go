package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var wib = time.FixedZone("WIB", 7*60*60)

func ConvertDateTimeToHumanReadableFormat(datetime int64) string {
	return time.Unix(datetime, 0).In(wib).Format("02 January 2006, 15:04 WIB")
}

// ConvertGatewayTimeToUnixTimestamp parses the "2006-01-02 15:04:05" WIB
// timestamps Midtrans sends in settlement_time and transaction_time.
func ConvertGatewayTimeToUnixTimestamp(wibTime string) (int64, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", wibTime, wib)
	if err != nil {
		return 0, fmt.Errorf("error parsing time: %w", err)
	}

	return t.Unix(), nil
}

// FormatRupiah renders an amount as "Rp100.000".
func FormatRupiah(amount decimal.Decimal) string {
	digits := amount.Round(0).Abs().String()

	var out []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}

	if amount.IsNegative() {
		return "-Rp" + string(out)
	}
	return "Rp" + string(out)
}
