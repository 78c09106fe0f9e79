package seriesdb

import (
	"fmt"
	"strconv"

	"github.com/etnz/seriesdb/date"
)

// Field is an optional numeric observation. The zero value is "absent",
// which is how a missing cell serializes (an empty string, never 0).
type Field struct {
	Value float64
	Valid bool
}

// F returns a present Field holding v.
func F(v float64) Field { return Field{Value: v, Valid: true} }

// Positive reports whether the field is present with a strictly positive value.
func (f Field) Positive() bool { return f.Valid && f.Value > 0 }

// String serializes the field, an absent field as the empty string.
func (f Field) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

// parseField parses a serialized field, the empty string meaning absent.
func parseField(s string) (Field, error) {
	if s == "" {
		return Field{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Field{}, fmt.Errorf("invalid numeric field %q: %w", s, err)
	}
	return F(v), nil
}

// Canonical numeric field names, in their serialization order per kind.
const (
	FieldOpen          = "open"
	FieldHigh          = "high"
	FieldLow           = "low"
	FieldClose         = "close"
	FieldVolume        = "volume"
	FieldTrailingPE    = "trailingPE"
	FieldPriceToBook   = "priceToBook"
	FieldDividendYield = "dividendYield"
	FieldToUSD         = "toUSD"
	FieldToKRW         = "toKRW"
)

// Row is one dated observation of a series. The shape is fixed: every
// canonical field has a slot, and the schema decides which slots are
// serialized. Metadata (symbol, currency, quote type) is constant across a
// series but stored per row for portability.
type Row struct {
	On date.Date

	Open          Field
	High          Field
	Low           Field
	Close         Field
	Volume        Field
	TrailingPE    Field
	PriceToBook   Field
	DividendYield Field
	ToUSD         Field
	ToKRW         Field

	Symbol    string
	Currency  string
	QuoteType string
}

// Get returns the named numeric field. It panics on an unknown name, which
// can only come from a schema programming error, never from data.
func (r Row) Get(name string) Field {
	switch name {
	case FieldOpen:
		return r.Open
	case FieldHigh:
		return r.High
	case FieldLow:
		return r.Low
	case FieldClose:
		return r.Close
	case FieldVolume:
		return r.Volume
	case FieldTrailingPE:
		return r.TrailingPE
	case FieldPriceToBook:
		return r.PriceToBook
	case FieldDividendYield:
		return r.DividendYield
	case FieldToUSD:
		return r.ToUSD
	case FieldToKRW:
		return r.ToKRW
	}
	panic(fmt.Sprintf("unknown field %q", name))
}

// Set assigns the named numeric field and returns the updated row.
func (r Row) Set(name string, f Field) Row {
	switch name {
	case FieldOpen:
		r.Open = f
	case FieldHigh:
		r.High = f
	case FieldLow:
		r.Low = f
	case FieldClose:
		r.Close = f
	case FieldVolume:
		r.Volume = f
	case FieldTrailingPE:
		r.TrailingPE = f
	case FieldPriceToBook:
		r.PriceToBook = f
	case FieldDividendYield:
		r.DividendYield = f
	case FieldToUSD:
		r.ToUSD = f
	case FieldToKRW:
		r.ToKRW = f
	default:
		panic(fmt.Sprintf("unknown field %q", name))
	}
	return r
}

// Kind classifies a series by the fields it carries.
type Kind string

const (
	KindPrice     Kind = "price"
	KindValuation Kind = "valuation"
	KindFX        Kind = "fx"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPrice, KindValuation, KindFX:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown series kind %q: want price, valuation or fx", s)
}

// Schema names the canonical numeric fields of a series kind, in their fixed
// serialization order, and the primary fields used by the validity filter.
type Schema struct {
	Kind    Kind
	Fields  []string
	Primary []string
}

var (
	// PriceSchema holds daily quotes. A row without a close price is a placeholder.
	PriceSchema = Schema{
		Kind:    KindPrice,
		Fields:  []string{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume},
		Primary: []string{FieldClose},
	}
	// ValuationSchema holds valuation ratios. Sources publish all-zero rows
	// intraday, so a row needs at least one positive ratio to be usable.
	ValuationSchema = Schema{
		Kind:    KindValuation,
		Fields:  []string{FieldTrailingPE, FieldPriceToBook, FieldDividendYield},
		Primary: []string{FieldTrailingPE, FieldPriceToBook},
	}
	// FXSchema holds conversion ratios to the reference currencies.
	FXSchema = Schema{
		Kind:    KindFX,
		Fields:  []string{FieldToUSD, FieldToKRW},
		Primary: []string{FieldToUSD, FieldToKRW},
	}
)

// FieldForReference maps a reference currency code to the conversion field
// that stores rates toward it. Only currencies with a field slot can be
// configured as references.
func FieldForReference(code string) (string, error) {
	switch code {
	case "USD":
		return FieldToUSD, nil
	case "KRW":
		return FieldToKRW, nil
	}
	return "", fmt.Errorf("no conversion field for reference currency %q: want USD or KRW", code)
}

// SchemaFor returns the schema of a series kind.
func SchemaFor(kind Kind) (Schema, error) {
	switch kind {
	case KindPrice:
		return PriceSchema, nil
	case KindValuation:
		return ValuationSchema, nil
	case KindFX:
		return FXSchema, nil
	}
	return Schema{}, fmt.Errorf("unknown series kind %q", kind)
}

// SameValues reports whether two rows carry equal values for every field of
// the schema, two absent fields counting as equal. Metadata and the date are
// not compared: this is the comparison used by the weekend-duplicate rule.
func (r Row) SameValues(x Row, schema Schema) bool {
	for _, name := range schema.Fields {
		if r.Get(name) != x.Get(name) {
			return false
		}
	}
	return true
}
