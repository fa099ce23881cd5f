package currency

// ISO4217 is the seed set loaded at install time. Fraction digits follow the
// ISO 4217 minor-unit table; rounding steps cover the cash-rounding currencies
// the engine is exercised with.
var ISO4217 = []Currency{
	{Code: "AUD", NumericCode: "036", Name: "Australian Dollar", Symbol: "$", FractionDigits: 2, RoundingStep: "0"},
	{Code: "BHD", NumericCode: "048", Name: "Bahraini Dinar", Symbol: ".د.ب", FractionDigits: 3, RoundingStep: "0"},
	{Code: "BRL", NumericCode: "986", Name: "Brazilian Real", Symbol: "R$", FractionDigits: 2, RoundingStep: "0"},
	{Code: "CAD", NumericCode: "124", Name: "Canadian Dollar", Symbol: "$", FractionDigits: 2, RoundingStep: "0"},
	{Code: "CHF", NumericCode: "756", Name: "Swiss Franc", Symbol: "CHF", FractionDigits: 2, RoundingStep: "0.05"},
	{Code: "CNY", NumericCode: "156", Name: "Yuan Renminbi", Symbol: "¥", FractionDigits: 2, RoundingStep: "0"},
	{Code: "DKK", NumericCode: "208", Name: "Danish Krone", Symbol: "kr", FractionDigits: 2, RoundingStep: "0"},
	{Code: "EUR", NumericCode: "978", Name: "Euro", Symbol: "€", FractionDigits: 2, RoundingStep: "0"},
	{Code: "GBP", NumericCode: "826", Name: "Pound Sterling", Symbol: "£", FractionDigits: 2, RoundingStep: "0"},
	{Code: "IDR", NumericCode: "360", Name: "Rupiah", Symbol: "Rp", FractionDigits: 2, RoundingStep: "0"},
	{Code: "INR", NumericCode: "356", Name: "Indian Rupee", Symbol: "₹", FractionDigits: 2, RoundingStep: "0"},
	{Code: "JPY", NumericCode: "392", Name: "Yen", Symbol: "¥", FractionDigits: 0, RoundingStep: "0"},
	{Code: "KRW", NumericCode: "410", Name: "Won", Symbol: "₩", FractionDigits: 0, RoundingStep: "0"},
	{Code: "KWD", NumericCode: "414", Name: "Kuwaiti Dinar", Symbol: ".د.ك", FractionDigits: 3, RoundingStep: "0"},
	{Code: "MXN", NumericCode: "484", Name: "Mexican Peso", Symbol: "$", FractionDigits: 2, RoundingStep: "0"},
	{Code: "MYR", NumericCode: "458", Name: "Malaysian Ringgit", Symbol: "RM", FractionDigits: 2, RoundingStep: "0"},
	{Code: "NOK", NumericCode: "578", Name: "Norwegian Krone", Symbol: "kr", FractionDigits: 2, RoundingStep: "0"},
	{Code: "NZD", NumericCode: "554", Name: "New Zealand Dollar", Symbol: "$", FractionDigits: 2, RoundingStep: "0"},
	{Code: "SEK", NumericCode: "752", Name: "Swedish Krona", Symbol: "kr", FractionDigits: 2, RoundingStep: "0"},
	{Code: "SGD", NumericCode: "702", Name: "Singapore Dollar", Symbol: "$", FractionDigits: 2, RoundingStep: "0"},
	{Code: "THB", NumericCode: "764", Name: "Baht", Symbol: "฿", FractionDigits: 2, RoundingStep: "0"},
	{Code: "USD", NumericCode: "840", Name: "US Dollar", Symbol: "$", FractionDigits: 2, RoundingStep: "0"},
	{Code: "VND", NumericCode: "704", Name: "Dong", Symbol: "₫", FractionDigits: 0, RoundingStep: "0"},
	{Code: "ZAR", NumericCode: "710", Name: "Rand", Symbol: "R", FractionDigits: 2, RoundingStep: "0"},
}

// ISORepository returns an in-memory repository preloaded with the seed set.
func ISORepository() *MemoryRepository {
	return NewMemoryRepository(ISO4217...)
}
