package yahoo

import (
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
)

// quoteSummaryResponse is the /v10/finance/quoteSummary envelope
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResult struct {
	Price                *priceModule                `json:"price"`
	SummaryDetail        *summaryDetailModule        `json:"summaryDetail"`
	DefaultKeyStatistics *defaultKeyStatisticsModule `json:"defaultKeyStatistics"`
	FinancialData        *financialDataModule        `json:"financialData"`
	AssetProfile         *assetProfileModule         `json:"assetProfile"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper; {} means absent
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type priceModule struct {
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
	RegularMarketPrice rawValue `json:"regularMarketPrice"`
	MarketCap          rawValue `json:"marketCap"`
}

type summaryDetailModule struct {
	TrailingPE rawValue `json:"trailingPE"`
	ForwardPE  rawValue `json:"forwardPE"`
	MarketCap  rawValue `json:"marketCap"`
}

type defaultKeyStatisticsModule struct {
	PEGRatio    rawValue `json:"pegRatio"`
	TrailingEPS rawValue `json:"trailingEps"`
	BookValue   rawValue `json:"bookValue"`
	ForwardPE   rawValue `json:"forwardPE"`
}

type financialDataModule struct {
	CurrentPrice   rawValue `json:"currentPrice"`
	ReturnOnEquity rawValue `json:"returnOnEquity"`
	DebtToEquity   rawValue `json:"debtToEquity"` // percent (170.5 = 1.705x)
	EarningsGrowth rawValue `json:"earningsGrowth"`
}

type assetProfileModule struct {
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// toRaw flattens the modules into a provider payload.
// Missing modules simply leave fields nil.
func (r quoteSummaryResult) toRaw(symbol string) contracts.RawFundamentals {
	raw := contracts.RawFundamentals{
		Symbol:            symbol,
		DebtToEquityScale: contracts.DEScalePercent,
	}

	if p := r.Price; p != nil {
		raw.Name = p.LongName
		if raw.Name == "" {
			raw.Name = p.ShortName
		}
		raw.Price = p.RegularMarketPrice.Raw
		raw.MarketCap = p.MarketCap.Raw
	}

	if sd := r.SummaryDetail; sd != nil {
		raw.TrailingPE = sd.TrailingPE.Raw
		raw.ForwardPE = sd.ForwardPE.Raw
		raw.MarketCap = first(raw.MarketCap, sd.MarketCap.Raw)
	}

	if ks := r.DefaultKeyStatistics; ks != nil {
		raw.PEG = ks.PEGRatio.Raw
		raw.EPS = ks.TrailingEPS.Raw
		raw.BookValuePerShare = ks.BookValue.Raw
		raw.ForwardPE = first(raw.ForwardPE, ks.ForwardPE.Raw)
	}

	if fd := r.FinancialData; fd != nil {
		// currentPrice 우선, 없으면 regularMarketPrice
		raw.Price = first(fd.CurrentPrice.Raw, raw.Price)
		raw.ROE = fd.ReturnOnEquity.Raw
		raw.DebtToEquity = fd.DebtToEquity.Raw
		raw.EarningsGrowth = fd.EarningsGrowth.Raw
	}

	if ap := r.AssetProfile; ap != nil {
		raw.Sector = ap.Sector
		raw.Industry = ap.Industry
	}

	return raw
}

func first(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
