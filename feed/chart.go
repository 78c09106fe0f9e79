package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/seriesdb"
	"github.com/etnz/seriesdb/date"
	"github.com/shopspring/decimal"
)

// chartResponse is the response structure of the chart endpoint.
//
//	{"chart":{"result":[{"meta":{...},"timestamp":[...],
//	  "indicators":{"quote":[{"open":[...],"close":[...],...}]}}],"error":null}}
//
// Quote arrays carry null for days without data, hence the pointer slices.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Currency  string `json:"currency"`
				QuoteType string `json:"instrumentType"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*decimal.Decimal `json:"open"`
					High   []*decimal.Decimal `json:"high"`
					Low    []*decimal.Decimal `json:"low"`
					Close  []*decimal.Decimal `json:"close"`
					Volume []*decimal.Decimal `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// summaryResponse is the response structure of the key-statistics endpoint.
// Numeric values come wrapped as {"raw": 12.34, "fmt": "12.34"}.
type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE    rawValue `json:"trailingPE"`
				DividendYield rawValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			KeyStatistics struct {
				PriceToBook rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw *decimal.Decimal `json:"raw"`
}

var _ seriesdb.Fetcher = (*Client)(nil)

// field converts an optional decimal into an engine field.
func field(d *decimal.Decimal) seriesdb.Field {
	if d == nil {
		return seriesdb.Field{}
	}
	return seriesdb.F(d.InexactFloat64())
}

// Fetch implements seriesdb.Fetcher. Price and fx kinds read the daily chart
// endpoint; the valuation kind reads the key-statistics endpoint, which only
// carries today's snapshot (valuation history accumulates run by run).
func (c *Client) Fetch(ctx context.Context, symbol string, kind seriesdb.Kind, window date.Range) ([]seriesdb.Row, error) {
	switch kind {
	case seriesdb.KindValuation:
		return c.fetchValuation(ctx, symbol)
	default:
		return c.fetchChart(ctx, symbol, window)
	}
}

// dayStart returns the unix timestamp of midnight UTC for a date.
func dayStart(d date.Date) int64 {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

func (c *Client) fetchChart(ctx context.Context, symbol string, window date.Range) ([]seriesdb.Row, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"period1":  fmt.Sprintf("%d", dayStart(window.From)),
			"period2":  fmt.Sprintf("%d", dayStart(window.To.Add(1))),
			"interval": "1d",
		}).
		Get("/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("chart fetch %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chart fetch %s: %s", symbol, resp.Status())
	}

	var chart chartResponse
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		return nil, fmt.Errorf("chart fetch %s: malformed payload: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart fetch %s: %s: %s", symbol,
			chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	rows := make([]seriesdb.Row, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		on := date.New(time.Unix(ts, 0).UTC().Date())
		row := seriesdb.Row{
			On:        on,
			Symbol:    result.Meta.Symbol,
			Currency:  result.Meta.Currency,
			QuoteType: result.Meta.QuoteType,
		}
		if i < len(quote.Open) {
			row.Open = field(quote.Open[i])
		}
		if i < len(quote.High) {
			row.High = field(quote.High[i])
		}
		if i < len(quote.Low) {
			row.Low = field(quote.Low[i])
		}
		if i < len(quote.Close) {
			row.Close = field(quote.Close[i])
		}
		if i < len(quote.Volume) {
			row.Volume = field(quote.Volume[i])
		}
		rows = append(rows, row)
	}
	c.log.Debug("chart fetched", "symbol", symbol, "rows", len(rows), "window", window)
	return rows, nil
}

func (c *Client) fetchValuation(ctx context.Context, symbol string) ([]seriesdb.Row, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("modules", "summaryDetail,defaultKeyStatistics").
		Get("/v10/finance/quoteSummary/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("valuation fetch %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("valuation fetch %s: %s", symbol, resp.Status())
	}

	var summary summaryResponse
	if err := json.Unmarshal(resp.Body(), &summary); err != nil {
		return nil, fmt.Errorf("valuation fetch %s: malformed payload: %w", symbol, err)
	}
	if summary.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("valuation fetch %s: %s", symbol, summary.QuoteSummary.Error.Description)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, nil
	}

	r := summary.QuoteSummary.Result[0]
	return []seriesdb.Row{{
		On:            date.Today(),
		Symbol:        symbol,
		TrailingPE:    field(r.SummaryDetail.TrailingPE.Raw),
		PriceToBook:   field(r.KeyStatistics.PriceToBook.Raw),
		DividendYield: field(r.SummaryDetail.DividendYield.Raw),
	}}, nil
}

// Latest returns the most recent close in today's chart payload, for
// intraday refreshes. The payload nests the value deep in the quote arrays,
// so a jsonpath expression picks it rather than a dedicated struct.
func (c *Client) Latest(ctx context.Context, symbol string) (float64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"interval": "1d", "range": "1d"}).
		Get("/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return 0, fmt.Errorf("latest %s: %w", symbol, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("latest %s: %s", symbol, resp.Status())
	}

	var jobj any
	if err := json.Unmarshal(resp.Body(), &jobj); err != nil {
		return 0, fmt.Errorf("latest %s: malformed payload: %w", symbol, err)
	}
	path := "$.chart.result[0].indicators.quote[0].close[-1:]"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("latest %s: %q: %w", symbol, path, err)
	}
	// jsonpath may wrap a single answer in a list; keep the first one.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return 0, fmt.Errorf("latest %s: %q is not a number: %v", symbol, path, jval)
	}
	return val, nil
}
