package flipp

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"sync"
)

const sampleBytes = 1000

// ProbeResult describes one diagnostic request against the feed.
type ProbeResult struct {
	URL    string   `json:"url"`
	Status int      `json:"status,omitempty"`
	Length int      `json:"length"`
	Sample string   `json:"sample,omitempty"`
	Keys   []string `json:"keys,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// ProbeReport is the output of Probe.
type ProbeReport struct {
	Flyer       ProbeResult `json:"flyer"`
	Items       ProbeResult `json:"items"`
	Publication ProbeResult `json:"publication"`
	FlyersList  ProbeResult `json:"flyersList"`
	PostalCode  ProbeResult `json:"postalCode"`
}

// PostalCode looks up the feed's metadata for a postal code.
func (c *Client) PostalCode(ctx context.Context, zip string) (map[string]any, error) {
	body, err := c.get(ctx, "/postal_codes/"+url.PathEscape(zip), nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Probe hits the flyer, items, publication, flyer list and postal code
// endpoints concurrently and reports what each one returned. Failures are
// recorded in the report rather than returned.
func (c *Client) Probe(ctx context.Context, flyerID, zip string) *ProbeReport {
	report := &ProbeReport{}
	targets := []struct {
		dst *ProbeResult
		url string
	}{
		{&report.Flyer, c.URL("/flyers/"+url.PathEscape(flyerID), nil)},
		{&report.Items, c.URL("/flyers/"+url.PathEscape(flyerID)+"/items", nil)},
		{&report.Publication, c.URL("/publications/"+url.PathEscape(flyerID), nil)},
		{&report.FlyersList, c.URL("/flyers", url.Values{"postal_code": {zip}})},
		{&report.PostalCode, c.URL("/postal_codes/"+url.PathEscape(zip), nil)},
	}

	var wg sync.WaitGroup
	for _, t := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			*t.dst = c.probe(ctx, t.url)
		}()
	}
	wg.Wait()

	return report
}

func (c *Client) probe(ctx context.Context, rawURL string) ProbeResult {
	res := ProbeResult{URL: rawURL}

	body, status, err := c.do(ctx, rawURL)
	res.Status = status
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Length = len(body)
	res.Sample = string(body)
	if len(res.Sample) > sampleBytes {
		res.Sample = res.Sample[:sampleBytes]
	}
	res.Keys = topLevelKeys(body)
	return res
}

// topLevelKeys lists the keys of a JSON object, or of the first element of
// a JSON array of objects.
func topLevelKeys(body []byte) []string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
			return nil
		}
		obj = list[0]
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
