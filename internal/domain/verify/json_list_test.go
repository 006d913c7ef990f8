package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

func fencedJSON(t *testing.T, items []map[string]any) string {
	t.Helper()
	raw, err := json.MarshalIndent(items, "", "  ")
	require.NoError(t, err)
	return "Here is the list:\n```json\n" + string(raw) + "\n```\n"
}

func vendorItems(n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, map[string]any{
			"name":  fmt.Sprintf("Vendor %d", i),
			"url":   fmt.Sprintf("https://shop%d.bestbuy.com/item", i),
			"quote": "Refurbished units ship within two business days.",
		})
	}
	return items
}

func runJSONList(job *model.Job, submission string) model.Outcome {
	return JSONList{}.Verify(context.Background(), job, jobtags.Parse(job.Text()), submission)
}

func TestJSONList_RequiredKeys(t *testing.T) {
	job := &model.Job{
		Title: "Vendor list",
		Body:  "[verifier:json_list] [json_min_items:5] [json_required_keys:name,url,quote]",
	}

	items := vendorItems(5)
	out := runJSONList(job, fencedJSON(t, items))
	require.True(t, out.OK, out.Note)

	delete(items[2], "quote")
	out = runJSONList(job, fencedJSON(t, items))
	assert.False(t, out.OK)
	assert.True(t, out.Failed())
	assert.Contains(t, out.Note, "item 3")
	assert.Equal(t, 3, out.Evidence["item"])
	assert.Equal(t, []string{"quote"}, out.Evidence["missing"])
}

func TestJSONList_Failures(t *testing.T) {
	job := &model.Job{
		Title: "Vendor list",
		Body:  "[verifier:json_list] [json_min_items:3] [json_required_keys:name,url,quote]",
	}

	tests := []struct {
		name     string
		mutate   func([]map[string]any) []map[string]any
		raw      string
		wantNote string
	}{
		{name: "unparsable", raw: "I could not find any vendors", wantNote: "no parsable JSON array"},
		{
			name:     "too few items",
			mutate:   func(items []map[string]any) []map[string]any { return items[:2] },
			wantNote: "at least 3 items",
		},
		{
			name: "malformed url",
			mutate: func(items []map[string]any) []map[string]any {
				items[1]["url"] = "shop.example/nope"
				return items
			},
			wantNote: "item 2 has invalid url",
		},
		{
			name: "short quote",
			mutate: func(items []map[string]any) []map[string]any {
				items[0]["quote"] = "too short"
				return items
			},
			wantNote: "item 1 has a quote shorter than 20",
		},
		{
			name: "blank value counts as missing",
			mutate: func(items []map[string]any) []map[string]any {
				items[2]["name"] = "  "
				return items
			},
			wantNote: "item 3 is missing required key(s): name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submission := tt.raw
			if tt.mutate != nil {
				submission = fencedJSON(t, tt.mutate(vendorItems(3)))
			}
			out := runJSONList(job, submission)
			assert.False(t, out.OK)
			assert.Contains(t, out.Note, tt.wantNote)
		})
	}
}

func TestJSONList_OnlyFirstTwentyItemsChecked(t *testing.T) {
	job := &model.Job{Title: "List", Body: "[json_required_keys:name]"}
	items := make([]map[string]any, 25)
	for i := range items {
		items[i] = map[string]any{"name": "x"}
	}
	items[22] = map[string]any{"other": "y"}

	out := runJSONList(job, fencedJSON(t, items))
	assert.True(t, out.OK, out.Note)
	assert.Equal(t, 20, out.Evidence["checked"])
}

func TestJSONList_MarketScanNeedsRealDomain(t *testing.T) {
	job := &model.Job{
		Title: "Market scan: refurbished servers",
		Body:  "[verifier:json_list] [json_min_items:2] [json_required_keys:name,url,quote]",
	}

	placeholder := vendorItems(2)
	placeholder[0]["url"] = "https://www.example.com/a"
	placeholder[1]["url"] = "https://shop.yourdomain.com/b"
	out := runJSONList(job, fencedJSON(t, placeholder))
	assert.False(t, out.OK)
	assert.Contains(t, out.Note, "real")

	mixed := vendorItems(2)
	mixed[0]["url"] = "https://www.example.com/a"
	out = runJSONList(job, fencedJSON(t, mixed))
	assert.True(t, out.OK, out.Note)
	assert.Equal(t, []string{"bestbuy.com"}, out.Evidence["real_domains"])
}

func TestJSONList_Matches(t *testing.T) {
	v := JSONList{}
	assert.True(t, v.Matches(nil, jobtags.Parse("[verifier:json_list]")))
	assert.True(t, v.Matches(nil, jobtags.Parse("[json_min_items:2]")))
	assert.False(t, v.Matches(nil, jobtags.Parse("[verifier:md_table] [json_min_items:2]")))
	assert.False(t, v.Matches(nil, jobtags.Parse("plain text")))
}

func TestRealDomains(t *testing.T) {
	got := realDomains([]string{"a.example.com", "localhost.test", "news.bbc.co.uk", "x.acme.com", "www.bbc.co.uk"})
	assert.Equal(t, []string{"bbc.co.uk"}, got)
	assert.Empty(t, realDomains([]string{strings.Repeat("a", 3) + ".invalid"}))
}
