package tooling

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/odatakit/odatakit/internal/metadata"
)

func labels(items []CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Label)
	}
	return out
}

func itemsOfKind(items []CompletionItem, kind CompletionKind) []CompletionItem {
	var out []CompletionItem
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// endOf returns the position after the last character of text
func endOf(text string) Position {
	lines := strings.Split(text, "\n")
	return Position{Line: len(lines) - 1, Character: len(lines[len(lines)-1])}
}

var customerProperties = []string{
	"CustomerID", "CompanyName", "ContactName", "ContactTitle", "Address",
	"City", "Region", "PostalCode", "Country", "Phone", "Fax",
}

func TestGetCompletions_SystemOptions(t *testing.T) {
	api := newNorthwindAPI(t)
	text := northwindRoot + "/Customers?$sel"
	api.OpenDocument("file:///q.odata", text)

	items, err := api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)

	assert.Contains(t, labels(items), "$select")
	assert.Contains(t, labels(items), "$filter")
	assert.Len(t, itemsOfKind(items, CompletionKindKeyword), len(items))

	for _, item := range items {
		if item.Label == "$filter" {
			assert.Equal(t, "filter", item.InsertText)
			assert.Equal(t, "Filters collection of resources.", item.Documentation)
		}
	}
}

func TestGetCompletions_EnumValues(t *testing.T) {
	api := newNorthwindAPI(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "format", text: northwindRoot + "/Customers?$format=", want: []string{"json", "xml"}},
		{name: "inlinecount", text: northwindRoot + "/Customers?$inlinecount=", want: []string{"allpages"}},
		{name: "partial value", text: northwindRoot + "/Customers?$format=js", want: []string{"json", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api.OpenDocument("file:///q.odata", tt.text)
			items, err := api.GetCompletions("file:///q.odata", endOf(tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.want, labels(items))
			assert.Len(t, itemsOfKind(items, CompletionKindEnumMember), len(tt.want))
		})
	}
}

func TestGetCompletions_EntitySets(t *testing.T) {
	api := newNorthwindAPI(t)
	text := northwindRoot + "/Cus"
	api.OpenDocument("file:///q.odata", text)

	items, err := api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)

	sets := labels(itemsOfKind(items, CompletionKindClass))
	assert.Len(t, sets, 26)
	assert.Contains(t, sets, "Customers")
	assert.Contains(t, sets, "CustomerDemographics")
	assert.Contains(t, sets, "Category_Sales_for_1997")
	assert.Empty(t, itemsOfKind(items, CompletionKindProperty))
}

func TestGetCompletions_SelectProperties(t *testing.T) {
	api := newNorthwindAPI(t)
	text := northwindRoot + "/Customers?$select="
	api.OpenDocument("file:///q.odata", text)

	items, err := api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)

	assert.ElementsMatch(t, customerProperties, labels(items))
	assert.Empty(t, itemsOfKind(items, CompletionKindFunction), "no functions inside $select")
	for _, item := range items {
		assert.Equal(t, "Edm.String", item.Detail)
	}
}

func TestGetCompletions_FilterAcrossLines(t *testing.T) {
	api := newNorthwindAPI(t)
	text := "// orders shipped late\n" + northwindRoot + "/Orders\n  ?$filter="
	api.OpenDocument("file:///q.odata", text)

	items, err := api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)

	props := labels(itemsOfKind(items, CompletionKindProperty))
	assert.Contains(t, props, "OrderID")
	assert.Contains(t, props, "ShippedDate")
	assert.NotContains(t, props, "CompanyName")
	assert.Contains(t, labels(itemsOfKind(items, CompletionKindFunction)), "contains")
}

func TestGetCompletions_NoMetadataOptions(t *testing.T) {
	api := newNorthwindAPI(t)

	for _, option := range []string{"$top", "$skip", "$count", "$skiptoken", "$compute", "$schemaversion"} {
		t.Run(option, func(t *testing.T) {
			text := northwindRoot + "/Customers?" + option + "="
			api.OpenDocument("file:///q.odata", text)

			items, err := api.GetCompletions("file:///q.odata", endOf(text))
			require.NoError(t, err)
			assert.Empty(t, itemsOfKind(items, CompletionKindProperty))
			assert.Empty(t, itemsOfKind(items, CompletionKindClass))
		})
	}
}

func TestGetCompletions_WithoutMapEntry(t *testing.T) {
	api := newNorthwindAPI(t)
	text := "https://example.com/svc/Customers?$filter="
	api.OpenDocument("file:///q.odata", text)

	items, err := api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)
	assert.Equal(t, canonicalFunctions, labels(items))
}

func TestGetCompletions_MetadataFailureDegrades(t *testing.T) {
	svc := metadata.NewService(&metadata.Config{
		Map: []metadata.MapEntry{{URL: northwindRoot, Path: "../../testdata/metadata/missing.xml"}},
	})
	api := NewAPI(svc, nil)
	text := northwindRoot + "/Customers?$filter="
	api.OpenDocument("file:///q.odata", text)

	items, err := api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)
	assert.Equal(t, canonicalFunctions, labels(items))
}

type countingFS struct {
	reads int
}

func (f *countingFS) ReadFile(name string) ([]byte, error) {
	f.reads++
	return os.ReadFile(name)
}

func TestGetCompletions_FailedMetadataStaysDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "northwind.xml")
	fs := &countingFS{}
	core, logs := observer.New(zap.WarnLevel)

	svc := metadata.NewService(&metadata.Config{
		Map: []metadata.MapEntry{{URL: northwindRoot, Path: path}},
		FS:  fs,
	})
	api := NewAPI(svc, zap.New(core))
	text := northwindRoot + "/Customers?$filter="
	api.OpenDocument("file:///q.odata", text)

	items, err := api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)
	assert.Equal(t, canonicalFunctions, labels(items))
	assert.True(t, api.MetadataUnavailable(northwindRoot))

	data, err := os.ReadFile("../../testdata/metadata/northwind.xml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	items, err = api.GetCompletions("file:///q.odata", endOf(text))
	require.NoError(t, err)
	assert.Equal(t, canonicalFunctions, labels(items), "no retry after a failed load")
	assert.Equal(t, 1, fs.reads)
	assert.Equal(t, 1, logs.Len())
}

func TestGetCompletions_FailedMetadataDisablesWholeMapEntry(t *testing.T) {
	fs := &countingFS{}
	core, logs := observer.New(zap.WarnLevel)

	svc := metadata.NewService(&metadata.Config{
		Map: []metadata.MapEntry{{URL: northwindRoot, Path: filepath.Join(t.TempDir(), "missing.xml")}},
		FS:  fs,
	})
	api := NewAPI(svc, zap.New(core))

	customers := northwindRoot + "/Customers?$filter="
	orders := northwindRoot + "/Orders?$filter="
	api.OpenDocument("file:///customers.odata", customers)
	api.OpenDocument("file:///orders.odata", orders)

	for i := 0; i < 2; i++ {
		_, err := api.GetCompletions("file:///customers.odata", endOf(customers))
		require.NoError(t, err)
		_, err = api.GetCompletions("file:///orders.odata", endOf(orders))
		require.NoError(t, err)
	}

	assert.True(t, api.MetadataUnavailable(northwindRoot+"/Customers"))
	assert.True(t, api.MetadataUnavailable(northwindRoot+"/Orders"))
	assert.False(t, api.MetadataUnavailable("https://example.com/svc"))
	assert.Equal(t, 1, fs.reads)
	assert.Equal(t, 1, logs.Len())
}

func TestGetCompletions_UnknownDocument(t *testing.T) {
	api := NewAPI(nil, nil)
	_, err := api.GetCompletions("file:///missing.odata", Position{})
	assert.Error(t, err)
}

func TestGetCompletions_PositionPastEnd(t *testing.T) {
	api := newNorthwindAPI(t)
	api.OpenDocument("file:///q.odata", northwindRoot)

	items, err := api.GetCompletions("file:///q.odata", Position{Line: 5, Character: 0})
	require.NoError(t, err)
	assert.Empty(t, items)
}
