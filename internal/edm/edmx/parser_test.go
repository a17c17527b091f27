package edmx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odatakit/odatakit/internal/edm"
	"github.com/odatakit/odatakit/internal/errors"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "..", "testdata", "metadata", name))
	require.NoError(t, err)
	return string(data)
}

func names(sets []edm.EntitySet) []string {
	out := make([]string, len(sets))
	for i, s := range sets {
		out[i] = s.Name
	}
	return out
}

func TestParse_Northwind(t *testing.T) {
	md, err := Parse(readFixture(t, "northwind.xml"))
	require.NoError(t, err)

	assert.Equal(t, "4.0", md.Version)
	require.Len(t, md.Schemas, 2)

	model, container := md.Schemas[0], md.Schemas[1]
	assert.Equal(t, "NorthwindModel", model.Namespace)
	assert.Len(t, model.EntityTypes, 26)
	assert.Nil(t, model.EntityContainers)
	assert.False(t, model.HasEntityContainers())

	assert.Equal(t, "ODataWebV4.Northwind.Model", container.Namespace)
	assert.Nil(t, container.EntityTypes)
	require.Len(t, container.EntityContainers, 1)
	assert.Equal(t, "NorthwindEntities", container.EntityContainers[0].Name)

	items := md.EntityContainerItems()
	assert.Len(t, items, 26)
	assert.Contains(t, names(items), "CustomerDemographics")
	assert.Contains(t, names(items), "Category_Sales_for_1997")
	assert.Equal(t, "Categories", items[0].Name)
	assert.Equal(t, "NorthwindModel.Category", items[0].EntityType)
}

func TestParse_NorthwindDetails(t *testing.T) {
	md, err := Parse(readFixture(t, "northwind.xml"))
	require.NoError(t, err)

	category := md.Schemas[0].EntityTypes[0]
	assert.Equal(t, "Category", category.Name)
	assert.Equal(t, []edm.PropertyRef{{Name: "CategoryID"}}, category.Key)
	require.Len(t, category.Properties, 4)

	id := category.Properties[0]
	assert.Equal(t, "CategoryID", id.Name)
	assert.Equal(t, "Edm.Int32", id.Type)
	require.NotNil(t, id.Nullable)
	assert.True(t, *id.Nullable)
	assert.Equal(t, "false", id.NullableText)

	assert.Nil(t, category.Properties[2].Nullable)
	assert.Nil(t, category.Properties[2].Annotations)

	require.Len(t, category.NavigationProperties, 1)
	assert.Equal(t, "Collection(NorthwindModel.Product)", category.NavigationProperties[0].Type)

	region := md.EntityTypesNamed("NorthwindModel.Region")
	require.Len(t, region, 1)
	assert.Nil(t, region[0].EntityType.NavigationProperties)

	orders := md.EntitySetsNamed("Orders")
	require.Len(t, orders, 1)
	assert.Equal(t, []edm.NavigationPropertyBinding{
		{Path: "Customer", Target: "Customers"},
		{Path: "Employee", Target: "Employees"},
		{Path: "Order_Details", Target: "Order_Details"},
		{Path: "Shipper", Target: "Shippers"},
	}, orders[0].NavigationPropertyBindings)

	regions := md.EntitySetsNamed("Regions")
	require.Len(t, regions, 1)
	assert.Nil(t, regions[0].NavigationPropertyBindings)
	assert.Nil(t, regions[0].Annotations)
}

func TestParse_BusinessPartner(t *testing.T) {
	md, err := Parse(readFixture(t, "s4_business_partner.xml"))
	require.NoError(t, err)

	require.Len(t, md.Schemas, 1)
	assert.Equal(t, "API_BUSINESS_PARTNER", md.Schemas[0].Namespace)

	items := md.EntityContainerItems()
	assert.Len(t, items, 36)
	assert.Contains(t, names(items), "A_BusinessPartnerBank")

	bank := md.EntitySetsNamed("A_BusinessPartnerBank")[0]
	assert.Equal(t, "A_BusinessPartnerBankType", edm.BareTypeName(bank.EntityType))

	props := md.PropertiesOf(bank.EntityType)
	require.NotEmpty(t, props)
	assert.Equal(t, "BusinessPartner", props[0].Name)
}

func TestParse_NestedScalars(t *testing.T) {
	md, err := Parse(readFixture(t, "nested_scalars.xml"))
	require.NoError(t, err)
	require.Len(t, md.Schemas, 2)

	sales := md.Schemas[0]
	assert.Equal(t, "Contoso.Sales", sales.Namespace)
	require.Len(t, sales.EntityTypes, 2)

	invoice := sales.EntityTypes[0]
	assert.Equal(t, "Invoice", invoice.Name)
	assert.Nil(t, invoice.Key)
	require.Len(t, invoice.Properties, 3)

	id := invoice.Properties[0]
	assert.Equal(t, "InvoiceID", id.Name)
	assert.Equal(t, "Edm.Guid", id.Type)
	require.NotNil(t, id.Nullable)
	assert.True(t, *id.Nullable)

	// the attribute wins over a child element of the same name
	total := invoice.Properties[1]
	assert.Equal(t, "Total", total.Name)
	assert.Equal(t, []edm.Annotation{{Term: "Org.OData.Measures.V1.ISOCurrency", Value: "EUR"}}, total.Annotations)

	memo := invoice.Properties[2]
	assert.Nil(t, memo.Nullable)
	assert.Equal(t, []edm.Annotation{{Term: "Core.Description", Value: "Free text"}}, memo.Annotations)

	require.Len(t, sales.EntityContainers, 1)
	container := sales.EntityContainers[0]
	assert.Equal(t, "SalesContainer", container.Name)
	require.Len(t, container.EntitySets, 2)
	assert.Equal(t, edm.EntitySet{
		Name:                       "Invoices",
		EntityType:                 "Contoso.Sales.Invoice",
		NavigationPropertyBindings: []edm.NavigationPropertyBinding{{Path: "Payments", Target: "Payments"}},
	}, container.EntitySets[0])
	assert.Equal(t, "Payment", container.EntitySets[1].EntityType)
	assert.Equal(t, []edm.Annotation{{Term: "Capabilities.InsertRestrictions", Value: "none"}}, container.EntitySets[1].Annotations)

	empty := md.Schemas[1]
	assert.Equal(t, "Contoso.Empty", empty.Namespace)
	assert.Nil(t, empty.EntityTypes)
	assert.Nil(t, empty.EntityContainers)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		code string
	}{
		{"malformed", `<edmx:Edmx><edmx:DataServices><Schema Namespace="x"></edmx:DataServices>`, errors.ErrMalformedXML},
		{"truncated", `<edmx:Edmx Version="4.0"><edmx:DataServices>`, errors.ErrMalformedXML},
		{"empty", ``, errors.ErrMissingRoot},
		{"only prolog", `<?xml version="1.0"?>` + "\n", errors.ErrMissingRoot},
		{"no data services", `<edmx:Edmx Version="4.0" xmlns:edmx="urn:x"><Schema Namespace="A"/></edmx:Edmx>`, errors.ErrMissingDataService},
		{"data services not under root", `<Root><Wrapper><DataServices/></Wrapper></Root>`, errors.ErrMissingDataService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := Parse(tt.xml)
			require.Error(t, err)
			assert.Nil(t, md)
			assert.True(t, errors.IsXMLParse(err))

			e, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestParse_EmptyDataServices(t *testing.T) {
	md, err := Parse(`<Edmx><DataServices></DataServices></Edmx>`)
	require.NoError(t, err)
	assert.Nil(t, md.Schemas)
	assert.Nil(t, md.EntityContainerItems())
}

func TestParseWithIndex_Positions(t *testing.T) {
	text := readFixture(t, "northwind.xml")
	_, idx, err := ParseWithIndex(text)
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	find := func(needle string) Position {
		for i, line := range lines {
			if col := strings.Index(line, needle); col >= 0 {
				return Position{Line: i + 1, Column: col + 1}
			}
		}
		t.Fatalf("%q not found", needle)
		return Position{}
	}

	pos, ok := idx.EntityType("NorthwindModel.Customer")
	require.True(t, ok)
	assert.Equal(t, find(`<EntityType Name="Customer">`), pos)

	pos, ok = idx.Property("NorthwindModel.Shipper", "Phone")
	require.True(t, ok)
	assert.Equal(t, find(`<Property Name="Phone" Type="Edm.String" MaxLength="40" />`).Column, pos.Column)
	assert.Greater(t, pos.Line, find(`<EntityType Name="Shipper">`).Line)

	assert.Equal(t, find(`<EntitySet Name="Invoices"`), idx.EntitySets["NorthwindEntities/Invoices"])

	_, ok = idx.EntityType("NorthwindModel.Nope")
	assert.False(t, ok)
}

func TestReadScalar(t *testing.T) {
	el := &Element{
		Name:  "Property",
		Attrs: map[string]string{"Name": "FromAttr", "Type": ""},
		Children: []*Element{
			{Name: "Name", Text: "FromChild"},
			{Name: "Type", Text: "  Edm.String \n"},
		},
	}

	v, ok := readScalar(el, "Name")
	assert.True(t, ok)
	assert.Equal(t, "FromAttr", v)

	v, ok = readScalar(el, "Type")
	assert.True(t, ok)
	assert.Equal(t, "Edm.String", v)

	_, ok = readScalar(el, "Nullable")
	assert.False(t, ok)
}
