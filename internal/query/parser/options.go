package parser

import "strings"

// SystemOption describes an OData system query option
type SystemOption struct {
	Name          string
	Documentation string
	Values        []string // closed set of values, if any
}

// SystemOptions lists the system query options a document may use
var SystemOptions = []SystemOption{
	{Name: "$apply", Documentation: "Applies set transformations, separated by forward slashes."},
	{Name: "$filter", Documentation: "Filters collection of resources."},
	{Name: "$select", Documentation: "Selects a specific set of properties for each entity or complex type."},
	{Name: "$skip", Documentation: "Requests a number of items in the queried collection to be skipped and not included in the result."},
	{Name: "$top", Documentation: "Limits the number of items in the queried collection to be included in the result."},
	{Name: "$format", Documentation: "Requested format of the returned OData document (xml, json)", Values: []string{"json", "xml"}},
	{Name: "$orderby", Documentation: "Perform an order-by on the provided property before selection"},
	{Name: "$expand", Documentation: "Specifies the related resources or media streams to be included in line with retrieved resources"},
	{Name: "$search", Documentation: "Allows clients to request items within a collection matching a free-text search expression"},
	{Name: "$count", Documentation: "Allows clients to request a count of the matching resources included with the resources in the response"},
	{Name: "$inlinecount", Documentation: "Indicates that the response to the request has to include the count of the number of entities in the EntitySet", Values: []string{"allpages"}},
	{Name: "$skiptoken", Documentation: "Identifies a starting point in the collection of entities identified by the URI containing the $skiptoken parameter"},
	{Name: "$compute", Documentation: "Allows clients to define computed properties that can be used in a $select or within a $filter or $orderby expression"},
	{Name: "$schemaversion", Documentation: "The value specifies the version of the schema against which the request is made"},
	{Name: "$levels", Documentation: "Limits the depth of a recursive $expand."},
	{Name: "$deltatoken", Documentation: "Identifies the state of a delta response to request changes since."},
	{Name: "$id", Documentation: "Identifies an entity by its id, used with $ref and $entity requests."},
	{Name: "$index", Documentation: "Inserts an item at a position of an ordered collection."},
}

// LookupSystemOption finds a system option by name, ignoring case
func LookupSystemOption(name string) (SystemOption, bool) {
	for _, opt := range SystemOptions {
		if strings.EqualFold(opt.Name, name) {
			return opt, true
		}
	}
	return SystemOption{}, false
}
