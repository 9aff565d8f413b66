package search

// FieldSet lists the dotted record paths a free text query looks at.
type FieldSet struct {
	Name   string
	Fields []string
}

var (
	NodeFields = FieldSet{
		Name:   "nodes",
		Fields: []string{"node_name", "uid", "site", "cluster", "architecture.platform_type", "processor.model"},
	}
	AllocationFields = FieldSet{
		Name:   "allocations",
		Fields: []string{"title", "code", "contact.name", "contact.email"},
	}
	ApplianceFields = FieldSet{
		Name:   "appliances",
		Fields: []string{"name", "description", "author"},
	}
)

var fieldSets = map[string]FieldSet{
	NodeFields.Name:       NodeFields,
	AllocationFields.Name: AllocationFields,
	ApplianceFields.Name:  ApplianceFields,
}

// GetFieldSet falls back to NodeFields for unknown names.
func GetFieldSet(name string) (FieldSet, bool) {
	fs, ok := fieldSets[name]
	if !ok {
		return NodeFields, false
	}
	return fs, true
}
