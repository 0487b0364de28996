package filter

import "sort"

// FieldKind is the type of values a field can be compared with.
type FieldKind int

const (
	StringField FieldKind = iota
	NumberField
	BoolField
	SizeField
)

func (k FieldKind) String() string {
	switch k {
	case StringField:
		return "string"
	case NumberField:
		return "number"
	case BoolField:
		return "boolean"
	case SizeField:
		return "size"
	default:
		return "unknown"
	}
}

// Field maps a filter name to a SQL expression over inspection_results.
type Field struct {
	Name string
	Kind FieldKind
	Sql  string
}

var fields = map[string]Field{
	"machine":      {Name: "machine", Kind: StringField, Sql: `"machine_id"`},
	"name":         {Name: "name", Kind: StringField, Sql: `"machine_name"`},
	"connection":   {Name: "connection", Kind: StringField, Sql: `"connection_uri"`},
	"outcome":      {Name: "outcome", Kind: StringField, Sql: `"outcome"`},
	"root":         {Name: "root", Kind: StringField, Sql: `"root"`},
	"os.type":      {Name: "os.type", Kind: StringField, Sql: `"os_type"`},
	"os.distro":    {Name: "os.distro", Kind: StringField, Sql: `"distro"`},
	"os.major":     {Name: "os.major", Kind: NumberField, Sql: `"major_version"`},
	"os.minor":     {Name: "os.minor", Kind: NumberField, Sql: `"minor_version"`},
	"os.hostname":  {Name: "os.hostname", Kind: StringField, Sql: `"hostname"`},
	"os.product":   {Name: "os.product", Kind: StringField, Sql: `"product_name"`},
	"os.variant":   {Name: "os.variant", Kind: StringField, Sql: `"product_variant"`},
	"mounted":      {Name: "mounted", Kind: BoolField, Sql: `"filesystems_mounted"`},
	"icon.size":    {Name: "icon.size", Kind: SizeField, Sql: `COALESCE(octet_length("icon"), 0)`},
	"applications": {Name: "applications", Kind: StringField, Sql: `"applications"`},
	"error":        {Name: "error", Kind: StringField, Sql: `"error"`},
}

func lookupField(name string) (Field, bool) {
	f, ok := fields[name]
	return f, ok
}

// Fields returns the names accepted by Parse, sorted.
func Fields() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
