package page

import "fmt"

// TagKind identifies which tag and attribute carry a metadata key.
type TagKind int

const (
	MetaName     TagKind = iota // <meta name="..." content="...">
	MetaProperty                // <meta property="..." content="...">
	LinkRel                     // <link rel="..." href="...">
)

// MetaSpec describes where one metadata key lives in a document.
type MetaSpec struct {
	Key  string
	Kind TagKind
	Name string // value of the name, property or rel attribute
}

// MetaKeys is the fixed, ordered set of keys carried across navigations.
var MetaKeys = []MetaSpec{
	{Key: "description", Kind: MetaName, Name: "description"},
	{Key: "keywords", Kind: MetaName, Name: "keywords"},
	{Key: "canonical", Kind: LinkRel, Name: "canonical"},
	{Key: "og:title", Kind: MetaProperty, Name: "og:title"},
	{Key: "og:description", Kind: MetaProperty, Name: "og:description"},
	{Key: "og:url", Kind: MetaProperty, Name: "og:url"},
	{Key: "robots", Kind: MetaName, Name: "robots"},
}

// LookupMeta returns the tag description for key.
func LookupMeta(key string) (MetaSpec, bool) {
	for _, s := range MetaKeys {
		if s.Key == key {
			return s, true
		}
	}
	return MetaSpec{}, false
}

// TagName is the element name carrying the key.
func (s MetaSpec) TagName() string {
	if s.Kind == LinkRel {
		return "link"
	}
	return "meta"
}

// KeyAttr is the attribute that identifies the tag.
func (s MetaSpec) KeyAttr() string {
	switch s.Kind {
	case MetaProperty:
		return "property"
	case LinkRel:
		return "rel"
	default:
		return "name"
	}
}

// ValueAttr is the attribute holding the value.
func (s MetaSpec) ValueAttr() string {
	if s.Kind == LinkRel {
		return "href"
	}
	return "content"
}

// Selector returns a CSS selector for the tag.
func (s MetaSpec) Selector() string {
	return fmt.Sprintf(`%s[%s=%q]`, s.TagName(), s.KeyAttr(), s.Name)
}

// MetaEntry is one extracted key/value pair.
type MetaEntry struct {
	Key   string
	Value string
}

// Metadata keeps entries in MetaKeys order.
type Metadata []MetaEntry

// Get returns the value for key.
func (m Metadata) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}
