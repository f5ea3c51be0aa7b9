package vdom

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// KeyAttr is the attribute name used for keyed reconciliation.
const KeyAttr = "key"

// ValueKind discriminates attribute values.
type ValueKind uint8

const (
	ValuePlain    ValueKind = iota // Scalar value (string, number, bool)
	ValueStyle                     // Style declarations
	ValueListener                  // Event listener
	ValueFunc                      // Opaque function value
)

// String returns the string representation of the ValueKind.
func (k ValueKind) String() string {
	switch k {
	case ValuePlain:
		return "Plain"
	case ValueStyle:
		return "Style"
	case ValueListener:
		return "Listener"
	case ValueFunc:
		return "Func"
	default:
		return "Unknown"
	}
}

// Style is a single style declaration.
type Style struct {
	Property string
	Value    string
}

// Listener is an event listener binding. Listeners are compared by pointer
// identity; two listeners wrapping the same function are still different.
type Listener struct {
	Event   string // "click", "input", etc.
	Handler any    // Function to call
}

// Func is an opaque function-valued attribute (for example a property set on
// the live node). Like Listener it compares by pointer identity.
type Func struct {
	Name string
	Fn   any
}

// AttrValue is one value of an attribute.
type AttrValue struct {
	Kind     ValueKind
	Plain    any
	Styles   []Style
	Listener *Listener
	Func     *Func
}

// PlainValue wraps a scalar value.
func PlainValue(v any) AttrValue { return AttrValue{Kind: ValuePlain, Plain: v} }

// StyleValue wraps style declarations.
func StyleValue(styles ...Style) AttrValue { return AttrValue{Kind: ValueStyle, Styles: styles} }

// ListenerValue wraps an event listener.
func ListenerValue(l *Listener) AttrValue { return AttrValue{Kind: ValueListener, Listener: l} }

// FuncValue wraps a function value.
func FuncValue(f *Func) AttrValue { return AttrValue{Kind: ValueFunc, Func: f} }

// Equal reports whether two values are equal. Listener and function values
// are equal only when they are the same handle.
func (v AttrValue) Equal(o AttrValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValuePlain:
		return plainEqual(v.Plain, o.Plain)
	case ValueStyle:
		if len(v.Styles) != len(o.Styles) {
			return false
		}
		for i := range v.Styles {
			if v.Styles[i] != o.Styles[i] {
				return false
			}
		}
		return true
	case ValueListener:
		return v.Listener == o.Listener
	case ValueFunc:
		return v.Func == o.Func
	}
	return false
}

// String renders the value the way it would appear in markup.
func (v AttrValue) String() string {
	switch v.Kind {
	case ValuePlain:
		return plainToString(v.Plain)
	case ValueStyle:
		parts := make([]string, 0, len(v.Styles))
		for _, s := range v.Styles {
			parts = append(parts, s.Property+": "+s.Value+";")
		}
		return strings.Join(parts, " ")
	case ValueListener:
		if v.Listener == nil {
			return ""
		}
		return "@" + v.Listener.Event
	case ValueFunc:
		if v.Func == nil {
			return ""
		}
		return "fn:" + v.Func.Name
	}
	return ""
}

// Attribute is a named, possibly multi-valued property of an element.
type Attribute struct {
	Namespace string
	Name      string
	Values    []AttrValue
}

// IsListener reports whether the attribute binds an event listener.
func (a Attribute) IsListener() bool {
	for _, v := range a.Values {
		if v.Kind == ValueListener {
			return true
		}
	}
	return false
}

// Listeners returns the listener values of the attribute.
func (a Attribute) Listeners() []*Listener {
	var out []*Listener
	for _, v := range a.Values {
		if v.Kind == ValueListener && v.Listener != nil {
			out = append(out, v.Listener)
		}
	}
	return out
}

// HasFunc reports whether any value is a function value.
func (a Attribute) HasFunc() bool {
	for _, v := range a.Values {
		if v.Kind == ValueFunc {
			return true
		}
	}
	return false
}

// Equal reports whether both attributes have the same identity and the same
// values in the same order.
func (a Attribute) Equal(b Attribute) bool {
	if a.Namespace != b.Namespace || a.Name != b.Name || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if !a.Values[i].Equal(b.Values[i]) {
			return false
		}
	}
	return true
}

// String joins the rendered values: plain values are space separated (class
// semantics), style values are concatenated declarations.
func (a Attribute) String() string {
	parts := make([]string, 0, len(a.Values))
	for _, v := range a.Values {
		if s := v.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// QualifiedName returns "ns:name" for namespaced attributes.
func (a Attribute) QualifiedName() string {
	if a.Namespace == "" {
		return a.Name
	}
	return a.Namespace + ":" + a.Name
}

// MergeAttributes folds declarations sharing a name into one attribute whose
// values are concatenated in declaration order. The result keeps the order of
// first occurrence. The input is not modified.
func MergeAttributes(attrs []Attribute) []Attribute {
	if len(attrs) < 2 {
		return attrs
	}
	merged := linkedhashmap.New()
	for _, a := range attrs {
		id := a.QualifiedName()
		if existing, ok := merged.Get(id); ok {
			prev := existing.(Attribute)
			values := make([]AttrValue, 0, len(prev.Values)+len(a.Values))
			values = append(values, prev.Values...)
			values = append(values, a.Values...)
			prev.Values = values
			merged.Put(id, prev)
			continue
		}
		merged.Put(id, a)
	}
	if merged.Size() == len(attrs) {
		return attrs
	}
	out := make([]Attribute, 0, merged.Size())
	for _, v := range merged.Values() {
		out = append(out, v.(Attribute))
	}
	return out
}

// listenerNames returns the set of attribute names bound to listeners.
func listenerNames(attrs []Attribute) map[string]struct{} {
	var names map[string]struct{}
	for _, a := range attrs {
		if !a.IsListener() {
			continue
		}
		if names == nil {
			names = make(map[string]struct{})
		}
		names[a.QualifiedName()] = struct{}{}
	}
	return names
}

// findAttr returns the attribute with the same identity as want.
func findAttr(attrs []Attribute, want Attribute) (Attribute, bool) {
	for _, a := range attrs {
		if a.Name == want.Name && a.Namespace == want.Namespace {
			return a, true
		}
	}
	return Attribute{}, false
}

// plainEqual compares two plain values.
func plainEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
		return false
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
		return false
	case int64:
		if bv, ok := b.(int64); ok {
			return av == bv
		}
		return false
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
		return false
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
		return false
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

// plainToString converts a plain value to its markup form.
func plainToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Attr creates a plain single-valued attribute.
func Attr(name string, value any) Attribute {
	return Attribute{Name: name, Values: []AttrValue{PlainValue(value)}}
}

// NSAttr creates a namespaced plain attribute.
func NSAttr(namespace, name string, value any) Attribute {
	return Attribute{Namespace: namespace, Name: name, Values: []AttrValue{PlainValue(value)}}
}

// Identity attributes

// ID sets the id attribute.
func ID(id string) Attribute { return Attr("id", id) }

// Class sets the class attribute with one value per class name.
func Class(classes ...string) Attribute {
	values := make([]AttrValue, 0, len(classes))
	for _, c := range classes {
		values = append(values, PlainValue(c))
	}
	return Attribute{Name: "class", Values: values}
}

// ClassIf sets a class only when condition is true.
func ClassIf(condition bool, class string) Attribute {
	if condition {
		return Class(class)
	}
	return Attribute{}
}

// Key creates a key attribute for reconciliation.
func Key(key any) Attribute {
	return Attr(KeyAttr, plainToString(key))
}

// StyleAttr sets a single style declaration.
func StyleAttr(property, value string) Attribute {
	return Attribute{Name: "style", Values: []AttrValue{StyleValue(Style{Property: property, Value: value})}}
}

// Styles sets several style declarations as one style value.
// Pairs are given as property, value, property, value, ...
func Styles(pairs ...string) Attribute {
	styles := make([]Style, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		styles = append(styles, Style{Property: pairs[i], Value: pairs[i+1]})
	}
	return Attribute{Name: "style", Values: []AttrValue{StyleValue(styles...)}}
}

// StyleFlag is a conditional style declaration for StylesFlag.
type StyleFlag struct {
	Property string
	Value    string
	On       bool
}

// StylesFlag keeps only the declarations whose flag is set.
func StylesFlag(flags ...StyleFlag) Attribute {
	styles := make([]Style, 0, len(flags))
	for _, f := range flags {
		if f.On {
			styles = append(styles, Style{Property: f.Property, Value: f.Value})
		}
	}
	return Attribute{Name: "style", Values: []AttrValue{StyleValue(styles...)}}
}

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attribute { return Attr("data-"+key, value) }

// Role sets the role attribute.
func Role(role string) Attribute { return Attr("role", role) }

// TabIndex sets the tabindex attribute.
func TabIndex(index int) Attribute { return Attr("tabindex", index) }

// TitleAttr sets the title attribute (named to avoid conflict with Title element).
func TitleAttr(title string) Attribute { return Attr("title", title) }

// Href sets the href attribute.
func Href(url string) Attribute { return Attr("href", url) }

// Src sets the src attribute.
func Src(url string) Attribute { return Attr("src", url) }

// Name sets the name attribute.
func Name(name string) Attribute { return Attr("name", name) }

// Value sets the value attribute.
func Value(value string) Attribute { return Attr("value", value) }

// Type sets the type attribute.
func Type(t string) Attribute { return Attr("type", t) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Attribute { return Attr("placeholder", text) }

// For sets the for attribute.
func For(id string) Attribute { return Attr("for", id) }

// Disabled sets the disabled attribute.
func Disabled() Attribute { return Attr("disabled", true) }

// Checked sets the checked attribute.
func Checked() Attribute { return Attr("checked", true) }

// Autofocus sets the autofocus attribute. A materialized element carrying it
// claims the focus slot.
func Autofocus() Attribute { return Attr("autofocus", true) }

// Prop binds an opaque function value under name.
func Prop(name string, fn any) Attribute {
	return Attribute{Name: name, Values: []AttrValue{FuncValue(&Func{Name: name, Fn: fn})}}
}

// HasAutofocus reports whether the element declares autofocus.
func HasAutofocus(n *Node) bool {
	if !n.IsElement() {
		return false
	}
	for _, a := range n.Attrs {
		if a.Name != "autofocus" || a.Namespace != "" {
			continue
		}
		for _, v := range a.Values {
			if v.Kind == ValuePlain && v.String() != "false" {
				return true
			}
		}
	}
	return false
}
