//go:build linux

package ime

import "github.com/godbus/dbus/v5"

// IBus serializes rich text as a variant-wrapped struct tagged with a type
// name. Attributes (underline, color) are unused here; the attribute list
// is always empty.
type ibusAttrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attributes  []dbus.Variant
}

type ibusTextValue struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	AttrList    dbus.Variant
}

// ibusText wraps a plain string in the IBusText serialization expected by
// the CommitText/UpdatePreeditText/UpdateAuxiliaryText signals.
func ibusText(text string) dbus.Variant {
	attrs := dbus.MakeVariant(ibusAttrList{
		Name:        "IBusAttrList",
		Attachments: map[string]dbus.Variant{},
		Attributes:  []dbus.Variant{},
	})
	return dbus.MakeVariant(ibusTextValue{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        text,
		AttrList:    attrs,
	})
}
