//go:build linux

package ime

import "testing"

func TestIBusTextSerialization(t *testing.T) {
	v := ibusText("héllo")

	tv, ok := v.Value().(ibusTextValue)
	if !ok {
		t.Fatalf("variant value is %T, want ibusTextValue", v.Value())
	}
	if tv.Name != "IBusText" {
		t.Errorf("Name = %q, want IBusText", tv.Name)
	}
	if tv.Text != "héllo" {
		t.Errorf("Text = %q, want héllo", tv.Text)
	}

	al, ok := tv.AttrList.Value().(ibusAttrList)
	if !ok {
		t.Fatalf("attr list value is %T, want ibusAttrList", tv.AttrList.Value())
	}
	if al.Name != "IBusAttrList" {
		t.Errorf("attr list Name = %q, want IBusAttrList", al.Name)
	}
	if len(al.Attributes) != 0 {
		t.Errorf("attributes should be empty, got %d", len(al.Attributes))
	}
}

func TestIBusTextEmpty(t *testing.T) {
	tv, ok := ibusText("").Value().(ibusTextValue)
	if !ok {
		t.Fatal("variant does not hold ibusTextValue")
	}
	if tv.Text != "" {
		t.Errorf("Text = %q, want empty", tv.Text)
	}
}
