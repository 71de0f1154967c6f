package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/clgraph/clgraph/internal/testfixture"
	"github.com/clgraph/clgraph/name"
)

// classBuilder assembles a minimal, well-formed class file byte-for-byte
// so extractor tests don't depend on a real compiler or fixture binaries.
type classBuilder struct {
	buf  bytes.Buffer
	pool [][]byte // serialized constant pool entries, index 1-based
}

func newClassBuilder() *classBuilder { return &classBuilder{} }

func (c *classBuilder) addUTF8(s string) uint16 {
	var b bytes.Buffer
	b.WriteByte(tagUTF8)
	binary.Write(&b, binary.BigEndian, uint16(len(s)))
	b.WriteString(s)
	c.pool = append(c.pool, b.Bytes())
	return uint16(len(c.pool))
}

func (c *classBuilder) addClass(nameIdx uint16) uint16 {
	var b bytes.Buffer
	b.WriteByte(tagClass)
	binary.Write(&b, binary.BigEndian, nameIdx)
	c.pool = append(c.pool, b.Bytes())
	return uint16(len(c.pool))
}

func u16(w *bytes.Buffer, v uint16) { binary.Write(w, binary.BigEndian, v) }
func u32(w *bytes.Buffer, v uint32) { binary.Write(w, binary.BigEndian, v) }

// member describes one field or method entry for classBuilder.build.
type member struct {
	nameIdx, descIdx uint16
	accessFlags      uint16
}

// build assembles the full class file with the given fields and methods.
func (c *classBuilder) build(thisClass, superClass uint16, interfaces []uint16, fields, methods []member) []byte {
	var out bytes.Buffer
	u32(&out, Magic)
	u16(&out, 0) // minor
	u16(&out, 52)

	u16(&out, uint16(len(c.pool)+1))
	for _, entry := range c.pool {
		out.Write(entry)
	}

	u16(&out, 0x0021) // access_flags: public super
	u16(&out, thisClass)
	u16(&out, superClass)
	u16(&out, uint16(len(interfaces)))
	for _, i := range interfaces {
		u16(&out, i)
	}

	writeMembers := func(members []member) {
		u16(&out, uint16(len(members)))
		for _, m := range members {
			u16(&out, m.accessFlags)
			u16(&out, m.nameIdx)
			u16(&out, m.descIdx)
			u16(&out, 0) // attributes_count
		}
	}
	writeMembers(fields)
	writeMembers(methods)

	// class attributes
	u16(&out, 0)

	return out.Bytes()
}

func TestExtract_ScenarioFromSpec(t *testing.T) {
	c := newClassBuilder()
	thisUTF8 := c.addUTF8("P/Q")
	thisClass := c.addClass(thisUTF8)

	superUTF8 := c.addUTF8("java/lang/Object")
	superClass := c.addClass(superUTF8)

	interfaceUTF8 := c.addUTF8("P/R")
	interfaceClass := c.addClass(interfaceUTF8)

	// field descriptor references an array-of-object type: [LP/S;
	fieldDescUTF8 := c.addUTF8("[LP/S;")
	// method descriptor references object types in both argument and return: (LP/T;)LP/U;
	methodNameUTF8 := c.addUTF8("go")
	methodDescUTF8 := c.addUTF8("(LP/T;)LP/U;")

	data := c.build(thisClass, superClass, []uint16{interfaceClass},
		[]member{{nameIdx: thisUTF8, descIdx: fieldDescUTF8}},
		[]member{{nameIdx: methodNameUTF8, descIdx: methodDescUTF8}})

	info, err := Extract(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if info.Name != "P.Q" {
		t.Fatalf("Name = %q, want P.Q", info.Name)
	}
	want := map[name.Name]bool{
		"java.lang.Object": true,
		"P.R":              true,
		"P.S":              true,
		"P.T":              true,
		"P.U":              true,
	}
	if len(info.References) != len(want) {
		t.Fatalf("References = %v, want %v", info.References, want)
	}
	for n := range want {
		if _, ok := info.References[name.Name(n)]; !ok {
			t.Errorf("missing reference %q in %v", n, info.References)
		}
	}
	if _, ok := info.References["P.Q"]; ok {
		t.Errorf("self reference P.Q must be removed")
	}
}

func TestExtract_BadMagic(t *testing.T) {
	_, err := Extract(bytes.NewReader([]byte{0, 0, 0, 0}))
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	var bce *BadClassFileError
	if !errorsAs(err, &bce) {
		t.Fatalf("expected BadClassFileError, got %T: %v", err, err)
	}
}

func TestExtract_SelfOnlyReferenceProducesNoArcs(t *testing.T) {
	c := newClassBuilder()
	thisUTF8 := c.addUTF8("P/Q")
	thisClass := c.addClass(thisUTF8)
	data := c.build(thisClass, 0, nil, nil, nil)
	info, err := Extract(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(info.References) != 0 {
		t.Errorf("expected no references, got %v", info.References)
	}
}

func errorsAs(err error, target **BadClassFileError) bool {
	bce, ok := err.(*BadClassFileError)
	if !ok {
		return false
	}
	*target = bce
	return true
}

// TestExtract_GoldenFixture formats a small two-class archive, built in
// the test, as a txtar fixture (hex-encoded bytes, so both classes
// survive a plain-text round trip) and extracts each file after parsing
// it back.
func TestExtract_GoldenFixture(t *testing.T) {
	leaf := newClassBuilder()
	leafThis := leaf.addUTF8("P/R")
	leafThisClass := leaf.addClass(leafThis)
	leafData := leaf.build(leafThisClass, 0, nil, nil, nil)

	root := newClassBuilder()
	rootThis := root.addUTF8("P/Q")
	rootThisClass := root.addClass(rootThis)
	rootData := root.build(rootThisClass, 0, nil,
		[]member{{nameIdx: rootThis, descIdx: root.addUTF8("LP/R;")}}, nil)

	text := testfixture.Format("two-class golden fixture", map[string][]byte{
		"P/Q.class": rootData,
		"P/R.class": leafData,
	})

	archive, err := testfixture.Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	qInfo, err := Extract(bytes.NewReader(archive.Files["P/Q.class"]))
	if err != nil {
		t.Fatalf("Extract P/Q: %v", err)
	}
	if qInfo.Name != "P.Q" {
		t.Fatalf("Name = %q, want P.Q", qInfo.Name)
	}
	if _, ok := qInfo.References["P.R"]; !ok {
		t.Errorf("expected P.Q to reference P.R, got %v", qInfo.References)
	}

	rInfo, err := Extract(bytes.NewReader(archive.Files["P/R.class"]))
	if err != nil {
		t.Fatalf("Extract P/R: %v", err)
	}
	if rInfo.Name != "P.R" {
		t.Fatalf("Name = %q, want P.R", rInfo.Name)
	}
}

func TestClassConstantToName(t *testing.T) {
	if n, ok := classConstantToName("a/b/C"); !ok || n != "a.b.C" {
		t.Fatalf("got %q, %v", n, ok)
	}
	if n, ok := classConstantToName("[LP/S;"); !ok || n != "P.S" {
		t.Fatalf("got %q, %v", n, ok)
	}
	if _, ok := classConstantToName("[I"); ok {
		t.Fatalf("expected no reference for primitive array")
	}
}

func TestExtractDescriptorReferences(t *testing.T) {
	refs := extractDescriptorReferences("(LP/T;I[LP/S;)LP/U;")
	want := []name.Name{"P.T", "P.S", "P.U"}
	if len(refs) != len(want) {
		t.Fatalf("got %v, want %v", refs, want)
	}
	for i, w := range want {
		if refs[i] != w {
			t.Errorf("refs[%d] = %q, want %q", i, refs[i], w)
		}
	}
}
