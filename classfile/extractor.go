// Package classfile parses one compiled Java class artifact's constant
// pool and type descriptors, yielding the fully qualified class name it
// defines and the set of fully qualified class names it references.
// Only symbolic references are read; method bodies are never decoded.
package classfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/clgraph/clgraph/name"
)

// Magic is the class file format magic number.
const Magic = 0xCAFEBABE

const (
	accPublic = 0x0001
	accStatic = 0x0008
)

const (
	tagUTF8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// BadClassFileError reports that a class artifact's bytes could not be
// parsed as a well-formed class file (bad magic, truncated constant
// pool, or a malformed descriptor).
type BadClassFileError struct {
	Reason string
	Err    error
}

func (e *BadClassFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad class file: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bad class file: %s", e.Reason)
}

func (e *BadClassFileError) Unwrap() error { return e.Err }

func badClassFile(reason string, err error) error {
	return &BadClassFileError{Reason: reason, Err: err}
}

// ClassInfo is the result of extracting references from one class artifact.
type ClassInfo struct {
	// Name is the fully qualified name of the class defined by this artifact.
	Name name.Name
	// References is the deduplicated set of fully qualified class names
	// referenced from the constant pool and from field/method descriptors,
	// excluding Name itself and excluding primitive types and void.
	References map[name.Name]struct{}
	// HasMain reports whether this class declares a
	// `public static void main(String[])` method.
	HasMain bool
	// Annotations holds the fully qualified names of the annotation types
	// applied directly to this class (from RuntimeVisible/InvisibleAnnotations).
	Annotations map[name.Name]struct{}
}

// ReferenceList returns the References set as a slice sorted in
// ascending name order, for callers that want a stable order.
func (c *ClassInfo) ReferenceList() []name.Name {
	out := make([]name.Name, 0, len(c.References))
	for n := range c.References {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type constantPool struct {
	// classNameIndex[i] is the utf8 index for CONSTANT_Class entry i.
	classNameIndex map[int]int
	utf8           map[int]string
}

func (p *constantPool) className(classIndex int) (string, bool) {
	nameIdx, ok := p.classNameIndex[classIndex]
	if !ok {
		return "", false
	}
	s, ok := p.utf8[nameIdx]
	return s, ok
}

// Extract reads one class artifact from r and returns the references it
// carries. It never reads more than the class file structure requires:
// method/field bodies (Code attributes) are skipped using their declared
// attribute_length, never decoded.
func Extract(r io.Reader) (*ClassInfo, error) {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, binary.BigEndian, &magic); err != nil {
		return nil, badClassFile("truncated header", err)
	}
	if magic != Magic {
		return nil, badClassFile("bad magic", nil)
	}

	if err := skipN(br, 4); err != nil { // minor + major version
		return nil, badClassFile("truncated version", err)
	}

	pool, err := readConstantPool(br)
	if err != nil {
		return nil, err
	}

	if err := skipN(br, 2); err != nil { // access_flags
		return nil, badClassFile("truncated access flags", err)
	}

	thisClass, err := readU2(br)
	if err != nil {
		return nil, badClassFile("truncated this_class", err)
	}

	superClass, err := readU2(br)
	if err != nil {
		return nil, badClassFile("truncated super_class", err)
	}

	interfacesCount, err := readU2(br)
	if err != nil {
		return nil, badClassFile("truncated interfaces_count", err)
	}
	interfaceIndexes := make([]uint16, interfacesCount)
	for i := range interfaceIndexes {
		idx, err := readU2(br)
		if err != nil {
			return nil, badClassFile("truncated interfaces", err)
		}
		interfaceIndexes[i] = idx
	}

	refs := map[name.Name]struct{}{}
	hasMain := false

	// Every CONSTANT_Class entry in the pool is a candidate reference:
	// most "uses" arcs come from Methodref/Fieldref/InterfaceMethodref
	// targets and new/checkcast/instanceof operands, which surface here
	// as plain CONSTANT_Class entries unrelated to super_class,
	// interfaces, or any descriptor.
	for classIndex := range pool.classNameIndex {
		if n, ok := resolveClassConstantName(pool, uint16(classIndex)); ok {
			refs[n] = struct{}{}
		}
	}

	if superClass != 0 {
		if n, ok := resolveClassConstantName(pool, superClass); ok {
			refs[n] = struct{}{}
		}
	}
	for _, idx := range interfaceIndexes {
		if n, ok := resolveClassConstantName(pool, idx); ok {
			refs[n] = struct{}{}
		}
	}

	if err := readMembers(br, pool, refs, &hasMain); err != nil { // fields
		return nil, err
	}
	if err := readMembers(br, pool, refs, &hasMain); err != nil { // methods
		return nil, err
	}

	annotations := map[name.Name]struct{}{}
	if err := readAttributes(br, pool, refs, annotations); err != nil { // class attributes
		return nil, err
	}

	definingName, ok := resolveClassConstantName(pool, thisClass)
	if !ok {
		return nil, badClassFile("unresolved this_class", nil)
	}
	delete(refs, definingName)

	return &ClassInfo{
		Name:        definingName,
		References:  refs,
		HasMain:     hasMain,
		Annotations: annotations,
	}, nil
}

func readConstantPool(br *bufio.Reader) (*constantPool, error) {
	count, err := readU2(br)
	if err != nil {
		return nil, badClassFile("truncated constant_pool_count", err)
	}
	pool := &constantPool{
		classNameIndex: map[int]int{},
		utf8:           map[int]string{},
	}
	for i := 1; i < int(count); i++ {
		tag, err := readU1(br)
		if err != nil {
			return nil, badClassFile("truncated constant pool entry", err)
		}
		switch tag {
		case tagClass:
			idx, err := readU2(br)
			if err != nil {
				return nil, badClassFile("truncated CONSTANT_Class", err)
			}
			pool.classNameIndex[i] = int(idx)
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			if err := skipN(br, 4); err != nil {
				return nil, badClassFile("truncated constant pool entry", err)
			}
		case tagString, tagMethodType, tagModule, tagPackage:
			if err := skipN(br, 2); err != nil {
				return nil, badClassFile("truncated constant pool entry", err)
			}
		case tagInteger, tagFloat:
			if err := skipN(br, 4); err != nil {
				return nil, badClassFile("truncated constant pool entry", err)
			}
		case tagLong, tagDouble:
			if err := skipN(br, 8); err != nil {
				return nil, badClassFile("truncated constant pool entry", err)
			}
			i++ // long/double occupy two constant pool slots
		case tagMethodHandle:
			if err := skipN(br, 3); err != nil {
				return nil, badClassFile("truncated CONSTANT_MethodHandle", err)
			}
		case tagUTF8:
			s, err := readUTF8(br)
			if err != nil {
				return nil, badClassFile("truncated CONSTANT_Utf8", err)
			}
			pool.utf8[i] = s
		default:
			return nil, badClassFile(fmt.Sprintf("unknown constant pool tag %d", tag), nil)
		}
	}
	return pool, nil
}

// readMembers reads a fields_count/fields[] or methods_count/methods[] block.
func readMembers(br *bufio.Reader, pool *constantPool, refs map[name.Name]struct{}, hasMain *bool) error {
	count, err := readU2(br)
	if err != nil {
		return badClassFile("truncated member count", err)
	}
	for i := 0; i < int(count); i++ {
		accessFlags, err := readU2(br)
		if err != nil {
			return badClassFile("truncated member access flags", err)
		}
		nameIdx, err := readU2(br)
		if err != nil {
			return badClassFile("truncated member name_index", err)
		}
		descIdx, err := readU2(br)
		if err != nil {
			return badClassFile("truncated member descriptor_index", err)
		}
		descriptor := pool.utf8[int(descIdx)]
		for _, ref := range extractDescriptorReferences(descriptor) {
			refs[ref] = struct{}{}
		}

		memberName := pool.utf8[int(nameIdx)]
		if memberName == "main" && descriptor == "([Ljava/lang/String;)V" &&
			accessFlags&accPublic != 0 && accessFlags&accStatic != 0 {
			*hasMain = true
		}

		if err := readAttributes(br, pool, refs, nil); err != nil {
			return err
		}
	}
	return nil
}

// readAttributes reads an attributes_count/attributes[] block, skipping
// every attribute body except RuntimeVisible/InvisibleAnnotations, which
// is scanned (when annotations is non-nil) for applied annotation types.
func readAttributes(br *bufio.Reader, pool *constantPool, refs map[name.Name]struct{}, annotations map[name.Name]struct{}) error {
	count, err := readU2(br)
	if err != nil {
		return badClassFile("truncated attributes_count", err)
	}
	for i := 0; i < int(count); i++ {
		nameIdx, err := readU2(br)
		if err != nil {
			return badClassFile("truncated attribute_name_index", err)
		}
		length, err := readU4(br)
		if err != nil {
			return badClassFile("truncated attribute_length", err)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(br, body); err != nil {
			return badClassFile("truncated attribute body", err)
		}
		attrName := pool.utf8[int(nameIdx)]
		if annotations != nil && (attrName == "RuntimeVisibleAnnotations" || attrName == "RuntimeInvisibleAnnotations") {
			names, err := parseAnnotationTypeNames(body, pool)
			if err != nil {
				return badClassFile("malformed annotations attribute", err)
			}
			for _, n := range names {
				annotations[n] = struct{}{}
			}
		}
	}
	return nil
}

// parseAnnotationTypeNames reads only the annotation type descriptors out
// of a RuntimeVisible/InvisibleAnnotations attribute body; element-value
// pairs are skipped structurally without being interpreted.
func parseAnnotationTypeNames(body []byte, pool *constantPool) ([]name.Name, error) {
	r := bytes.NewReader(body)
	numAnnotations, err := readU2(r)
	if err != nil {
		return nil, err
	}
	var out []name.Name
	for i := 0; i < int(numAnnotations); i++ {
		typeIdx, err := readU2(r)
		if err != nil {
			return nil, err
		}
		if descriptor, ok := pool.utf8[int(typeIdx)]; ok {
			out = append(out, extractDescriptorReferences(descriptor)...)
		}
		if err := skipElementValuePairs(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func skipElementValuePairs(r io.Reader) error {
	numPairs, err := readU2(r)
	if err != nil {
		return err
	}
	for i := 0; i < int(numPairs); i++ {
		if _, err := readU2(r); err != nil { // element_name_index
			return err
		}
		if err := skipElementValue(r); err != nil {
			return err
		}
	}
	return nil
}

func skipElementValue(r io.Reader) error {
	tag, err := readU1(r)
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		if _, err := readU2(r); err != nil {
			return err
		}
	case 'e':
		if err := skipN(r, 4); err != nil {
			return err
		}
	case '@':
		if _, err := readU2(r); err != nil { // nested annotation type_index
			return err
		}
		if err := skipElementValuePairs(r); err != nil {
			return err
		}
	case '[':
		count, err := readU2(r)
		if err != nil {
			return err
		}
		for i := 0; i < int(count); i++ {
			if err := skipElementValue(r); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown element_value tag %q", tag)
	}
	return nil
}

// resolveClassConstantName resolves a CONSTANT_Class entry's raw internal
// name through the constant pool and converts it to a fully qualified Name.
func resolveClassConstantName(pool *constantPool, classIndex uint16) (name.Name, bool) {
	raw, ok := pool.className(int(classIndex))
	if !ok {
		return "", false
	}
	return classConstantToName(raw)
}

// classConstantToName resolves a raw
// CONSTANT_Class name: either an internal object form "a/b/C", or an
// array descriptor starting with "[".
func classConstantToName(raw string) (name.Name, bool) {
	if strings.HasPrefix(raw, "[") {
		return arrayElementReference(raw)
	}
	return name.Internal(raw), true
}

// arrayElementReference strips leading "[" dimensions from an array
// descriptor and extracts the referenced class name when the element
// type is an object type ("Lname;"); primitive element types produce no
// reference.
func arrayElementReference(descriptor string) (name.Name, bool) {
	elem := strings.TrimLeft(descriptor, "[")
	if strings.HasPrefix(elem, "L") && strings.HasSuffix(elem, ";") {
		internal := elem[1 : len(elem)-1]
		return name.Internal(internal), true
	}
	return "", false
}

// extractDescriptorReferences scans a field or method descriptor
// ("(args)ret" or a single type) for every "Lname;" substring and
// returns the referenced class names.
func extractDescriptorReferences(descriptor string) []name.Name {
	var out []name.Name
	i := 0
	for i < len(descriptor) {
		if descriptor[i] == 'L' {
			end := strings.IndexByte(descriptor[i:], ';')
			if end < 0 {
				break
			}
			internal := descriptor[i+1 : i+end]
			out = append(out, name.Internal(internal))
			i += end + 1
			continue
		}
		i++
	}
	return out
}
