package jbsym

import (
	"testing"

	"jbasm/src/jbopcodes"
)

func TestAddUTF8Dedup(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_8)
	a, err := st.AddUTF8("hello")
	if err != nil {
		t.Fatal(err)
	}
	b, err := st.AddUTF8("hello")
	if err != nil {
		t.Fatal(err)
	}
	if a.Index != b.Index {
		t.Fatalf("duplicate UTF8 got distinct indices %d, %d", a.Index, b.Index)
	}
}

func TestAddClassRecursesUTF8(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_8)
	c, err := st.AddClass("java/lang/Object")
	if err != nil {
		t.Fatal(err)
	}
	if c.Index == 0 {
		t.Fatal("expected a nonzero constant pool index")
	}
	if st.ConstantCount() != 3 { // dummy index 0 + UTF8 + Class
		t.Fatalf("constant count = %d, want 3", st.ConstantCount())
	}
}

func TestLongOccupiesTwoIndices(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_8)
	first, err := st.AddLong(42)
	if err != nil {
		t.Fatal(err)
	}
	next, err := st.AddInteger(7)
	if err != nil {
		t.Fatal(err)
	}
	if next.Index != first.Index+2 {
		t.Fatalf("index after Long = %d, want %d", next.Index, first.Index+2)
	}
}

func TestMethodrefReentrance(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_8)
	m, err := st.AddMethodref("java/lang/Object", "<init>", "()V")
	if err != nil {
		t.Fatal(err)
	}
	if m.ClassIndex == 0 || m.NameAndTypeIndex == 0 {
		t.Fatal("expected methodref to carry resolved class/name-and-type indices")
	}
	// re-adding the identical methodref must not duplicate its dependencies
	again, err := st.AddMethodref("java/lang/Object", "<init>", "()V")
	if err != nil {
		t.Fatal(err)
	}
	if again.Index != m.Index {
		t.Fatalf("duplicate Methodref got distinct indices %d, %d", m.Index, again.Index)
	}
}

func TestInvokeDynamicRejectedBelowV1_7(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_6)
	bootstrap, err := st.AddMethodHandle(jbopcodes.RefInvokeStatic, 1)
	if err != nil {
		t.Fatal(err)
	}
	bm, err := st.AddBootstrapMethod(bootstrap.Index, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddInvokeDynamic(bm.Index, "call", "()V"); err == nil {
		t.Fatal("expected UnsupportedFeature for invokedynamic under v1.6")
	}
}

func TestBootstrapMethodDedup(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V11)
	handle, err := st.AddMethodHandle(jbopcodes.RefInvokeStatic, 5)
	if err != nil {
		t.Fatal(err)
	}
	bm1, err := st.AddBootstrapMethod(handle.Index, []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	bm2, err := st.AddBootstrapMethod(handle.Index, []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if bm1.Index != bm2.Index {
		t.Fatalf("identical bootstrap methods got distinct indices %d, %d", bm1.Index, bm2.Index)
	}
	bm3, err := st.AddBootstrapMethod(handle.Index, []int{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if bm3.Index == bm1.Index {
		t.Fatal("different bootstrap argument lists collided")
	}
}

func TestAddMergedTypeUsesCommonSuperClass(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_8)
	st.CommonSuperClass = func(a, b string) string {
		return "java/lang/Number"
	}
	i1 := st.AddType("java/lang/Integer")
	i2 := st.AddType("java/lang/Double")
	merged := st.AddMergedType(i1, i2)
	if st.GetType(merged).Name != "java/lang/Number" {
		t.Fatalf("merged type = %q, want java/lang/Number", st.GetType(merged).Name)
	}
	// memoized: merging the same pair again must not consult the callback
	st.CommonSuperClass = func(a, b string) string {
		t.Fatal("CommonSuperClass should not be invoked twice for the same pair")
		return ""
	}
	again := st.AddMergedType(i2, i1) // swapped order, same unordered pair
	if again != merged {
		t.Fatalf("unordered pair produced distinct merges: %d vs %d", merged, again)
	}
}

func TestAddMergedTypeIdenticalIndicesShortCircuit(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_8)
	idx := st.AddType("java/lang/String")
	if m := st.AddMergedType(idx, idx); m != idx {
		t.Fatalf("merging a type with itself = %d, want %d", m, idx)
	}
}

func TestConstantPoolExceeds65535Rejected(t *testing.T) {
	st := NewSymbolTable(jbopcodes.V1_8)
	st.nextIndex = 65536
	if _, err := st.AddUTF8("overflow"); err == nil {
		t.Fatal("expected ClassFormatTooLarge once past 65535 entries")
	}
}
