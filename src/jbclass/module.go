package jbclass

import (
	"jbasm/src/jbbytes"
	"jbasm/src/jbsym"
	"jbasm/src/jbvisit"
	"jbasm/src/jerrors"
)

type moduleRequire struct {
	index   int
	access  int
	version string
}

type moduleExportOrOpen struct {
	index   int
	access  int
	targets []int
}

type moduleProvide struct {
	index     int
	providers []int
}

// moduleWriter buffers a module-info declaration's sub-events (JVMS
// 4.7.25), sharing the rest of the class's SymbolTable so every module
// name it touches interns alongside ordinary constants.
type moduleWriter struct {
	table *jbsym.SymbolTable

	nameIndex int
	access    int
	version   string

	mainClassIndex int
	packageIndices []int

	requires []moduleRequire
	exports  []moduleExportOrOpen
	opens    []moduleExportOrOpen
	uses     []int
	provides []moduleProvide

	ended bool
}

var _ jbvisit.ModuleVisitor = (*moduleWriter)(nil)

func newModuleWriter(table *jbsym.SymbolTable, nameIndex, access int, version string) *moduleWriter {
	return &moduleWriter{table: table, nameIndex: nameIndex, access: access, version: version}
}

func (mw *moduleWriter) requireOpen() error {
	if mw.ended {
		return jerrors.New(jerrors.InvalidState, "module visit event after visit_end")
	}
	return nil
}

func (mw *moduleWriter) VisitMainClass(mainClass string) error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	sym, err := mw.table.AddClass(mainClass)
	if err != nil {
		return err
	}
	mw.mainClassIndex = sym.Index
	return nil
}

func (mw *moduleWriter) VisitPackage(packaze string) error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	sym, err := mw.table.AddPackage(packaze)
	if err != nil {
		return err
	}
	mw.packageIndices = append(mw.packageIndices, sym.Index)
	return nil
}

func (mw *moduleWriter) VisitRequire(module string, access int, version string) error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	sym, err := mw.table.AddModule(module)
	if err != nil {
		return err
	}
	mw.requires = append(mw.requires, moduleRequire{index: sym.Index, access: access, version: version})
	return nil
}

func (mw *moduleWriter) visitExportOrOpen(dst *[]moduleExportOrOpen, packaze string, access int, modules []string) error {
	sym, err := mw.table.AddPackage(packaze)
	if err != nil {
		return err
	}
	entry := moduleExportOrOpen{index: sym.Index, access: access}
	for _, m := range modules {
		modSym, err := mw.table.AddModule(m)
		if err != nil {
			return err
		}
		entry.targets = append(entry.targets, modSym.Index)
	}
	*dst = append(*dst, entry)
	return nil
}

func (mw *moduleWriter) VisitExport(packaze string, access int, modules []string) error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	return mw.visitExportOrOpen(&mw.exports, packaze, access, modules)
}

func (mw *moduleWriter) VisitOpen(packaze string, access int, modules []string) error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	return mw.visitExportOrOpen(&mw.opens, packaze, access, modules)
}

func (mw *moduleWriter) VisitUse(service string) error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	sym, err := mw.table.AddClass(service)
	if err != nil {
		return err
	}
	mw.uses = append(mw.uses, sym.Index)
	return nil
}

func (mw *moduleWriter) VisitProvide(service string, providers []string) error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	sym, err := mw.table.AddClass(service)
	if err != nil {
		return err
	}
	p := moduleProvide{index: sym.Index}
	for _, provider := range providers {
		provSym, err := mw.table.AddClass(provider)
		if err != nil {
			return err
		}
		p.providers = append(p.providers, provSym.Index)
	}
	mw.provides = append(mw.provides, p)
	return nil
}

func (mw *moduleWriter) VisitEnd() error {
	if err := mw.requireOpen(); err != nil {
		return err
	}
	mw.ended = true
	return nil
}

// put serializes the Module attribute body (JVMS 4.7.25), everything
// after attribute_length.
func (mw *moduleWriter) put(out *jbbytes.ByteVector) {
	out.PutU16(mw.nameIndex)
	out.PutU16(mw.access)
	versionIndex := 0
	if mw.version != "" {
		if sym, err := mw.table.AddUTF8(mw.version); err == nil {
			versionIndex = sym.Index
		}
	}
	out.PutU16(versionIndex)

	out.PutU16(len(mw.requires))
	for _, r := range mw.requires {
		out.PutU16(r.index)
		out.PutU16(r.access)
		verIdx := 0
		if r.version != "" {
			if sym, err := mw.table.AddUTF8(r.version); err == nil {
				verIdx = sym.Index
			}
		}
		out.PutU16(verIdx)
	}

	putExportsOrOpens(out, mw.exports)
	putExportsOrOpens(out, mw.opens)

	out.PutU16(len(mw.uses))
	for _, u := range mw.uses {
		out.PutU16(u)
	}

	out.PutU16(len(mw.provides))
	for _, p := range mw.provides {
		out.PutU16(p.index)
		out.PutU16(len(p.providers))
		for _, pr := range p.providers {
			out.PutU16(pr)
		}
	}
}

func putExportsOrOpens(out *jbbytes.ByteVector, entries []moduleExportOrOpen) {
	out.PutU16(len(entries))
	for _, e := range entries {
		out.PutU16(e.index)
		out.PutU16(e.access)
		out.PutU16(len(e.targets))
		for _, t := range e.targets {
			out.PutU16(t)
		}
	}
}
