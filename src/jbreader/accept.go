package jbreader

import (
	"jbasm/src/jbattr"
	"jbasm/src/jbvisit"
)

// Accept replays the parsed class through cv in the grammar order
// ClassVisitor documents. cv is almost always a *jbclass.ClassWriter
// paired via NewPairedSymbolTable + AdoptPool, which is what makes an
// unchanged method's Code attribute -- passed through here as a single
// opaque VisitAttribute call -- keep resolving against the right
// constant pool indices without this package ever decoding bytecode.
func (r *ClassReader) Accept(cv jbvisit.ClassVisitor) error {
	if err := cv.VisitHeader(r.version, r.access, r.thisName, r.signature, r.superName, r.interfaces); err != nil {
		return err
	}
	if r.sourceFile != "" || r.sourceDebug {
		if err := cv.VisitSource(r.sourceFile, r.sourceDebugExt); err != nil {
			return err
		}
	}
	if r.module != nil {
		mv, err := cv.VisitModule(r.module.name, r.module.access, r.module.version)
		if err != nil {
			return err
		}
		if mv != nil {
			if err := r.acceptModule(mv); err != nil {
				return err
			}
		}
	}
	if r.nestHost != "" {
		if err := cv.VisitNestHost(r.nestHost); err != nil {
			return err
		}
	}
	if r.hasOuter {
		if err := cv.VisitOuterClass(r.outerOwner, r.outerName, r.outerDesc); err != nil {
			return err
		}
	}
	if r.deprecated {
		if err := cv.VisitAttribute(&jbattr.Attribute{Name: "Deprecated"}); err != nil {
			return err
		}
	}
	for _, a := range r.attrs {
		if err := cv.VisitAttribute(&jbattr.Attribute{Name: a.name, Info: a.info}); err != nil {
			return err
		}
	}
	for _, name := range r.nestMembers {
		if err := cv.VisitNestMember(name); err != nil {
			return err
		}
	}
	for _, name := range r.permittedSubclasses {
		if err := cv.VisitPermittedSubclass(name); err != nil {
			return err
		}
	}
	for _, ic := range r.innerClasses {
		if err := cv.VisitInnerClass(ic.name, ic.outerName, ic.innerName, ic.access); err != nil {
			return err
		}
	}
	if r.isRecord && r.recordAttr != nil {
		// Record components are nested inside the Record attribute's own
		// encoding; this reader keeps that attribute opaque (see
		// parseClassAttributes) rather than decoding it into
		// VisitRecordComponent calls.
		if err := cv.VisitAttribute(&jbattr.Attribute{Name: r.recordAttr.name, Info: r.recordAttr.info}); err != nil {
			return err
		}
	}
	for _, f := range r.fields {
		if err := r.acceptField(cv, f); err != nil {
			return err
		}
	}
	for _, m := range r.methods {
		if err := r.acceptMethod(cv, m); err != nil {
			return err
		}
	}
	return cv.VisitEnd()
}

func (r *ClassReader) acceptModule(mv jbvisit.ModuleVisitor) error {
	mod := r.module
	if mod.mainClass != "" {
		if err := mv.VisitMainClass(mod.mainClass); err != nil {
			return err
		}
	}
	for _, pkg := range mod.packages {
		if err := mv.VisitPackage(pkg); err != nil {
			return err
		}
	}
	for _, req := range mod.requires {
		if err := mv.VisitRequire(req.module, req.access, req.version); err != nil {
			return err
		}
	}
	for _, exp := range mod.exports {
		if err := mv.VisitExport(exp.pkg, exp.access, exp.modules); err != nil {
			return err
		}
	}
	for _, op := range mod.opens {
		if err := mv.VisitOpen(op.pkg, op.access, op.modules); err != nil {
			return err
		}
	}
	for _, use := range mod.uses {
		if err := mv.VisitUse(use); err != nil {
			return err
		}
	}
	for _, prov := range mod.provides {
		if err := mv.VisitProvide(prov.service, prov.providers); err != nil {
			return err
		}
	}
	return mv.VisitEnd()
}

func (r *ClassReader) acceptField(cv jbvisit.ClassVisitor, f fieldInfo) error {
	fv, err := cv.VisitField(f.access, f.name, f.descriptor, f.signature, f.constantValue)
	if err != nil {
		return err
	}
	if fv == nil {
		return nil
	}
	for _, a := range f.attrs {
		if err := fv.VisitAttribute(&jbattr.Attribute{Name: a.name, Info: a.info}); err != nil {
			return err
		}
	}
	if f.deprecated {
		if err := fv.VisitAttribute(&jbattr.Attribute{Name: "Deprecated"}); err != nil {
			return err
		}
	}
	return fv.VisitEnd()
}

func (r *ClassReader) acceptMethod(cv jbvisit.ClassVisitor, m methodInfo) error {
	mv, err := cv.VisitMethod(m.access, m.name, m.descriptor, m.signature, m.exceptions)
	if err != nil {
		return err
	}
	if mv == nil {
		return nil
	}
	if m.hasParameters {
		for _, p := range m.parameters {
			if err := mv.VisitParameter(p.name, p.access); err != nil {
				return err
			}
		}
	}
	if m.deprecated {
		if err := mv.VisitAttribute(&jbattr.Attribute{Name: "Deprecated"}); err != nil {
			return err
		}
	}
	for _, a := range m.attrs {
		if err := mv.VisitAttribute(&jbattr.Attribute{Name: a.name, Info: a.info}); err != nil {
			return err
		}
	}
	if m.code != nil {
		// The copy-through path: an unchanged method's Code attribute is
		// replayed as a single opaque attribute instead of being
		// disassembled into instruction events, so its embedded
		// constant-pool indices reach jbclass.ClassWriter unmodified --
		// correct only when the writer adopted this reader's pool
		// verbatim via NewPairedSymbolTable/AdoptPool.
		if err := mv.VisitAttribute(&jbattr.Attribute{Name: m.code.name, Info: m.code.info}); err != nil {
			return err
		}
	}
	return mv.VisitEnd()
}
