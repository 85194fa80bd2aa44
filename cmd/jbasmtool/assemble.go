package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jbasm/src/jbbytes"
	"jbasm/src/jbclass"
	"jbasm/src/jbmethod"
	"jbasm/src/jbvisit"
)

func newAssembleCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "assemble <description.json>",
		Short: "Assemble a class file from a JSON description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output .class path (defaults to <this>.class)")
	return cmd
}

// classSpec is the JSON shape assemble accepts. It covers the subset of
// ClassVisitor events an illustrative tool needs: a header, plain fields,
// and methods whose bodies are a flat instruction list with no jumps or
// switches -- control flow needs a richer source language than a flat
// JSON array can express cleanly, so it stays out of this tool's scope.
type classSpec struct {
	Version    string       `json:"version"`
	Access     []string     `json:"access"`
	This       string       `json:"this"`
	Super      string       `json:"super"`
	Interfaces []string     `json:"interfaces"`
	Source     string       `json:"source"`
	Fields     []fieldSpec  `json:"fields"`
	Methods    []methodSpec `json:"methods"`
}

type fieldSpec struct {
	Access        []string `json:"access"`
	Name          string   `json:"name"`
	Descriptor    string   `json:"descriptor"`
	ConstantValue any      `json:"constantValue"`
}

type methodSpec struct {
	Access     []string   `json:"access"`
	Name       string     `json:"name"`
	Descriptor string     `json:"descriptor"`
	Exceptions []string   `json:"exceptions"`
	Code       []insnSpec `json:"code"`
}

type insnSpec struct {
	Op         string `json:"op"`
	Var        int    `json:"var,omitempty"`
	Operand    int    `json:"operand,omitempty"`
	Type       string `json:"type,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Name       string `json:"name,omitempty"`
	Descriptor string `json:"descriptor,omitempty"`
	Interface  bool   `json:"interface,omitempty"`
	Const      any    `json:"const,omitempty"`
	Incr       int    `json:"incr,omitempty"`
}

func runAssemble(specPath, outPath string) error {
	raw, err := os.ReadFile(specPath)
	if err != nil {
		return err
	}
	var spec classSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return fmt.Errorf("parsing %s: %w", specPath, err)
	}

	version, ok := classVersions[spec.Version]
	if !ok {
		return fmt.Errorf("unknown class version %q", spec.Version)
	}

	cw := jbclass.NewClassWriter(jbclass.Options{ComputeMode: jbmethod.MaxStackAndLocal})
	if err := cw.VisitHeader(version, flagsOf(spec.Access), spec.This, "", spec.Super, spec.Interfaces); err != nil {
		return err
	}
	if spec.Source != "" {
		if err := cw.VisitSource(spec.Source, ""); err != nil {
			return err
		}
	}
	for _, f := range spec.Fields {
		fv, err := cw.VisitField(flagsOf(f.Access), f.Name, f.Descriptor, "", f.ConstantValue)
		if err != nil {
			return err
		}
		if err := fv.VisitEnd(); err != nil {
			return err
		}
	}
	for _, m := range spec.Methods {
		if err := assembleMethod(cw, m); err != nil {
			return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
		}
	}
	if err := cw.VisitEnd(); err != nil {
		return err
	}

	out := jbbytes.NewByteVector(0)
	if err := cw.Put(out); err != nil {
		return err
	}

	if outPath == "" {
		simple := spec.This
		if i := strings.LastIndexByte(simple, '/'); i >= 0 {
			simple = simple[i+1:]
		}
		outPath = simple + ".class"
	}
	return os.WriteFile(outPath, out.Bytes(), 0o644)
}

func assembleMethod(cw *jbclass.ClassWriter, m methodSpec) error {
	access := flagsOf(m.Access)
	mv, err := cw.VisitMethod(access, m.Name, m.Descriptor, "", m.Exceptions)
	if err != nil {
		return err
	}
	if len(m.Code) == 0 {
		// abstract or native: no Code attribute.
		return mv.VisitEnd()
	}
	if err := mv.VisitCode(); err != nil {
		return err
	}
	for _, insn := range m.Code {
		if err := assembleInsn(mv, insn); err != nil {
			return err
		}
	}
	// MaxStackAndLocal derives max_stack/max_locals itself; the values
	// here are placeholders VisitMaxs ignores in that compute mode.
	if err := mv.VisitMaxs(0, 0); err != nil {
		return err
	}
	return mv.VisitEnd()
}

func assembleInsn(mv jbvisit.MethodVisitor, insn insnSpec) error {
	switch cat, opcode := classify(insn.Op); cat {
	case catInsn:
		return mv.VisitInsn(opcode)
	case catVar:
		return mv.VisitVarInsn(opcode, insn.Var)
	case catInt:
		return mv.VisitIntInsn(opcode, insn.Operand)
	case catType:
		return mv.VisitTypeInsn(opcode, insn.Type)
	case catField:
		return mv.VisitFieldInsn(opcode, insn.Owner, insn.Name, insn.Descriptor)
	case catMethod:
		return mv.VisitMethodInsn(opcode, insn.Owner, insn.Name, insn.Descriptor, insn.Interface)
	case catLdc:
		return mv.VisitLdcInsn(normalizeConst(insn.Const))
	case catIinc:
		return mv.VisitIincInsn(insn.Var, insn.Incr)
	default:
		return fmt.Errorf("unsupported or unknown opcode %q", insn.Op)
	}
}

// normalizeConst maps JSON's float64-for-everything numeric decoding
// back onto the concrete Go types VisitLdcInsn's ldc.go switches on.
func normalizeConst(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if f == float64(int32(f)) {
		return int32(f)
	}
	return f
}
