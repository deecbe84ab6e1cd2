package il

import (
	"fmt"
	"strings"
)

// PrettyPrint renders the module as human-readable textual IL. Emission
// order is fixed by declaration order (functions, then blocks, then
// instructions), so two lowerings of the same program produce identical
// text — the idempotence guarantee reduces to a string comparison of this
// output. The package has no parser for this text.
func (m *Module) PrettyPrint() string {
	var b strings.Builder
	for _, g := range m.Globals {
		b.WriteString(fmt.Sprintf("global %s: %s = zeroinit\n", g.Name, g.Type))
	}
	if len(m.Globals) > 0 {
		b.WriteString("\n")
	}
	for i, fn := range m.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fn.PrettyPrint())
	}
	return b.String()
}

// PrettyPrint renders a single function.
func (f *Function) PrettyPrint() string {
	var b strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	b.WriteString(fmt.Sprintf("fn %s(%s) -> %s {\n", f.Name, strings.Join(params, ", "), f.ReturnType))
	for _, blk := range f.Blocks {
		b.WriteString(blk.PrettyPrint())
	}
	b.WriteString("}\n")
	return b.String()
}

// PrettyPrint renders a single block.
func (bb *Block) PrettyPrint() string {
	var b strings.Builder
	if len(bb.Params) > 0 {
		params := make([]string, len(bb.Params))
		for i, p := range bb.Params {
			params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
		}
		b.WriteString(fmt.Sprintf("  %s(%s):\n", bb.Name, strings.Join(params, ", ")))
	} else {
		b.WriteString(fmt.Sprintf("  %s:\n", bb.Name))
	}
	for _, instr := range bb.Instrs {
		b.WriteString("    ")
		b.WriteString(instrString(instr))
		b.WriteString("\n")
	}
	if bb.Term != nil {
		b.WriteString("    ")
		b.WriteString(termString(bb.Term))
		b.WriteString("\n")
	}
	return b.String()
}

func valList(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func instrString(i Instr) string {
	switch v := i.(type) {
	case *Alloca:
		return fmt.Sprintf("%s = alloca %d", v.Result, v.Bytes)
	case *Load:
		return fmt.Sprintf("%s = load %s, %s", v.Result, v.Type, v.Ptr)
	case *Store:
		return fmt.Sprintf("store %s, %s, %s", v.Type, v.Ptr, v.Val)
	case *Binary:
		return fmt.Sprintf("%s = %s %s %s, %s", v.Result, v.Op, v.Type, v.LHS, v.RHS)
	case *Unary:
		return fmt.Sprintf("%s = %s %s %s", v.Result, v.Op, v.Type, v.X)
	case *GEP:
		return fmt.Sprintf("%s = gep %s, %d", v.Result, v.Base, v.Offset)
	case *Call:
		return fmt.Sprintf("call %s(%s)", v.Callee, valList(v.Args))
	case *CallRet:
		return fmt.Sprintf("%s = call %s(%s)", v.Result, v.Callee, valList(v.Args))
	case *CallIndirect:
		return fmt.Sprintf("%s = callind %s(%s)", v.Result, v.Target, valList(v.Args))
	case *ConstStr:
		return fmt.Sprintf("%s = conststr @%s", v.Result, v.Global)
	case *EhPush:
		return fmt.Sprintf("ehpush %s", v.Handler.Name)
	case *EhPop:
		return "ehpop"
	case *EhEntry:
		return "ehentry"
	case *Trap:
		return fmt.Sprintf("trap %q", v.Message)
	case *TrapFromErr:
		return fmt.Sprintf("trap.err %s", v.Err)
	default:
		return fmt.Sprintf("<unknown instr %T>", i)
	}
}

func termString(t Terminator) string {
	switch v := t.(type) {
	case *Br:
		return fmt.Sprintf("br %s", v.Target.Name)
	case *CBr:
		return fmt.Sprintf("cbr %s, %s, %s", v.Cond, v.Then.Name, v.Else.Name)
	case *Ret:
		return fmt.Sprintf("ret %s", v.Val)
	case *RetVoid:
		return "ret void"
	default:
		return fmt.Sprintf("<unknown term %T>", t)
	}
}
