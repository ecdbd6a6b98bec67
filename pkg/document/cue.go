package document

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

func parseCUE(data []byte) (tree, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(data)
	if err := val.Err(); err != nil {
		return tree{}, fmt.Errorf("document: compile cue: %w", err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return tree{}, fmt.Errorf("document: cue document must be concrete: %w", err)
	}
	return fromCUE(val)
}

func fromCUE(val cue.Value) (tree, error) {
	pos := val.Pos().String()
	switch val.Kind() {
	case cue.StructKind:
		iter, err := val.Fields()
		if err != nil {
			return tree{}, fmt.Errorf("document: %s: %w", pos, err)
		}
		out := tree{kind: treeMap, pos: pos}
		for iter.Next() {
			child, err := fromCUE(iter.Value())
			if err != nil {
				return tree{}, err
			}
			out.members = append(out.members, member{
				key:   cueLabel(iter.Selector()),
				pos:   iter.Value().Pos().String(),
				value: child,
			})
		}
		return out, nil
	case cue.ListKind:
		iter, err := val.List()
		if err != nil {
			return tree{}, fmt.Errorf("document: %s: %w", pos, err)
		}
		out := tree{kind: treeList, pos: pos}
		for iter.Next() {
			child, err := fromCUE(iter.Value())
			if err != nil {
				return tree{}, err
			}
			out.items = append(out.items, child)
		}
		return out, nil
	case cue.NullKind:
		return tree{kind: treeScalar, pos: pos}, nil
	case cue.BoolKind:
		b, err := val.Bool()
		return scalarOrErr(pos, b, err)
	case cue.IntKind:
		i, err := val.Int64()
		return scalarOrErr(pos, int(i), err)
	case cue.FloatKind, cue.NumberKind:
		f, err := val.Float64()
		return scalarOrErr(pos, f, err)
	case cue.StringKind:
		s, err := val.String()
		return scalarOrErr(pos, s, err)
	default:
		return tree{}, fmt.Errorf("document: %s: unsupported cue kind %s", pos, val.Kind())
	}
}

func scalarOrErr(pos string, v any, err error) (tree, error) {
	if err != nil {
		return tree{}, fmt.Errorf("document: %s: %w", pos, err)
	}
	return tree{kind: treeScalar, pos: pos, scalar: v}, nil
}

func cueLabel(sel cue.Selector) string {
	label := sel.String()
	if strings.HasPrefix(label, `"`) {
		if unquoted, err := strconv.Unquote(label); err == nil {
			return unquoted
		}
	}
	return label
}
