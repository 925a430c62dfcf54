// Package signal composes named strategies into the four boolean signal
// columns a backtest consumes. A strategy is a boolean expression tree over a
// fixed vocabulary of primitive predicates; trees are plain tagged values,
// evaluated by a small interpreter, so there is no string-keyed dispatch
// through function tables.
package signal

import (
	"github.com/coinlab/strategist/pkg/errors"
)

// NodeOp tags the variant of an expression node.
type NodeOp string

const (
	OpPrimitive NodeOp = "primitive"
	OpAnd       NodeOp = "and"
	OpOr        NodeOp = "or"
	OpNot       NodeOp = "not"
)

// Node is one node of a boolean expression tree. Primitive nodes name a
// predicate; And/Or nodes combine children; Not negates its single child.
type Node struct {
	Op        NodeOp    `yaml:"op" json:"op"`
	Primitive Primitive `yaml:"primitive,omitempty" json:"primitive,omitempty"`
	Children  []Node    `yaml:"children,omitempty" json:"children,omitempty"`
}

// Pred builds a primitive leaf node.
func Pred(p Primitive) Node {
	return Node{Op: OpPrimitive, Primitive: p}
}

// And builds a conjunction node.
func And(children ...Node) Node {
	return Node{Op: OpAnd, Children: children}
}

// Or builds a disjunction node.
func Or(children ...Node) Node {
	return Node{Op: OpOr, Children: children}
}

// Not builds a negation node.
func Not(child Node) Node {
	return Node{Op: OpNot, Children: []Node{child}}
}

// Never builds a tree that is false on every bar, for strategies that do not
// use one of the four signal columns.
func Never() Node {
	return Node{Op: OpOr, Children: nil}
}

// Validate checks the structural invariants of the tree.
func (n Node) Validate() error {
	switch n.Op {
	case OpPrimitive:
		if !knownPrimitive(n.Primitive) {
			return errors.Newf(errors.ErrCodePrimitiveUnknown, "unknown primitive predicate %q", n.Primitive)
		}

		if len(n.Children) != 0 {
			return errors.New(errors.ErrCodeInvalidSignalTree, "primitive node must not have children")
		}
	case OpAnd, OpOr:
		for _, child := range n.Children {
			if err := child.Validate(); err != nil {
				return err
			}
		}
	case OpNot:
		if len(n.Children) != 1 {
			return errors.Newf(errors.ErrCodeInvalidSignalTree, "not node must have exactly 1 child, got %d", len(n.Children))
		}

		return n.Children[0].Validate()
	default:
		return errors.Newf(errors.ErrCodeInvalidSignalTree, "unknown node op %q", n.Op)
	}

	return nil
}
