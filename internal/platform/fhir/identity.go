package fhir

import (
	"context"
	"fmt"
)

// Node is any element of a resource tree that carries its own identity.
// Children returns the structural child nodes in declaration order; absent
// optional children are left out.
type Node interface {
	NodeID() string
	SetNodeID(id string)
	Children() []Node
}

// IDGenerator hands out globally unique ids.
type IDGenerator interface {
	NextID(ctx context.Context) (string, error)
}

// AssignIDs walks the tree rooted at root in pre-order and gives every node
// without an id a fresh one from gen. Existing ids are left untouched.
//
// Pending nodes live on a heap work-list, so nesting depth (extensions inside
// extensions) does not grow the goroutine stack. Generator calls are issued
// one at a time in visit order. The first failure stops the walk; the tree is then
// partially assigned and must not be persisted.
//
// It returns the number of ids assigned.
func AssignIDs(ctx context.Context, root Node, gen IDGenerator) (int, error) {
	var (
		assigned int
		err      error
	)
	Walk(root, func(n Node) bool {
		if n.NodeID() != "" {
			return true
		}
		id, genErr := gen.NextID(ctx)
		if genErr != nil {
			err = fmt.Errorf("assign id: %w", genErr)
			return false
		}
		n.SetNodeID(id)
		assigned++
		return true
	})
	return assigned, err
}

// Walk visits every node of the tree in pre-order, children in declaration
// order. Returning false from fn stops the walk. fn runs before the node's
// children are read, so it may modify them.
func Walk(root Node, fn func(Node) bool) {
	if root == nil {
		return
	}
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Validator is implemented by nodes that have required fields.
type Validator interface {
	Validate() error
}

// Validate checks every Validator in the tree rooted at root and returns
// the first failure in visit order.
func Validate(root Node) error {
	var err error
	Walk(root, func(n Node) bool {
		if v, ok := n.(Validator); ok {
			err = v.Validate()
		}
		return err == nil
	})
	return err
}

// AppendEach appends a pointer to every element of items to out.
func AppendEach[T any, PT interface {
	*T
	Node
}](out []Node, items []T) []Node {
	for i := range items {
		out = append(out, PT(&items[i]))
	}
	return out
}

// AppendOpt appends item to out when it is present.
func AppendOpt[T any, PT interface {
	*T
	Node
}](out []Node, item *T) []Node {
	if item != nil {
		out = append(out, PT(item))
	}
	return out
}
