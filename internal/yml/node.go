// Package yml provides read helpers over yaml.v3 nodes.
package yml

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node wraps yaml.Node
type Node yaml.Node

// Root returns the first document child or the node itself
func (n *Node) Root() *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return n
}

// Lookup returns mapping value node by key (case-insensitive) or nil
func (n *Node) Lookup(name string) *Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if strings.EqualFold(n.Content[i].Value, name) {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

// Items iterates sequence items
func (n *Node) Items(callback func(index int, node *Node) error) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected sequence", n.Line)
	}
	for i, item := range n.Content {
		if err := callback(i, (*Node)(item)); err != nil {
			return err
		}
	}
	return nil
}

// Pairs iterates mapping entries in declaration order
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Text returns scalar value
func (n *Node) Text() (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: expected scalar", n.Line)
	}
	return n.Value, nil
}

// Strings returns a scalar or sequence of scalars as a slice
func (n *Node) Strings() ([]string, error) {
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}, nil
	}
	var ret []string
	err := n.Items(func(_ int, item *Node) error {
		text, err := item.Text()
		if err != nil {
			return err
		}
		ret = append(ret, text)
		return nil
	})
	return ret, err
}

// Interface converts node into plain go values
func (n *Node) Interface() interface{} {
	switch n.Kind {
	case yaml.DocumentNode:
		return n.Root().Interface()
	case yaml.AliasNode:
		if n.Alias != nil {
			return (*Node)(n.Alias).Interface()
		}
		return nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!bool":
			v, _ := strconv.ParseBool(n.Value)
			return v
		case "!!null":
			return nil
		case "!!float":
			v, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return n.Value
			}
			return v
		case "!!int":
			v, err := strconv.Atoi(n.Value)
			if err != nil {
				return n.Value
			}
			return v
		}
		return n.Value
	case yaml.MappingNode:
		ret := make(map[string]interface{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			ret[n.Content[i].Value] = (*Node)(n.Content[i+1]).Interface()
		}
		return ret
	case yaml.SequenceNode:
		ret := make([]interface{}, 0, len(n.Content))
		for _, item := range n.Content {
			ret = append(ret, (*Node)(item).Interface())
		}
		return ret
	}
	return nil
}
