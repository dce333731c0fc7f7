package workflow

import (
	"fmt"
	"strings"

	"github.com/viant/flowmind/internal/yml"
	"github.com/viant/flowmind/model"
	"github.com/viant/flowmind/model/graph"
	"gopkg.in/yaml.v3"
)

// parseDefinition converts YAML node to definition model
func (s *Service) parseDefinition(node *yml.Node, definition *model.Definition) error {
	root := node.Root()
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("definition should be a mapping")
	}
	var dependsOn [][2]string
	err := root.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "id":
			definition.ID = valueNode.Value
		case "name":
			definition.Name = valueNode.Value
		case "description":
			definition.Description = valueNode.Value
		case "version":
			definition.Version = valueNode.Value
		case "entry":
			entry, err := valueNode.Strings()
			if err != nil {
				return fmt.Errorf("entry: %w", err)
			}
			definition.Entry = entry
		case "steps":
			return s.parseSteps(valueNode, definition, &dependsOn)
		case "edges":
			return valueNode.Items(func(_ int, item *yml.Node) error {
				edge, err := parseEdge(item)
				if err != nil {
					return err
				}
				definition.Edges = append(definition.Edges, edge)
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, pair := range dependsOn {
		definition.Edges = append(definition.Edges, &graph.Edge{From: pair[0], To: pair[1], Mode: graph.ModeSequential})
	}
	return nil
}

// parseSteps accepts a sequence of steps, a sequence of single-entry mappings keyed by id, or a mapping keyed by id
func (s *Service) parseSteps(node *yml.Node, definition *model.Definition, dependsOn *[][2]string) error {
	add := func(id string, stepNode *yml.Node) error {
		step, deps, err := parseStep(id, stepNode)
		if err != nil {
			return err
		}
		definition.Steps = append(definition.Steps, step)
		for _, dep := range deps {
			*dependsOn = append(*dependsOn, [2]string{dep, step.ID})
		}
		return nil
	}
	switch node.Kind {
	case yaml.MappingNode:
		return node.Pairs(add)
	case yaml.SequenceNode:
		return node.Items(func(_ int, item *yml.Node) error {
			if item.Kind == yaml.MappingNode && len(item.Content) == 2 && item.Content[1].Kind == yaml.MappingNode {
				return add(item.Content[0].Value, (*yml.Node)(item.Content[1]))
			}
			return add("", item)
		})
	}
	return fmt.Errorf("line %d: steps should be a sequence or mapping", node.Line)
}

func parseStep(id string, node *yml.Node) (*graph.Step, []string, error) {
	step := &graph.Step{ID: id}
	var dependsOn []string
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "id":
			step.ID = valueNode.Value
		case "kind", "type":
			step.Kind = graph.Kind(valueNode.Value)
		case "description":
			step.Description = valueNode.Value
		case "config", "with":
			config, ok := valueNode.Interface().(map[string]interface{})
			if !ok {
				return fmt.Errorf("step %s: config should be a mapping", step.ID)
			}
			step.Config = config
		case "when":
			step.When = valueNode.Value
		case "timeout":
			step.Timeout = valueNode.Value
		case "retry":
			retry, err := parseRetry(valueNode)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.ID, err)
			}
			step.Retry = retry
		case "loop":
			loop, err := parseLoop(valueNode)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.ID, err)
			}
			step.Loop = loop
		case "dependson":
			deps, err := valueNode.Strings()
			if err != nil {
				return fmt.Errorf("step %s: dependsOn should be a string or a slice of strings", step.ID)
			}
			dependsOn = deps
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if step.ID == "" {
		return nil, nil, fmt.Errorf("line %d: step id is required", node.Line)
	}
	return step, dependsOn, nil
}

func parseLoop(node *yml.Node) (*graph.Loop, error) {
	loop := &graph.Loop{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "until":
			loop.Until = valueNode.Value
		case "maxiterations":
			v, ok := valueNode.Interface().(int)
			if !ok {
				return fmt.Errorf("loop maxIterations should be an integer")
			}
			loop.MaxIterations = v
		}
		return nil
	})
	return loop, err
}

func parseRetry(node *yml.Node) (*graph.Retry, error) {
	retry := &graph.Retry{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "type":
			retry.Type = valueNode.Value
		case "maxattempts":
			v, ok := valueNode.Interface().(int)
			if !ok {
				return fmt.Errorf("retry maxAttempts should be an integer")
			}
			retry.MaxAttempts = v
		case "delay":
			retry.Delay = valueNode.Value
		case "multiplier":
			switch v := valueNode.Interface().(type) {
			case int:
				retry.Multiplier = float64(v)
			case float64:
				retry.Multiplier = v
			default:
				return fmt.Errorf("retry multiplier should be a number")
			}
		case "maxdelay":
			retry.MaxDelay = valueNode.Value
		}
		return nil
	})
	return retry, err
}

func parseEdge(node *yml.Node) (*graph.Edge, error) {
	edge := &graph.Edge{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "from":
			edge.From = valueNode.Value
		case "to":
			edge.To = valueNode.Value
		case "mode":
			edge.Mode = graph.Mode(valueNode.Value)
		case "condition", "when":
			edge.Condition = valueNode.Value
			if edge.Mode == "" {
				edge.Mode = graph.ModeConditional
			}
		case "toleratefailure":
			flag, ok := valueNode.Interface().(bool)
			if !ok {
				return fmt.Errorf("tolerateFailure should be a boolean")
			}
			edge.TolerateFailure = flag
		}
		return nil
	})
	return edge, err
}
