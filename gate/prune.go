package gate

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbohren-forks/conditional"
)

// ErrBadCondition is returned when an if or unless key in a document does not
// hold a scalar.
var ErrBadCondition = errors.New("gate: condition must be a scalar")

// Prune removes the conditionally excluded parts of a YAML document in place.
//
// Any mapping with an "if" or "unless" key is guarded by that condition. The
// keys are removed from the mapping, and if the condition excludes it, the
// mapping is removed from its parent sequence or mapping. Excluding the root
// mapping leaves an empty mapping. Aliases are not followed.
//
// Errors name the line of the offending key. Under the Exclude policy,
// conditions that fail to evaluate exclude their mapping as in Include.
func (g *Gate) Prune(ctx context.Context, doc *yaml.Node, env conditional.Env) error {
	if doc == nil {
		return nil
	}
	if doc.Kind == yaml.DocumentNode {
		for i, n := range doc.Content {
			keep, err := g.prune(ctx, n, env)
			if err != nil {
				return err
			}
			if !keep {
				doc.Content[i] = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			}
		}
		return nil
	}
	keep, err := g.prune(ctx, doc, env)
	if err != nil {
		return err
	}
	if !keep {
		*doc = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	return nil
}

// prune prunes the children of n and reports whether n itself is included.
func (g *Gate) prune(ctx context.Context, n *yaml.Node, env conditional.Env) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	switch n.Kind {
	case yaml.MappingNode:
		c, line, err := takeCondition(n)
		if err != nil {
			return false, err
		}
		keep, err := g.Include(ctx, c, env)
		if err != nil {
			var ce *ConditionError
			if errors.As(err, &ce) {
				ce.Line = line
				return false, ce
			}
			return false, fmt.Errorf("line %d: %w", line, err)
		}
		if !keep {
			return false, nil
		}
		content := make([]*yaml.Node, 0, len(n.Content))
		for i := 0; i+1 < len(n.Content); i += 2 {
			keep, err := g.prune(ctx, n.Content[i+1], env)
			if err != nil {
				return false, err
			}
			if keep {
				content = append(content, n.Content[i], n.Content[i+1])
			}
		}
		n.Content = content
	case yaml.SequenceNode:
		content := make([]*yaml.Node, 0, len(n.Content))
		for _, item := range n.Content {
			keep, err := g.prune(ctx, item, env)
			if err != nil {
				return false, err
			}
			if keep {
				content = append(content, item)
			}
		}
		n.Content = content
	}
	return true, nil
}

// takeCondition removes the if and unless keys from a mapping and returns
// the condition they held along with the line of the first of them. The
// mapping is unchanged if it returns an error.
func takeCondition(n *yaml.Node) (Condition, int, error) {
	var (
		c    Condition
		line int
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !isConditionKey(k) {
			continue
		}
		if v.Kind != yaml.ScalarNode {
			return Condition{}, k.Line, fmt.Errorf("line %d: %s: %w", k.Line, k.Value, ErrBadCondition)
		}
		if line == 0 {
			line = k.Line
		}
		if k.Value == "if" {
			c.If = v.Value
		} else {
			c.Unless = v.Value
		}
	}
	if line == 0 {
		return c, 0, nil
	}
	content := make([]*yaml.Node, 0, len(n.Content))
	for i := 0; i+1 < len(n.Content); i += 2 {
		if !isConditionKey(n.Content[i]) {
			content = append(content, n.Content[i], n.Content[i+1])
		}
	}
	n.Content = content
	return c, line, nil
}

func isConditionKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && (k.Value == "if" || k.Value == "unless")
}
