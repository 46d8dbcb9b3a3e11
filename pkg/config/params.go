package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
)

// Params параметры стратегии или writer'а.
// Вложенные mapping сохраняют порядок ключей (strategy.Mapping),
// целые числа остаются int.
type Params map[string]any

// UnmarshalYAML разбирает mapping с сохранением порядка вложенных ключей
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*p = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: params must be a mapping", node.Line)
	}

	out := make(Params, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("line %d: invalid key: %w", node.Content[i].Line, err)
		}
		v, err := nodeValue(node.Content[i+1])
		if err != nil {
			return err
		}
		out[key] = v
	}
	*p = out
	return nil
}

func nodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return nodeValue(node.Content[0])
	case yaml.AliasNode:
		return nodeValue(node.Alias)
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, n := range node.Content {
			v, err := nodeValue(n)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		m := make(strategy.Mapping, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: invalid key: %w", node.Content[i].Line, err)
			}
			v, err := nodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m = append(m, strategy.MapItem{Key: key, Value: v})
		}
		return m, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	}
}
