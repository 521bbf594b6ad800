package importer

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

// EncodeFrontmatter renders properties as a YAML front matter block in
// their original order. No properties means no block.
func EncodeFrontmatter(props []notion.Property) (string, error) {
	if len(props) == 0 {
		return "", nil
	}
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range props {
		val, err := propertyNode(p.Value)
		if err != nil {
			return "", fmt.Errorf("encode property %q: %w", p.Title, err)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Title}, val)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		_ = enc.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	buf.WriteString("---\n")
	return buf.String(), nil
}

// Plain dates stay unquoted so Obsidian types the property as a date.
var plainDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func propertyNode(v any) (*yaml.Node, error) {
	switch vv := v.(type) {
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(vv)}, nil
	case float64:
		if vv == math.Trunc(vv) && math.Abs(vv) < 1e15 {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(vv), 10)}, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(vv, 'f', -1, 64)}, nil
	case string:
		if plainDatePattern.MatchString(vv) {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: vv}, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: vv}, nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
