package cst

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type branchYAML struct {
	Type     string  `yaml:"type"`
	Start    [2]int  `yaml:"start,flow"`
	End      [2]int  `yaml:"end,flow"`
	Children []*Node `yaml:"children"`
}

type leafYAML struct {
	Type  string `yaml:"type"`
	Start [2]int `yaml:"start,flow"`
	End   [2]int `yaml:"end,flow"`
	Text  string `yaml:"text"`
}

type nodeYAML struct {
	Type     string   `yaml:"type"`
	Start    [2]int   `yaml:"start"`
	End      [2]int   `yaml:"end"`
	Children *[]*Node `yaml:"children"`
	Text     *string  `yaml:"text"`
}

// MarshalYAML emits the same record shape as MarshalJSON.
func (n *Node) MarshalYAML() (any, error) {
	if n.IsLeaf() {
		return leafYAML{Type: n.Type, Start: n.Start.pair(), End: n.End.pair(), Text: n.Text}, nil
	}

	return branchYAML{Type: n.Type, Start: n.Start.pair(), End: n.End.pair(), Children: n.Children}, nil
}

// UnmarshalYAML decodes a record emitted by MarshalYAML.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var raw nodeYAML

	err := value.Decode(&raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedNode, err)
	}

	switch {
	case raw.Children != nil && raw.Text != nil:
		return fmt.Errorf("line %d: %w", value.Line, ErrTextAndChildren)
	case raw.Children == nil && raw.Text == nil:
		return fmt.Errorf("line %d: %w", value.Line, ErrNoTextOrChildren)
	}

	*n = Node{Type: raw.Type, Start: pointFromPair(raw.Start), End: pointFromPair(raw.End)}

	if raw.Text != nil {
		n.Text = *raw.Text

		return nil
	}

	n.Children = *raw.Children
	if n.Children == nil {
		n.Children = []*Node{}
	}

	return nil
}
