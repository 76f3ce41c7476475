package viewmodel

import (
	"regexp"
	"strings"

	"headphones/internal/config"
)

// UIKeyPrefix starts every form key.
const UIKeyPrefix = "hp_ui_"

// UIKey returns the form key of an option.
func UIKey(appKey string) string {
	return UIKeyPrefix + strings.ToLower(appKey)
}

// Node is any element of the settings tree.
type Node interface {
	Kind() string
}

// Field is a node bound to an option. FormToValue receives only the form
// values whose keys the field declared in UIKeys.
type Field interface {
	Node
	Entry() config.Entry
	UIKeys() []string
	FormToValue(fields map[string][]string) (any, error)
	Children() []Node
}

// Secret is implemented by fields whose values must not be logged.
type Secret interface {
	Secret() bool
}

var idSanitizer = regexp.MustCompile(`[^\w]`)

// Tab groups blocks on one settings page.
type Tab struct {
	ID      string
	Caption string
	Message string
	Blocks  []*Block
}

// NewTab creates a tab; the id is reduced to word characters.
func NewTab(id, caption string, blocks ...*Block) *Tab {
	return &Tab{ID: idSanitizer.ReplaceAllString(id, "_"), Caption: caption, Blocks: blocks}
}

func (*Tab) Kind() string { return "tab" }

// Block groups nodes inside a tab.
type Block struct {
	ID      string
	Caption string
	Nodes   []Node
}

// NewBlock creates a block; the id is reduced to word characters.
func NewBlock(id, caption string, nodes ...Node) *Block {
	return &Block{ID: idSanitizer.ReplaceAllString(id, "_"), Caption: caption, Nodes: nodes}
}

func (*Block) Kind() string { return "block" }

// Message is static explanatory text.
type Message struct {
	Text string
}

func (*Message) Kind() string { return "message" }

// Template names a presentation snippet with its strings.
type Template struct {
	Name    string
	Strings map[string]string
}

func (*Template) Kind() string { return "template" }

// Walk visits nodes depth first, descending into tabs, blocks and field
// children. Returning false from visit skips a node's descendants.
func Walk(nodes []Node, visit func(depth int, n Node) bool) {
	walk(nodes, 0, visit)
}

func walk(nodes []Node, depth int, visit func(int, Node) bool) {
	for _, n := range nodes {
		if n == nil || !visit(depth, n) {
			continue
		}
		switch v := n.(type) {
		case *Tab:
			blocks := make([]Node, 0, len(v.Blocks))
			for _, b := range v.Blocks {
				blocks = append(blocks, b)
			}
			walk(blocks, depth+1, visit)
		case *Block:
			walk(v.Nodes, depth+1, visit)
		case Field:
			walk(v.Children(), depth+1, visit)
		}
	}
}
