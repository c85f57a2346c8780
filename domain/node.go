package domain

import (
	"errors"
	"fmt"
	"reflect"
)

var ErrFieldAssignment = errors.New("field assignment rejected")

type Node struct {
	// canonical usage key
	Id       string         `json:"id" bson:"_id"`
	Location UsageKey       `json:"location" bson:"location"`
	Children []string       `json:"children,omitempty" bson:"children,omitempty"`
	Parent   string         `json:"parent,omitempty" bson:"parent,omitempty"`
	Fields   map[string]any `json:"fields,omitempty" bson:"fields,omitempty"`
	Buffer   UploadBuffer   `json:"buffer,omitempty" bson:"buffer,omitempty"`

	EditedBy    string `json:"editedBy,omitempty" bson:"editedBy,omitempty"`
	EditedOn    int64  `json:"editedOn,omitempty" bson:"editedOn,omitempty"`
	PublishedBy string `json:"publishedBy,omitempty" bson:"publishedBy,omitempty"`
	PublishedOn int64  `json:"publishedOn,omitempty" bson:"publishedOn,omitempty"`
}

func NewNode(location UsageKey, children ...UsageKey) *Node {
	n := &Node{
		Id:       location.String(),
		Location: location,
		Fields:   map[string]any{},
	}
	for _, c := range children {
		n.Children = append(n.Children, c.String())
	}
	return n
}

func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// StringField returns the field value when it is a string.
func (n *Node) StringField(name string) (string, bool) {
	v, ok := n.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetField assigns a value keeping the type of the existing one.
func (n *Node) SetField(name string, value any) error {
	if name == "" {
		return fmt.Errorf("%w: empty field name", ErrFieldAssignment)
	}
	if n.Fields == nil {
		n.Fields = map[string]any{}
	}
	if cur, ok := n.Fields[name]; ok && cur != nil && value != nil {
		if reflect.TypeOf(cur) != reflect.TypeOf(value) {
			return fmt.Errorf("%w: field %q holds %T, got %T", ErrFieldAssignment, name, cur, value)
		}
	}
	n.Fields[name] = value
	return nil
}
