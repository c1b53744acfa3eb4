package model

import (
	"fmt"
	"strings"
)

// NavItem is one caller-supplied node of the site navigation.
// Children are displayed in slice order.
type NavItem struct {
	ID         string    `json:"id" yaml:"id"`
	Label      string    `json:"label" yaml:"label"`
	URL        string    `json:"url,omitempty" yaml:"url,omitempty"`
	RecordType string    `json:"record_type,omitempty" yaml:"record_type,omitempty"`
	RecordID   string    `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Collapsed  bool      `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Hidden     bool      `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Children   []NavItem `json:"children,omitempty" yaml:"children,omitempty"`
}

// Clone creates a deep copy of the item and its subtree
func (n NavItem) Clone() NavItem {
	clone := n
	if n.Children != nil {
		clone.Children = make([]NavItem, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}
	return clone
}

// Validate checks the item itself, not its children
func (n *NavItem) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("nav item ID cannot be empty")
	}
	if strings.TrimSpace(n.Label) == "" {
		return fmt.Errorf("nav item %s: label cannot be empty", n.ID)
	}
	if n.RecordID != "" && n.RecordType == "" {
		return fmt.Errorf("nav item %s: record_id set without record_type", n.ID)
	}
	return nil
}

// HasChildren reports whether the item has any children
func (n NavItem) HasChildren() bool {
	return len(n.Children) > 0
}

// ValidateItems validates a whole forest: every item must be valid and
// IDs must be unique across all depths.
func ValidateItems(items []NavItem) error {
	seen := make(map[string]bool)
	var walk func(list []NavItem) error
	walk = func(list []NavItem) error {
		for i := range list {
			item := &list[i]
			if err := item.Validate(); err != nil {
				return err
			}
			if seen[item.ID] {
				return fmt.Errorf("duplicate nav item ID: %s", item.ID)
			}
			seen[item.ID] = true
			if err := walk(item.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(items)
}

// CountItems returns the total number of items in the forest.
func CountItems(items []NavItem) int {
	n := 0
	for _, item := range items {
		n += 1 + CountItems(item.Children)
	}
	return n
}

// ActiveRecord identifies the record behind the current page.
// The zero value means no record is active.
type ActiveRecord struct {
	RecordType string `json:"record_type" yaml:"record_type"`
	RecordID   string `json:"record_id" yaml:"record_id"`
}

// IsZero reports whether no record is set
func (a ActiveRecord) IsZero() bool {
	return a.RecordType == "" && a.RecordID == ""
}

// Matches reports whether the item points at this record.
// Items without a record never match.
func (a ActiveRecord) Matches(item NavItem) bool {
	if a.IsZero() || item.RecordID == "" {
		return false
	}
	return item.RecordType == a.RecordType && item.RecordID == a.RecordID
}

// String renders the record as "type:id"
func (a ActiveRecord) String() string {
	if a.IsZero() {
		return ""
	}
	return a.RecordType + ":" + a.RecordID
}

// ParseActiveRecord parses the "type:id" form produced by String.
func ParseActiveRecord(s string) (ActiveRecord, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ActiveRecord{}, nil
	}
	typ, id, ok := strings.Cut(s, ":")
	if !ok || typ == "" || id == "" {
		return ActiveRecord{}, fmt.Errorf("invalid active record %q (want type:id)", s)
	}
	return ActiveRecord{RecordType: typ, RecordID: id}, nil
}

// Document is the on-disk navigation document: the items plus an
// optional default active record.
type Document struct {
	Title  string       `json:"title,omitempty" yaml:"title,omitempty"`
	Items  []NavItem    `json:"items" yaml:"items"`
	Active ActiveRecord `json:"active,omitempty" yaml:"active,omitempty"`
}
