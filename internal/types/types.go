// Package types defines every cross-package data structure used by the wdtree CLI.
package types

import "encoding/xml"

const (
	CommandTree  = "tree"
	CommandTable = "table"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatCSV  = "csv"
)

// Entity is a single knowledge-base item as returned by the query service.
// Entities are immutable once fetched; the lookup cache owns the single copy
// shared by every tree position that references the same identifier.
type Entity struct {
	// ID is the opaque identifier of the entity, e.g. "Q21198".
	ID string
	// Children lists the identifiers of the entity's direct descendants along
	// the hierarchy relation, in the order the query service returned them.
	Children []string
	// Attributes maps a claim key to the ordered raw values bound to it.
	// A claim may be multi-valued; missing claims have no map entry.
	Attributes map[string][]string
	// Labels maps a language code to the entity label in that language.
	Labels map[string]string
}

// Label returns the entity label for the first language in preferred that has
// one, falling back to the raw identifier.
func (entity *Entity) Label(preferred []string) string {
	for _, language := range preferred {
		if label, found := entity.Labels[language]; found && label != "" {
			return label
		}
	}
	return entity.ID
}

// TreeNode is one position of the materialized arborescence. Distinct nodes
// may reference the same Entity when the same identifier is discovered under
// different parents; such alias occurrences are separate tree positions, not
// copies of the entity.
type TreeNode struct {
	// ID equals Entity.ID.
	ID string
	// Entity is the cached entity backing this position.
	Entity *Entity
	// Children holds the expanded child positions in service order.
	Children []*TreeNode
	// Paths holds every root-to-node identifier sequence recorded for this
	// position, root and node inclusive. No path repeats an identifier.
	Paths [][]string
}

// FlareNode is the nested name/children record consumed by hierarchical
// visualization tooling such as the d3js tree layout.
type FlareNode struct {
	XMLName  xml.Name     `json:"-" xml:"node"`
	Name     string       `json:"name" xml:"name"`
	NodeID   string       `json:"nodeId,omitempty" xml:"nodeId,omitempty"`
	Children []*FlareNode `json:"children,omitempty" xml:"children>node,omitempty"`
}

// TableRow is one entity of the flattened table output. There is exactly one
// row per distinct identifier regardless of how many tree positions carried it.
type TableRow struct {
	ID         string              `json:"id" xml:"id"`
	Label      string              `json:"label,omitempty" xml:"label,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty" xml:"-"`
	// Paths lists every distinct root-to-entity identifier sequence in
	// discovery order.
	Paths [][]string `json:"paths" xml:"paths>path"`
}
