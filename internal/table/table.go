// Package table flattens the materialized tree into one row per distinct
// entity, carrying attribute values and every root-to-entity path.
package table

import (
	"sort"
	"strings"

	"github.com/arbolab/wdtree/internal/types"
	"github.com/arbolab/wdtree/internal/wikidata"
)

// Builder flattens trees against a caller-declared ordered attribute schema.
type Builder struct {
	// Claims lists the attribute keys selected into each row, in column order.
	Claims []string
}

// Build traverses the tree once and produces one row per distinct identifier
// in first-discovery order. A node occurring under several parents
// contributes all of its paths to the same logical row. Missing attributes
// yield no cell values, not an error.
func (builder Builder) Build(root *types.TreeNode) []types.TableRow {
	rowIndex := map[string]int{}
	var rows []types.TableRow
	var walk func(node *types.TreeNode)
	walk = func(node *types.TreeNode) {
		if node == nil {
			return
		}
		index, exists := rowIndex[node.ID]
		if !exists {
			index = len(rows)
			rowIndex[node.ID] = index
			rows = append(rows, types.TableRow{
				ID:         node.ID,
				Attributes: builder.selectAttributes(node.Entity),
			})
		}
		rows[index].Paths = append(rows[index].Paths, node.Paths...)
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(root)
	return rows
}

// selectAttributes projects the entity's cached attribute map onto the
// configured claim keys. Keys the entity does not carry are absent from the
// result and render as empty cells downstream.
func (builder Builder) selectAttributes(entity *types.Entity) map[string][]string {
	if entity == nil {
		return nil
	}
	selected := map[string][]string{}
	for _, claim := range builder.Claims {
		values, found := entity.Attributes[claim]
		if !found {
			continue
		}
		cloned := make([]string, len(values))
		copy(cloned, values)
		selected[claim] = cloned
	}
	return selected
}

// WithDetails merges per-entity claim details into the rows and returns the
// extended ordered column list: the configured claims first, then every
// detail-only key (precision and qualifier columns) in sorted order. Detail
// values already present in a cell are not duplicated.
func WithDetails(rows []types.TableRow, details map[string]map[string][]string, claims []string) ([]types.TableRow, []string) {
	claimSet := make(map[string]struct{}, len(claims))
	for _, claim := range claims {
		claimSet[claim] = struct{}{}
	}
	extraSet := map[string]struct{}{}
	enriched := make([]types.TableRow, 0, len(rows))
	for _, row := range rows {
		next := row
		rowDetails := details[row.ID]
		if len(rowDetails) > 0 {
			next.Attributes = mergeAttributes(row.Attributes, rowDetails)
			for key := range rowDetails {
				if _, configured := claimSet[key]; !configured {
					extraSet[key] = struct{}{}
				}
			}
		}
		enriched = append(enriched, next)
	}
	extra := make([]string, 0, len(extraSet))
	for key := range extraSet {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	columns := append(append([]string(nil), claims...), extra...)
	return enriched, columns
}

// mergeAttributes appends detail values onto a copy of the base cells,
// skipping values a cell already holds.
func mergeAttributes(base map[string][]string, details map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(base)+len(details))
	for key, values := range base {
		merged[key] = append([]string(nil), values...)
	}
	for key, values := range details {
		existing := make(map[string]struct{}, len(merged[key]))
		for _, value := range merged[key] {
			existing[value] = struct{}{}
		}
		for _, value := range values {
			if _, present := existing[value]; present {
				continue
			}
			existing[value] = struct{}{}
			merged[key] = append(merged[key], value)
		}
	}
	return merged
}

// ColumnTitles resolves the property segments of each column key to their
// labels: "P571" becomes "inception" and "P571_P580" becomes
// "inception_start time". Segments without a label stay raw.
func ColumnTitles(keys []string, labels map[string]string) []string {
	titles := make([]string, len(keys))
	for index, key := range keys {
		segments := strings.Split(key, "_")
		for segmentIndex, segment := range segments {
			if label, found := labels[segment]; found && label != "" {
				segments[segmentIndex] = label
			}
		}
		titles[index] = strings.Join(segments, "_")
	}
	return titles
}

// Labeled returns a copy of the rows with entity-shaped values replaced by
// their resolved labels: the row label itself, attribute cells holding bare
// identifiers, and every path element. Identifiers without a label stay raw.
func Labeled(rows []types.TableRow, labels map[string]string) []types.TableRow {
	labeled := make([]types.TableRow, 0, len(rows))
	for _, row := range rows {
		next := types.TableRow{ID: row.ID}
		if label, found := labels[row.ID]; found {
			next.Label = label
		}
		if row.Attributes != nil {
			next.Attributes = make(map[string][]string, len(row.Attributes))
			for claim, values := range row.Attributes {
				next.Attributes[claim] = labelValues(values, labels)
			}
		}
		for _, path := range row.Paths {
			next.Paths = append(next.Paths, labelValues(path, labels))
		}
		labeled = append(labeled, next)
	}
	return labeled
}

// labelValues maps values through the label map. Values without a label,
// identifier-shaped or not, stay raw.
func labelValues(values []string, labels map[string]string) []string {
	mapped := make([]string, len(values))
	for index, value := range values {
		mapped[index] = value
		if label, found := labels[value]; found && label != "" {
			mapped[index] = label
		}
	}
	return mapped
}

// Identifiers collects every identifier a label pass would need to resolve:
// row identifiers, identifier-shaped attribute values, and the property
// segments of the attribute keys so column titles can be resolved too. Path
// elements are always row identifiers, so they add nothing.
func Identifiers(rows []types.TableRow) []string {
	encountered := map[string]struct{}{}
	var ordered []string
	record := func(value string) {
		if _, seen := encountered[value]; seen {
			return
		}
		encountered[value] = struct{}{}
		ordered = append(ordered, value)
	}
	for _, row := range rows {
		record(row.ID)
		for key, values := range row.Attributes {
			for _, segment := range strings.Split(key, "_") {
				if wikidata.PropertyIDPattern.MatchString(segment) {
					record(segment)
				}
			}
			for _, value := range values {
				if wikidata.EntityIDPattern.MatchString(value) {
					record(value)
				}
			}
		}
	}
	return ordered
}
