// Package output renders explored trees and tables in the supported formats.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arbolab/wdtree/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader = xml.Header

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	pathElementSeparator = " > "
	valueSeparator       = "; "

	idColumnHeader    = "id"
	labelColumnHeader = "label"
	pathsColumnHeader = "paths"
)

// RenderTreeJSON marshals a flare structure as indented JSON.
func RenderTreeJSON(node *types.FlareNode) (string, error) {
	encoded, jsonEncodeError := json.MarshalIndent(node, indentPrefix, indentSpacer)
	return string(encoded), jsonEncodeError
}

// RenderTreeXML marshals a flare structure as an XML document.
func RenderTreeXML(node *types.FlareNode) (string, error) {
	encoded, xmlMarshalError := xml.MarshalIndent(node, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded), nil
}

// RenderTreeRaw renders a flare structure with branch connectors.
func RenderTreeRaw(node *types.FlareNode) string {
	var buffer bytes.Buffer
	WriteTreeRaw(&buffer, node)
	return buffer.String()
}

// WriteTreeRaw renders a flare structure to the provided writer.
func WriteTreeRaw(writer io.Writer, node *types.FlareNode) {
	if node == nil {
		return
	}
	renderTreeNode(writer, node, "", true, true)
}

func renderTreeNode(writer io.Writer, node *types.FlareNode, prefix string, isRoot bool, isLast bool) {
	if node == nil {
		return
	}
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	fmt.Fprintf(writer, "%s%s\n", linePrefix, flareNodeTitle(node))
	for index, child := range node.Children {
		renderTreeNode(writer, child, childPrefix, false, index == len(node.Children)-1)
	}
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

// flareNodeTitle appends the raw identifier when the node carries a resolved
// label distinct from it.
func flareNodeTitle(node *types.FlareNode) string {
	if node.NodeID != "" && node.NodeID != node.Name {
		return node.Name + " (" + node.NodeID + ")"
	}
	return node.Name
}

// RenderTableJSON marshals the rows as an indented JSON array.
func RenderTableJSON(rows []types.TableRow) (string, error) {
	if len(rows) == 0 {
		return "[]", nil
	}
	encoded, jsonEncodeError := json.MarshalIndent(rows, indentPrefix, indentSpacer)
	return string(encoded), jsonEncodeError
}

// RenderTableCSV renders the rows as CSV with one column per configured
// claim, multi-valued cells joined by "; " and each path rendered as one
// " > "-separated column value. Header cells come from titles when provided,
// falling back to the raw claim keys.
func RenderTableCSV(rows []types.TableRow, claims []string, titles []string) (string, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	header := append([]string{idColumnHeader, labelColumnHeader}, columnTitles(claims, titles)...)
	header = append(header, pathsColumnHeader)
	if writeError := writer.Write(header); writeError != nil {
		return "", writeError
	}
	for _, row := range rows {
		record := append([]string{row.ID, row.Label}, claimCells(row, claims)...)
		record = append(record, strings.Join(formatPaths(row.Paths), valueSeparator))
		if writeError := writer.Write(record); writeError != nil {
			return "", writeError
		}
	}
	writer.Flush()
	if flushError := writer.Error(); flushError != nil {
		return "", flushError
	}
	return buffer.String(), nil
}

// RenderTableRaw renders the rows as aligned plain text.
func RenderTableRaw(rows []types.TableRow, claims []string, titles []string) string {
	var buffer bytes.Buffer
	WriteTableRaw(&buffer, rows, claims, titles)
	return buffer.String()
}

// WriteTableRaw renders the rows to the provided writer, one block per row.
// Claim lines use titles when provided, falling back to the raw claim keys.
func WriteTableRaw(writer io.Writer, rows []types.TableRow, claims []string, titles []string) {
	claimTitles := columnTitles(claims, titles)
	for index, row := range rows {
		if index > 0 {
			fmt.Fprintln(writer)
		}
		title := row.ID
		if row.Label != "" {
			title = row.Label + " (" + row.ID + ")"
		}
		fmt.Fprintf(writer, "%s\n", title)
		for claimIndex, claim := range claims {
			cell := strings.Join(row.Attributes[claim], valueSeparator)
			if cell == "" {
				continue
			}
			fmt.Fprintf(writer, "  %s: %s\n", claimTitles[claimIndex], cell)
		}
		for _, path := range formatPaths(row.Paths) {
			fmt.Fprintf(writer, "  path: %s\n", path)
		}
	}
}

// columnTitles pairs each claim key with its display title, keeping the raw
// keys whenever no matching title list was supplied.
func columnTitles(claims []string, titles []string) []string {
	if len(titles) == len(claims) {
		return titles
	}
	return claims
}

// claimCells selects and joins the row's values for each claim in order,
// rendering missing claims as empty cells.
func claimCells(row types.TableRow, claims []string) []string {
	cells := make([]string, len(claims))
	for index, claim := range claims {
		cells[index] = strings.Join(row.Attributes[claim], valueSeparator)
	}
	return cells
}

func formatPaths(paths [][]string) []string {
	formatted := make([]string, len(paths))
	for index, path := range paths {
		formatted[index] = strings.Join(path, pathElementSeparator)
	}
	return formatted
}

// Print writes rendered output to stdout followed by a newline.
func Print(rendered string) {
	fmt.Fprintln(os.Stdout, strings.TrimRight(rendered, "\n"))
}
