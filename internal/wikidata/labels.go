package wikidata

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// EntityIDPattern matches bare entity identifiers such as "Q21198".
var EntityIDPattern = regexp.MustCompile(`^Q[0-9]+$`)

// PropertyIDPattern matches bare property identifiers such as "P571".
// Properties are entities too, so ResolveLabels accepts them unchanged.
var PropertyIDPattern = regexp.MustCompile(`^P[0-9]+$`)

// ResolveLabels looks up the human-readable label of every provided
// identifier in the default language, chunking requests so large trees stay
// within endpoint limits. Identifiers without a label are simply absent from
// the returned map; the caller falls back to the raw identifier.
func (client *Client) ResolveLabels(ctx context.Context, entityIDs []string) (map[string]string, error) {
	deduplicated := deduplicateIdentifiers(entityIDs)
	labels := make(map[string]string, len(deduplicated))
	for chunkStart := 0; chunkStart < len(deduplicated); chunkStart += labelChunkSize {
		chunkEnd := chunkStart + labelChunkSize
		if chunkEnd > len(deduplicated) {
			chunkEnd = len(deduplicated)
		}
		if resolveError := client.resolveLabelChunk(ctx, deduplicated[chunkStart:chunkEnd], labels); resolveError != nil {
			return nil, resolveError
		}
	}
	return labels, nil
}

// resolveLabelChunk queries one VALUES chunk and merges the bindings into the
// accumulating label map.
func (client *Client) resolveLabelChunk(ctx context.Context, entityIDs []string, labels map[string]string) error {
	var valueList strings.Builder
	for _, entityID := range entityIDs {
		fmt.Fprintf(&valueList, "(wd:%s)", entityID)
	}
	query := fmt.Sprintf(
		`SELECT * WHERE {?%s rdfs:label ?%s filter (lang(?%s) = "%s"). VALUES (?%s) {%s}}`,
		entityVariableName, labelVariableName, labelVariableName,
		client.defaultLanguage, entityVariableName, valueList.String(),
	)
	response, queryError := client.execute(ctx, query)
	if queryError != nil {
		return fmt.Errorf("resolve labels: %w", queryError)
	}
	for _, row := range response.Results.Bindings {
		entityBinding, hasEntity := row[entityVariableName]
		labelBinding, hasLabel := row[labelVariableName]
		if !hasEntity || !hasLabel {
			continue
		}
		entityID := simplifyBindingValue(entityBinding.Value)
		if _, exists := labels[entityID]; !exists {
			labels[entityID] = labelBinding.Value
		}
	}
	return nil
}

// deduplicateIdentifiers removes duplicates while preserving first occurrence.
func deduplicateIdentifiers(entityIDs []string) []string {
	encountered := make(map[string]struct{}, len(entityIDs))
	result := make([]string, 0, len(entityIDs))
	for _, entityID := range entityIDs {
		if _, exists := encountered[entityID]; exists {
			continue
		}
		encountered[entityID] = struct{}{}
		result = append(result, entityID)
	}
	return result
}
