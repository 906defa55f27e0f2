// Package wikidata implements the SPARQL query service and label resolver
// collaborators used to explore the knowledge-base hierarchy.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arbolab/wdtree/internal/types"
)

const (
	// DefaultEndpoint is the public Wikidata SPARQL endpoint.
	DefaultEndpoint = "https://query.wikidata.org/bigdata/namespace/wdq/sparql"
	// DefaultEntityEndpoint is the public Wikidata action API used for
	// claim-detail lookups.
	DefaultEntityEndpoint = "https://www.wikidata.org/w/api.php"
	// EntityPrefixURI is stripped from entity-valued bindings so identifiers
	// come out bare, e.g. "Q21198".
	EntityPrefixURI = "http://www.wikidata.org/entity/"

	sparqlAcceptValue  = "application/sparql-results+json"
	formContentType    = "application/x-www-form-urlencoded"
	requestTimeout     = 20 * time.Second
	labelChunkSize     = 1000
	childVariableName  = "child"
	entityVariableName = "entity"
	labelVariableName  = "label"
)

// DefaultLookupClaims lists the claim properties fetched for every entity
// unless the caller configures a different set.
var DefaultLookupClaims = []string{
	"P571", "P275", "P101", "P135", "P348", "P306", "P1482", "P277", "P577",
	"P366", "P178", "P31", "P279", "P2572", "P3966", "P144", "P170", "P1324",
}

// DefaultHierarchyProperties are the set-membership properties whose reverse
// edges define the parent/child relation: instance of and subclass of.
var DefaultHierarchyProperties = []string{"P31", "P279"}

// DefaultLabelPredicates are the prefixed label predicates requested per
// configured language.
var DefaultLabelPredicates = []string{"rdfs:label", "skos:altLabel", "schema:description"}

// DefaultLanguages orders the languages label lookups fall through.
var DefaultLanguages = []string{"en", "fr"}

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Options configures a Client. Zero values select the public Wikidata
// endpoint and the default claim, language, and hierarchy sets.
type Options struct {
	Endpoint            string
	EntityEndpoint      string
	HTTPClient          httpClient
	LookupClaims        []string
	HierarchyProperties []string
	LabelPredicates     []string
	Languages           []string
	DefaultLanguage     string
}

// Client talks to a SPARQL endpoint. One FetchEntity call issues exactly one
// query returning the entity's direct children along the hierarchy relation,
// its configured claim values, and its labels per configured language.
type Client struct {
	endpoint            string
	entityEndpoint      string
	client              httpClient
	lookupClaims        []string
	hierarchyProperties []string
	labelPredicates     []string
	languages           []string
	defaultLanguage     string
}

// NewClient constructs a Client from the provided options, filling defaults
// for any zero-valued field.
func NewClient(options Options) (*Client, error) {
	endpoint := strings.TrimSpace(options.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	entityEndpoint := strings.TrimSpace(options.EntityEndpoint)
	if entityEndpoint == "" {
		entityEndpoint = DefaultEntityEndpoint
	}
	client := options.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	lookupClaims := options.LookupClaims
	if lookupClaims == nil {
		lookupClaims = DefaultLookupClaims
	}
	hierarchyProperties := options.HierarchyProperties
	if len(hierarchyProperties) == 0 {
		hierarchyProperties = DefaultHierarchyProperties
	}
	labelPredicates := options.LabelPredicates
	if labelPredicates == nil {
		labelPredicates = DefaultLabelPredicates
	}
	for _, predicate := range labelPredicates {
		if len(strings.Split(predicate, ":")) != 2 {
			return nil, fmt.Errorf("wikidata: label predicate %q must be prefixed (prefix:label)", predicate)
		}
	}
	languages := options.Languages
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	defaultLanguage := options.DefaultLanguage
	if defaultLanguage == "" {
		defaultLanguage = languages[0]
	}
	return &Client{
		endpoint:            endpoint,
		entityEndpoint:      entityEndpoint,
		client:              client,
		lookupClaims:        lookupClaims,
		hierarchyProperties: hierarchyProperties,
		labelPredicates:     labelPredicates,
		languages:           languages,
		defaultLanguage:     defaultLanguage,
	}, nil
}

// Languages returns the configured label language fallback order.
func (client *Client) Languages() []string {
	return client.languages
}

// sparqlBinding is one bound variable of a SPARQL JSON result row.
type sparqlBinding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Language string `json:"xml:lang,omitempty"`
}

// sparqlResponse is the envelope of the SPARQL JSON results format.
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlBinding `json:"bindings"`
	} `json:"results"`
}

// FetchEntity retrieves one entity: its direct children along the hierarchy
// relation, its claim values, and its labels. Failures are reported as a
// *FetchError carrying the entity identifier.
func (client *Client) FetchEntity(ctx context.Context, entityID string) (*types.Entity, error) {
	query := client.buildEntityQuery(entityID)
	response, queryError := client.execute(ctx, query)
	if queryError != nil {
		return nil, wrapFetchError(entityID, queryError)
	}

	entity := &types.Entity{
		ID:         entityID,
		Attributes: map[string][]string{},
		Labels:     map[string]string{},
	}
	seenChildren := map[string]struct{}{}
	seenValues := map[string]struct{}{}
	for _, row := range response.Results.Bindings {
		for variableName, binding := range row {
			value := simplifyBindingValue(binding.Value)
			if value == "" {
				continue
			}
			if variableName == childVariableName {
				if _, seen := seenChildren[value]; seen {
					continue
				}
				seenChildren[value] = struct{}{}
				entity.Children = append(entity.Children, value)
				continue
			}
			valueKey := variableName + "\x00" + value
			if _, seen := seenValues[valueKey]; seen {
				continue
			}
			seenValues[valueKey] = struct{}{}
			entity.Attributes[variableName] = append(entity.Attributes[variableName], value)
			if language, isLabel := labelLanguage(variableName); isLabel {
				if _, exists := entity.Labels[language]; !exists {
					entity.Labels[language] = value
				}
			}
		}
	}
	return entity, nil
}

// buildEntityQuery assembles the per-entity SPARQL query: one OPTIONAL block
// for the reverse hierarchy edges, one per lookup claim, and one per
// label-predicate/language pair.
func (client *Client) buildEntityQuery(entityID string) string {
	var clauses []string
	clauses = append(clauses, fmt.Sprintf("OPTIONAL {?%s %s wd:%s.}", childVariableName, client.hierarchyPath(), entityID))
	for _, claim := range client.lookupClaims {
		clauses = append(clauses, fmt.Sprintf("OPTIONAL {wd:%s wdt:%s ?%s.}", entityID, claim, claim))
	}
	for _, predicate := range client.labelPredicates {
		localName := strings.Split(predicate, ":")[1]
		for _, language := range client.languages {
			variableName := localName + "_" + language
			clauses = append(clauses, fmt.Sprintf(
				"OPTIONAL {wd:%s %s ?%s filter (lang(?%s) = \"%s\").}",
				entityID, predicate, variableName, variableName, language,
			))
		}
	}
	return fmt.Sprintf("SELECT DISTINCT * WHERE {%s}", strings.Join(clauses, " "))
}

// hierarchyPath renders the reverse-edge property path, e.g. "wdt:P31|wdt:P279".
func (client *Client) hierarchyPath() string {
	parts := make([]string, 0, len(client.hierarchyProperties))
	for _, property := range client.hierarchyProperties {
		parts = append(parts, "wdt:"+property)
	}
	return strings.Join(parts, "|")
}

// execute posts a SPARQL query and decodes the JSON result envelope.
func (client *Client) execute(ctx context.Context, query string) (*sparqlResponse, error) {
	form := url.Values{}
	form.Set("query", query)
	request, requestError := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, strings.NewReader(form.Encode()))
	if requestError != nil {
		return nil, requestError
	}
	request.Header.Set("Content-Type", formContentType)
	request.Header.Set("Accept", sparqlAcceptValue)
	response, responseError := client.client.Do(request)
	if responseError != nil {
		return nil, responseError
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, statusError(response.StatusCode)
	}
	var decoded sparqlResponse
	if decodeError := json.NewDecoder(response.Body).Decode(&decoded); decodeError != nil {
		return nil, fmt.Errorf("decode sparql result: %w", decodeError)
	}
	return &decoded, nil
}

// statusError marks a non-200 endpoint answer so wrapFetchError can keep the
// status code on the FetchError.
type statusError int

func (code statusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d", int(code))
}

func wrapFetchError(entityID string, cause error) *FetchError {
	fetchError := &FetchError{EntityID: entityID, Err: cause}
	if code, isStatus := cause.(statusError); isStatus {
		fetchError.StatusCode = int(code)
		fetchError.Err = nil
	}
	return fetchError
}

// simplifyBindingValue strips the entity prefix URI from entity-valued
// bindings so identifiers come out bare.
func simplifyBindingValue(value string) string {
	return strings.TrimPrefix(value, EntityPrefixURI)
}

// labelLanguage reports whether a result variable carries a plain label and
// for which language, i.e. matches "label_<lang>".
func labelLanguage(variableName string) (string, bool) {
	if !strings.HasPrefix(variableName, labelVariableName+"_") {
		return "", false
	}
	language := strings.TrimPrefix(variableName, labelVariableName+"_")
	if language == "" {
		return "", false
	}
	return language, true
}
