package wikidata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const entityResultPayload = `{
  "results": {
    "bindings": [
      {
        "child": {"type": "uri", "value": "http://www.wikidata.org/entity/Q9143"},
        "P571": {"type": "literal", "value": "1991-01-01T00:00:00Z"},
        "label_en": {"type": "literal", "value": "computer science", "xml:lang": "en"},
        "description_en": {"type": "literal", "value": "study of computation", "xml:lang": "en"}
      },
      {
        "child": {"type": "uri", "value": "http://www.wikidata.org/entity/Q80006"},
        "P31": {"type": "uri", "value": "http://www.wikidata.org/entity/Q11862829"}
      },
      {
        "child": {"type": "uri", "value": "http://www.wikidata.org/entity/Q9143"}
      }
    ]
  }
}`

func TestFetchEntityParsesChildrenClaimsAndLabels(t *testing.T) {
	t.Parallel()
	var receivedQuery string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if parseError := request.ParseForm(); parseError != nil {
			t.Errorf("expected form body, got %v", parseError)
		}
		receivedQuery = request.Form.Get("query")
		if accept := request.Header.Get("Accept"); accept != sparqlAcceptValue {
			t.Errorf("expected accept header %q, got %q", sparqlAcceptValue, accept)
		}
		fmt.Fprint(writer, entityResultPayload)
	}))
	defer server.Close()

	client, clientError := NewClient(Options{Endpoint: server.URL, HTTPClient: server.Client()})
	if clientError != nil {
		t.Fatalf("expected client construction to succeed, got %v", clientError)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	entity, fetchError := client.FetchEntity(ctx, "Q21198")
	if fetchError != nil {
		t.Fatalf("expected fetch to succeed, got %v", fetchError)
	}
	if entity.ID != "Q21198" {
		t.Fatalf("expected entity id Q21198, got %s", entity.ID)
	}
	expectedChildren := []string{"Q9143", "Q80006"}
	if len(entity.Children) != len(expectedChildren) {
		t.Fatalf("expected %d distinct children, got %v", len(expectedChildren), entity.Children)
	}
	for index, childID := range expectedChildren {
		if entity.Children[index] != childID {
			t.Fatalf("expected child %d to be %s, got %s", index, childID, entity.Children[index])
		}
	}
	if values := entity.Attributes["P571"]; len(values) != 1 || values[0] != "1991-01-01T00:00:00Z" {
		t.Fatalf("expected one P571 value, got %v", values)
	}
	if values := entity.Attributes["P31"]; len(values) != 1 || values[0] != "Q11862829" {
		t.Fatalf("expected entity prefix stripped from P31 value, got %v", values)
	}
	if entity.Labels["en"] != "computer science" {
		t.Fatalf("expected english label, got %q", entity.Labels["en"])
	}
	if !strings.Contains(receivedQuery, "wdt:P31|wdt:P279 wd:Q21198") {
		t.Fatalf("expected reverse hierarchy clause in query, got %s", receivedQuery)
	}
	if !strings.Contains(receivedQuery, `filter (lang(?label_en) = "en")`) {
		t.Fatalf("expected language filter in query, got %s", receivedQuery)
	}
}

func TestFetchEntityReportsEndpointStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, clientError := NewClient(Options{Endpoint: server.URL, HTTPClient: server.Client()})
	if clientError != nil {
		t.Fatalf("expected client construction to succeed, got %v", clientError)
	}
	_, fetchError := client.FetchEntity(context.Background(), "Q42")
	if fetchError == nil {
		t.Fatal("expected fetch to fail")
	}
	var reported *FetchError
	if !errors.As(fetchError, &reported) {
		t.Fatalf("expected a *FetchError, got %T", fetchError)
	}
	if reported.EntityID != "Q42" {
		t.Fatalf("expected failing entity id Q42, got %s", reported.EntityID)
	}
	if reported.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500 on the error, got %d", reported.StatusCode)
	}
	if !strings.Contains(reported.Error(), "Q42") {
		t.Fatalf("expected error message to identify the entity, got %s", reported.Error())
	}
}

func TestNewClientRejectsUnprefixedLabelPredicate(t *testing.T) {
	t.Parallel()
	_, clientError := NewClient(Options{LabelPredicates: []string{"label"}})
	if clientError == nil {
		t.Fatal("expected an unprefixed label predicate to be rejected")
	}
}

func TestBuildEntityQueryListsEveryConfiguredClaim(t *testing.T) {
	t.Parallel()
	client, clientError := NewClient(Options{
		LookupClaims:        []string{"P571", "P279"},
		HierarchyProperties: []string{"P279"},
		Languages:           []string{"fr"},
	})
	if clientError != nil {
		t.Fatalf("expected client construction to succeed, got %v", clientError)
	}
	query := client.buildEntityQuery("Q5")
	for _, expected := range []string{
		"?child wdt:P279 wd:Q5",
		"wd:Q5 wdt:P571 ?P571",
		"wd:Q5 wdt:P279 ?P279",
		"wd:Q5 rdfs:label ?label_fr",
		"wd:Q5 skos:altLabel ?altLabel_fr",
		"wd:Q5 schema:description ?description_fr",
	} {
		if !strings.Contains(query, expected) {
			t.Fatalf("expected query to contain %q, got %s", expected, query)
		}
	}
}
