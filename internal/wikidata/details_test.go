package wikidata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const detailsResultPayload = `{
  "entities": {
    "Q21198": {
      "claims": {
        "P571": [
          {
            "mainsnak": {
              "datavalue": {"type": "time", "value": {"time": "+1991-08-06T00:00:00Z", "precision": 11}}
            },
            "qualifiers": {
              "P580": [
                {"datavalue": {"type": "time", "value": {"time": "+1989-03-12T00:00:00Z", "precision": 11}}}
              ]
            }
          }
        ],
        "P178": [
          {"mainsnak": {"datavalue": {"type": "wikibase-entityid", "value": {"id": "Q80"}}}}
        ],
        "P348": [
          {"mainsnak": {"datavalue": {"type": "string", "value": "1.0"}}},
          {"mainsnak": {"datavalue": {"type": "string", "value": "1.0"}}}
        ],
        "P9999": [
          {"mainsnak": {"datavalue": {"type": "string", "value": "unrequested"}}}
        ]
      }
    }
  }
}`

func TestFetchClaimDetailsFlattensStatementsByDatatype(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if action := request.URL.Query().Get("action"); action != "wbgetentities" {
			t.Errorf("expected a wbgetentities request, got action %q", action)
		}
		if ids := request.URL.Query().Get("ids"); ids != "Q21198" {
			t.Errorf("expected entity Q21198 to be requested, got %q", ids)
		}
		writer.Write([]byte(detailsResultPayload))
	}))
	defer server.Close()

	client, clientError := NewClient(Options{
		EntityEndpoint: server.URL,
		HTTPClient:     server.Client(),
		LookupClaims:   []string{"P571", "P178", "P348"},
	})
	if clientError != nil {
		t.Fatalf("expected client construction to succeed, got %v", clientError)
	}
	details, fetchError := client.FetchClaimDetails(context.Background(), "Q21198")
	if fetchError != nil {
		t.Fatalf("expected detail fetch to succeed, got %v", fetchError)
	}
	expected := map[string][]string{
		"P571":                {"+1991-08-06T00:00:00Z"},
		"P571_precision":      {"11"},
		"P571_P580":           {"+1989-03-12T00:00:00Z"},
		"P571_P580_precision": {"11"},
		"P178":                {"Q80"},
		"P348":                {"1.0"},
	}
	if difference := cmp.Diff(expected, details); difference != "" {
		t.Fatalf("unexpected flattened details (-want +got):\n%s", difference)
	}
}

func TestFetchClaimDetailsReportsMissingEntity(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{"entities": {}}`))
	}))
	defer server.Close()

	client, clientError := NewClient(Options{EntityEndpoint: server.URL, HTTPClient: server.Client()})
	if clientError != nil {
		t.Fatalf("expected client construction to succeed, got %v", clientError)
	}
	_, fetchError := client.FetchClaimDetails(context.Background(), "Q404")
	var reported *FetchError
	if !errors.As(fetchError, &reported) {
		t.Fatalf("expected a *FetchError, got %v", fetchError)
	}
	if reported.EntityID != "Q404" {
		t.Fatalf("expected failing entity id Q404, got %s", reported.EntityID)
	}
}

func TestFetchClaimDetailsReportsEndpointStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, clientError := NewClient(Options{EntityEndpoint: server.URL, HTTPClient: server.Client()})
	if clientError != nil {
		t.Fatalf("expected client construction to succeed, got %v", clientError)
	}
	_, fetchError := client.FetchClaimDetails(context.Background(), "Q42")
	var reported *FetchError
	if !errors.As(fetchError, &reported) {
		t.Fatalf("expected a *FetchError, got %v", fetchError)
	}
	if reported.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502 on the error, got %d", reported.StatusCode)
	}
}
