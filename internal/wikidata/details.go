package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	detailsAction      = "wbgetentities"
	detailsProps       = "claims"
	detailsFormat      = "json"
	precisionKeySuffix = "_precision"

	snakValueEntity = "wikibase-entityid"
	snakValueTime   = "time"
	snakValueString = "string"
)

// claimSnak is one value assertion inside a statement: the main value or a
// qualifier value.
type claimSnak struct {
	Datavalue struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"datavalue"`
}

// claimStatement is one statement of a claim together with its qualifiers.
type claimStatement struct {
	Mainsnak   claimSnak              `json:"mainsnak"`
	Qualifiers map[string][]claimSnak `json:"qualifiers"`
}

// entityDetailsResponse is the wbgetentities envelope reduced to claims.
type entityDetailsResponse struct {
	Entities map[string]struct {
		Claims map[string][]claimStatement `json:"claims"`
	} `json:"entities"`
}

// FetchClaimDetails retrieves the entity's statements from the action API and
// flattens them into attribute cells: one key per configured claim, a
// "<claim>_precision" key for time values, and one "<claim>_<qualifier>" key
// per qualifier. Claims outside the configured lookup set are dropped.
func (client *Client) FetchClaimDetails(ctx context.Context, entityID string) (map[string][]string, error) {
	query := url.Values{}
	query.Set("action", detailsAction)
	query.Set("ids", entityID)
	query.Set("props", detailsProps)
	query.Set("format", detailsFormat)
	request, requestError := http.NewRequestWithContext(ctx, http.MethodGet, client.entityEndpoint+"?"+query.Encode(), nil)
	if requestError != nil {
		return nil, wrapFetchError(entityID, requestError)
	}
	response, responseError := client.client.Do(request)
	if responseError != nil {
		return nil, wrapFetchError(entityID, responseError)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, wrapFetchError(entityID, statusError(response.StatusCode))
	}
	var decoded entityDetailsResponse
	if decodeError := json.NewDecoder(response.Body).Decode(&decoded); decodeError != nil {
		return nil, wrapFetchError(entityID, fmt.Errorf("decode entity details: %w", decodeError))
	}
	entity, found := decoded.Entities[entityID]
	if !found {
		return nil, wrapFetchError(entityID, fmt.Errorf("entity missing from details response"))
	}

	lookup := make(map[string]struct{}, len(client.lookupClaims))
	for _, claim := range client.lookupClaims {
		lookup[claim] = struct{}{}
	}

	details := map[string][]string{}
	recorded := map[string]struct{}{}
	record := func(key, value string) {
		valueKey := key + "\x00" + value
		if _, seen := recorded[valueKey]; seen {
			return
		}
		recorded[valueKey] = struct{}{}
		details[key] = append(details[key], value)
	}
	for claimID, statements := range entity.Claims {
		if _, wanted := lookup[claimID]; !wanted {
			continue
		}
		for _, statement := range statements {
			value, precision, extracted := extractSnakValue(statement.Mainsnak)
			if extracted {
				record(claimID, value)
				if precision != "" {
					record(claimID+precisionKeySuffix, precision)
				}
			}
			for qualifierID, snaks := range statement.Qualifiers {
				qualifierKey := claimID + "_" + qualifierID
				for _, snak := range snaks {
					qualifierValue, qualifierPrecision, qualifierExtracted := extractSnakValue(snak)
					if !qualifierExtracted {
						continue
					}
					record(qualifierKey, qualifierValue)
					if qualifierPrecision != "" {
						record(qualifierKey+precisionKeySuffix, qualifierPrecision)
					}
				}
			}
		}
	}
	return details, nil
}

// extractSnakValue pulls the textual value out of a snak by datavalue type.
// Time values additionally report their precision. Unsupported types are
// skipped, not an error.
func extractSnakValue(snak claimSnak) (string, string, bool) {
	switch snak.Datavalue.Type {
	case snakValueEntity:
		var entity struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(snak.Datavalue.Value, &entity) != nil || entity.ID == "" {
			return "", "", false
		}
		return entity.ID, "", true
	case snakValueTime:
		var moment struct {
			Time      string `json:"time"`
			Precision int    `json:"precision"`
		}
		if json.Unmarshal(snak.Datavalue.Value, &moment) != nil || moment.Time == "" {
			return "", "", false
		}
		return moment.Time, strconv.Itoa(moment.Precision), true
	case snakValueString:
		var text string
		if json.Unmarshal(snak.Datavalue.Value, &text) != nil {
			return "", "", false
		}
		return text, "", true
	}
	return "", "", false
}
