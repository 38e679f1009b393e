package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ga4gh/loader/utils"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/sirupsen/logrus"
)

// EnsureIndices creates every missing index of mappings.
func EnsureIndices(ctx context.Context, es *elasticsearch.Client, mappings map[string]map[string]interface{}) error {
	for index, mapping := range mappings {
		existsRes, err := es.Indices.Exists([]string{index}, es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("checking index %s: %w", index, err)
		}
		existsRes.Body.Close()
		if existsRes.StatusCode == 200 {
			continue
		}

		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(map[string]interface{}{"mappings": mapping}); err != nil {
			return fmt.Errorf("encoding mapping of %s: %w", index, err)
		}

		createRes, err := es.Indices.Create(index,
			es.Indices.Create.WithContext(ctx),
			es.Indices.Create.WithBody(&buf))
		if err != nil {
			return fmt.Errorf("creating index %s: %w", index, err)
		}
		if err := responseError(createRes.String(), createRes.IsError()); err != nil {
			createRes.Body.Close()
			return fmt.Errorf("creating index %s: %w", index, err)
		}
		createRes.Body.Close()

		logrus.WithField("index", index).Info("created index")
	}
	return nil
}

// DeleteIndices drops the given indices, ignoring missing ones.
func DeleteIndices(ctx context.Context, es *elasticsearch.Client, indices ...string) error {
	res, err := es.Indices.Delete(indices,
		es.Indices.Delete.WithContext(ctx),
		es.Indices.Delete.WithIgnoreUnavailable(true))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError(res.String(), res.IsError())
}

func responseError(resultString string, isError bool) error {
	if !isError {
		return nil
	}
	// response strings come back as '[400 Bad Request] {...}'
	bracketString, jsonBodyString := utils.GetLeadingStringInBetweenSquareBrackets(resultString)
	if bracketString == "" {
		return fmt.Errorf("unexpected response: %s", resultString)
	}
	return fmt.Errorf("%s: %s", strings.Trim(bracketString, "[]"), jsonBodyString)
}
