package api

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractYAML []byte

// ContractYAML returns the raw OpenAPI document of the remote API.
func ContractYAML() []byte {
	out := make([]byte, len(contractYAML))
	copy(out, contractYAML)
	return out
}

// Contract parses and validates the embedded OpenAPI document.
func Contract(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load api contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid api contract: %w", err)
	}
	return doc, nil
}
