package httpapi

import (
	"github.com/invopop/jsonschema"

	"github.com/conhub/rde/internal/model"
)

// schemaFor generates a JSON Schema by reflection — GET /schema is pure
// API ergonomics, not a classifier input.
func schemaFor(v any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

type schemaResponse struct {
	Query       any `json:"query"`
	QueryResult any `json:"query_result"`
}

func buildSchemaResponse() schemaResponse {
	return schemaResponse{
		Query:       schemaFor(&model.Query{}),
		QueryResult: schemaFor(&model.QueryResult{}),
	}
}
