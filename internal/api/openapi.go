package api

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"legal-rag-service/internal/api/handlers"
	"legal-rag-service/internal/api/response"
)

var (
	openAPIOnce sync.Once
	openAPIDoc  *openapi3.T
)

// ServeOpenAPI handles GET /openapi.json
func ServeOpenAPI(w http.ResponseWriter, r *http.Request) {
	openAPIOnce.Do(func() { openAPIDoc = buildOpenAPIDoc() })
	response.JSON(w, http.StatusOK, openAPIDoc)
}

func buildOpenAPIDoc() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Legal RAG Service",
			Description: "Retrieval-augmented search, Q&A and content generation over a Korean legal document corpus.",
			Version:     handlers.Version,
		},
		Paths: openapi3.NewPaths(),
	}

	doc.Paths.Set("/api/v1/search", &openapi3.PathItem{
		Post: jsonOperation("search", "Search legal documents",
			requestBody(objectSchema(map[string]*openapi3.Schema{
				"query":          openapi3.NewStringSchema(),
				"n_results":      openapi3.NewIntegerSchema(),
				"document_types": stringArraySchema(),
				"category":       openapi3.NewStringSchema(),
				"sub_category":   openapi3.NewStringSchema(),
			}, "query")),
		),
		Get: jsonOperation("searchGet", "Search legal documents via query parameters", nil),
	})
	doc.Paths.Set("/api/v1/ask", &openapi3.PathItem{
		Post: jsonOperation("ask", "Answer a legal question with retrieved context",
			requestBody(objectSchema(map[string]*openapi3.Schema{
				"query":          openapi3.NewStringSchema(),
				"session_id":     openapi3.NewStringSchema(),
				"stream":         openapi3.NewBoolSchema(),
				"document_types": stringArraySchema(),
			}, "query")),
		),
	})
	doc.Paths.Set("/api/v1/ask/stream", &openapi3.PathItem{
		Post: jsonOperation("askStream", "Answer a legal question as a server-sent event stream",
			requestBody(objectSchema(map[string]*openapi3.Schema{
				"query":          openapi3.NewStringSchema(),
				"session_id":     openapi3.NewStringSchema(),
				"document_types": stringArraySchema(),
			}, "query")),
		),
	})
	doc.Paths.Set("/api/v1/generate", &openapi3.PathItem{
		Post: jsonOperation("generate", "Generate long-form legal content",
			requestBody(objectSchema(map[string]*openapi3.Schema{
				"topic":            openapi3.NewStringSchema(),
				"content_type":     openapi3.NewStringSchema().WithEnum("blog", "article", "opinion", "analysis", "faq"),
				"style":            openapi3.NewStringSchema(),
				"target_length":    openapi3.NewIntegerSchema(),
				"include_sections": stringArraySchema(),
				"keywords":         stringArraySchema(),
				"document_types":   stringArraySchema(),
				"n_references":     openapi3.NewIntegerSchema(),
			}, "topic", "content_type")),
		),
	})
	doc.Paths.Set("/api/v1/health", &openapi3.PathItem{
		Get: jsonOperation("health", "Service liveness", nil),
	})
	doc.Paths.Set("/api/v1/health/detailed", &openapi3.PathItem{
		Get: jsonOperation("healthDetailed", "Per-component health", nil),
	})
	doc.Paths.Set("/api/v1/admin/index", &openapi3.PathItem{
		Post: jsonOperation("adminIndex", "Index a document directory",
			requestBody(objectSchema(map[string]*openapi3.Schema{
				"directory": openapi3.NewStringSchema(),
				"pattern":   openapi3.NewStringSchema(),
				"chunk":     openapi3.NewBoolSchema(),
				"recursive": openapi3.NewBoolSchema(),
			}, "directory")),
		),
	})
	doc.Paths.Set("/api/v1/admin/index/incremental", &openapi3.PathItem{
		Post: jsonOperation("adminIndexIncremental", "Incrementally index new or changed documents", nil),
	})
	doc.Paths.Set("/api/v1/admin/index/status", &openapi3.PathItem{
		Get: jsonOperation("adminIndexStatus", "Read the index state", nil),
	})
	doc.Paths.Set("/api/v1/admin/index/reset", &openapi3.PathItem{
		Post: jsonOperation("adminIndexReset", "Drop the collection and clear the index state", nil),
	})
	doc.Paths.Set("/api/v1/admin/upload", &openapi3.PathItem{
		Post: jsonOperation("adminUpload", "Upload and index one document file", nil),
	})
	doc.Paths.Set("/api/v1/monitoring/stats", &openapi3.PathItem{
		Get: jsonOperation("monitoringStats", "API, search and LLM statistics", nil),
	})
	doc.Paths.Set("/api/v1/monitoring/vector-db", &openapi3.PathItem{
		Get: jsonOperation("monitoringVectorDB", "Vector store status and recent health summary", nil),
	})
	return doc
}

func jsonOperation(id, summary string, body *openapi3.RequestBodyRef) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	op.RequestBody = body
	op.AddResponse(200, openapi3.NewResponse().
		WithDescription("OK").
		WithJSONSchema(openapi3.NewObjectSchema()))
	return op
}

func requestBody(schema *openapi3.Schema) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchema(schema),
	}
}

func objectSchema(properties map[string]*openapi3.Schema, required ...string) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for name, prop := range properties {
		schema.WithProperty(name, prop)
	}
	schema.Required = required
	return schema
}

func stringArraySchema() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
}
