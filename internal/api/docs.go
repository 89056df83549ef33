package api

import (
    "net/http"

    yaml "gopkg.in/yaml.v3"
)

// openAPIDoc describes the public surface. Kept in code so the served
// document never drifts from the handlers.
func openAPIDoc() map[string]any {
    problem := map[string]any{"$ref": "#/components/schemas/Problem"}
    return map[string]any{
        "openapi": "3.0.3",
        "info": map[string]any{
            "title":   "routeplan API",
            "version": "1.0.0",
        },
        "paths": map[string]any{
            "/v1/plans": map[string]any{
                "post": map[string]any{
                    "summary": "Solve a routing problem and persist the plan",
                    "requestBody": map[string]any{
                        "required": true,
                        "content": map[string]any{"application/json": map[string]any{
                            "schema": map[string]any{"$ref": "#/components/schemas/PlanRequest"},
                        }},
                    },
                    "responses": map[string]any{
                        "200": map[string]any{"description": "Solved plan"},
                        "400": map[string]any{"description": "Invalid request or problem", "content": map[string]any{"application/problem+json": map[string]any{"schema": problem}}},
                        "422": map[string]any{"description": "Proven infeasible", "content": map[string]any{"application/problem+json": map[string]any{"schema": problem}}},
                        "502": map[string]any{"description": "Matrix fetch failed", "content": map[string]any{"application/problem+json": map[string]any{"schema": problem}}},
                        "504": map[string]any{"description": "Search time limit exceeded", "content": map[string]any{"application/problem+json": map[string]any{"schema": problem}}},
                    },
                },
                "get": map[string]any{
                    "summary": "List plans",
                    "parameters": []any{
                        map[string]any{"name": "status", "in": "query", "schema": map[string]any{"type": "string"}},
                        map[string]any{"name": "cursor", "in": "query", "schema": map[string]any{"type": "string"}},
                        map[string]any{"name": "limit", "in": "query", "schema": map[string]any{"type": "integer"}},
                    },
                    "responses": map[string]any{"200": map[string]any{"description": "Plan page"}},
                },
            },
            "/v1/plans/{id}": map[string]any{
                "get": map[string]any{
                    "summary": "Fetch a plan by id",
                    "parameters": []any{
                        map[string]any{"name": "id", "in": "path", "required": true, "schema": map[string]any{"type": "string"}},
                    },
                    "responses": map[string]any{
                        "200": map[string]any{"description": "Plan"},
                        "404": map[string]any{"description": "Not found"},
                    },
                },
            },
            "/v1/plans/{id}/events": map[string]any{
                "get": map[string]any{
                    "summary":   "Server-sent plan event stream",
                    "responses": map[string]any{"200": map[string]any{"description": "text/event-stream"}},
                },
            },
            "/v1/ws": map[string]any{
                "get": map[string]any{
                    "summary": "WebSocket plan event stream",
                    "parameters": []any{
                        map[string]any{"name": "planId", "in": "query", "required": true, "schema": map[string]any{"type": "string"}},
                    },
                    "responses": map[string]any{"101": map[string]any{"description": "Switching protocols"}},
                },
            },
            "/healthz": map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "Build info"}}}},
            "/readyz":  map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "Ready"}}}},
            "/metrics": map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "Prometheus exposition"}}}},
        },
        "components": map[string]any{
            "schemas": map[string]any{
                "Problem": map[string]any{
                    "type": "object",
                    "properties": map[string]any{
                        "type":     map[string]any{"type": "string"},
                        "title":    map[string]any{"type": "string"},
                        "status":   map[string]any{"type": "integer"},
                        "detail":   map[string]any{"type": "string"},
                        "instance": map[string]any{"type": "string"},
                    },
                },
                "PlanRequest": map[string]any{
                    "type":     "object",
                    "required": []any{"locations", "vehicles", "horizon"},
                    "properties": map[string]any{
                        "locations": map[string]any{"type": "array", "items": map[string]any{
                            "type": "object",
                            "properties": map[string]any{
                                "label": map[string]any{"type": "string"},
                                "lat":   map[string]any{"type": "number"},
                                "lng":   map[string]any{"type": "number"},
                            },
                        }},
                        "vehicles": map[string]any{"type": "array", "items": map[string]any{
                            "type": "object",
                            "properties": map[string]any{
                                "start": map[string]any{"type": "integer"},
                                "end":   map[string]any{"type": "integer"},
                                "breaks": map[string]any{"type": "array", "items": map[string]any{
                                    "type": "object",
                                    "properties": map[string]any{
                                        "duration":      map[string]any{"type": "integer"},
                                        "earliestStart": map[string]any{"type": "integer"},
                                        "latestStart":   map[string]any{"type": "integer"},
                                    },
                                }},
                            },
                        }},
                        "matrix":             map[string]any{"type": "array", "items": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}}},
                        "horizon":            map[string]any{"type": "integer"},
                        "serviceTime":        map[string]any{"type": "integer"},
                        "searchLimitSeconds": map[string]any{"type": "number"},
                        "seed":               map[string]any{"type": "integer"},
                    },
                },
            },
        },
    }
}

// OpenAPIHandler serves the OpenAPI spec as YAML
func (s *Server) OpenAPIHandler(w http.ResponseWriter, r *http.Request) {
    b, err := yaml.Marshal(openAPIDoc())
    if err != nil { writeProblem(w, 500, "OpenAPI not available", err.Error(), r.URL.Path); return }
    w.Header().Set("Content-Type", "application/yaml")
    w.WriteHeader(200)
    _, _ = w.Write(b)
}
