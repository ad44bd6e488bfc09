// Package docs holds the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/score": {
            "post": {
                "description": "Generates a continuation for every input string, in order.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["scoring"],
                "summary": "Score a batch of prompts",
                "parameters": [
                    {
                        "description": "Request envelope",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.ScoreRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ScoreResult"}},
                    "400": {"description": "Malformed input", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Generation error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Model not initialized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Model and session status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {"tags": ["ops"], "summary": "Liveness", "responses": {"200": {"description": "ok"}}}
        },
        "/readyz": {
            "get": {
                "tags": ["ops"],
                "summary": "Readiness",
                "responses": {"200": {"description": "ready"}, "503": {"description": "loading"}}
            }
        }
    },
    "definitions": {
        "types.ScoreRequest": {
            "type": "object",
            "properties": {
                "inputs": {"$ref": "#/definitions/types.ScoreInputs"}
            }
        },
        "types.ScoreInputs": {
            "type": "object",
            "properties": {
                "input_str": {"type": "array", "items": {"type": "string"}, "example": ["The capital of France is"]},
                "params": {"type": "object", "additionalProperties": true}
            }
        },
        "types.ScoreResult": {
            "type": "object",
            "properties": {
                "result": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"}
            }
        },
        "types.SessionStatus": {
            "type": "object",
            "properties": {
                "device": {"type": "string", "example": "cuda"},
                "state": {"type": "string", "example": "ready"},
                "last_used_unix": {"type": "integer"},
                "inflight": {"type": "integer"},
                "waiting": {"type": "integer"},
                "generations": {"type": "integer"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "backend": {"type": "string"},
                "model_dir": {"type": "string"},
                "gpu_available": {"type": "boolean"},
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/types.SessionStatus"}},
                "last_error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"},
                "runs_total": {"type": "integer"},
                "loads_total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "scored API",
	Description:      "HTTP scoring endpoint for a causal language model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
