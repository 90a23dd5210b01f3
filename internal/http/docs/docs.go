// Package docs holds the OpenAPI document served by the Swagger UI. It is
// kept in sync with the handler annotations by running
// `swag init -g internal/http/router.go -o internal/http/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/generate": {
            "post": {
                "tags": ["Generation"],
                "summary": "Generate a post",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.GenerateBody"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/generate/status": {
            "get": {
                "tags": ["Generation"],
                "summary": "Generation quota",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.RateLimitStatus"}}
                }
            }
        },
        "/posts/{id}/iterate": {
            "post": {
                "tags": ["Versions"],
                "summary": "Create a new version",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.IterateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.IterateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/versions": {
            "get": {
                "tags": ["Versions"],
                "summary": "List versions",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.VersionsResponse"}},
                    "304": {"description": "Not Modified"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/versions/{versionId}/select": {
            "post": {
                "tags": ["Versions"],
                "summary": "Select a version",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "format": "uuid", "name": "versionId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/profiles": {
            "get": {"tags": ["Catalog"], "summary": "List profiles", "responses": {"200": {"description": "OK"}}}
        },
        "/platforms": {
            "get": {"tags": ["Catalog"], "summary": "List platforms", "responses": {"200": {"description": "OK"}}}
        },
        "/projects": {
            "get": {"tags": ["Catalog"], "summary": "List projects", "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "definitions": {
        "domain.GenerateBody": {
            "type": "object",
            "required": ["profileId", "rawIdea"],
            "properties": {
                "profileId": {"type": "string"},
                "projectId": {"type": "string"},
                "platformId": {"type": "string"},
                "goal": {"type": "string"},
                "rawIdea": {"type": "string"},
                "variants": {"type": "integer", "minimum": 0, "maximum": 4}
            }
        },
        "domain.GenerateResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "data": {"type": "object"},
                "rateLimit": {"$ref": "#/definitions/domain.RateLimitStatus"}
            }
        },
        "domain.IterateRequest": {
            "type": "object",
            "properties": {
                "feedback": {"type": "string"},
                "iterationType": {"type": "string", "enum": ["shorter", "longer", "casual", "professional", "hook"]}
            }
        },
        "domain.RateLimitStatus": {
            "type": "object",
            "properties": {
                "remaining": {"type": "integer"},
                "total": {"type": "integer"},
                "resetAt": {"type": "string", "format": "date-time"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "requestId": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"},
                "statusCode": {"type": "integer"},
                "errors": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
                    }
                }
            }
        },
        "domain.IterateResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "data": {"type": "object"},
                "rateLimit": {"$ref": "#/definitions/domain.RateLimitStatus"}
            }
        },
        "handlers.VersionsResponse": {
            "type": "object",
            "properties": {"data": {"type": "object"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Post Generation API",
	Description:      "Generates social media posts and manages their version history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
