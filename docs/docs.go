// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/main.go
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register an operator",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.operatorCredentials"}}],
                "responses": {"201": {"description": "id, username"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Issue an operator token",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.operatorCredentials"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SignInResponse"}}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/operator": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current operator",
                "responses": {"200": {"description": "operator_id"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Dashboard view",
                "description": "Current sample, insight, rolling chart window and polling status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DashboardView"}}}
            }
        },
        "/api/v1/sample": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Current sample",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Sample"}}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/insight": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Current insight",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Insight"}}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/chart": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Chart window",
                "responses": {"200": {"description": "count, samples"}}
            }
        },
        "/api/v1/chart.png": {
            "get": {
                "produces": ["image/png"],
                "tags": ["dashboard"],
                "summary": "Chart image",
                "parameters": [
                    {"type": "integer", "example": 800, "description": "Image width in pixels", "name": "width", "in": "query"},
                    {"type": "integer", "example": 360, "description": "Image height in pixels", "name": "height", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "204": {"description": "No Content"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Polling status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PollingStatus"}}}
            }
        },
        "/api/v1/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Refresh now",
                "responses": {"200": {"description": "status, dashboard"}, "202": {"description": "status"}, "409": {"description": "Conflict"}, "503": {"description": "error, dashboard"}}
            }
        },
        "/api/v1/polling/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["polling"],
                "summary": "Start polling",
                "parameters": [{"description": "Optional interval", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.StartPollingRequest"}}],
                "responses": {"200": {"description": "status, polling"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/v1/polling/stop": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["polling"],
                "summary": "Stop polling",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/polling/mode": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["polling"],
                "summary": "Set mode",
                "parameters": [{"description": "Mode payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetModeRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List dashboard events",
                "parameters": [
                    {"type": "string", "example": "2025-08-01", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "example": "2025-08-31", "description": "End of range. Date-only treated as end of day.", "name": "to", "in": "query"},
                    {"enum": ["START", "STOP", "MODE_CHANGE", "REFRESH", "RESOLVE_FAILED", "RESULT_DISCARDED", "CACHE_INSTALLED", "CACHE_INSTALL_FAILED"], "type": "string", "description": "Event type", "name": "type", "in": "query"},
                    {"type": "integer", "minimum": 1, "maximum": 1000, "description": "Newest N matches", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/cache": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cache"],
                "summary": "Offline cache contents",
                "responses": {"200": {"description": "name, count, paths"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/cache/install": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cache"],
                "summary": "Reinstall offline cache",
                "responses": {"200": {"description": "status, name"}, "401": {"description": "Unauthorized"}, "502": {"description": "Bad Gateway"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["dashboard"],
                "summary": "Dashboard stream",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "handlers.operatorCredentials": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string", "maxLength": 72}, "username": {"type": "string", "maxLength": 64}}
        },
        "handlers.SignInResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "token_type": {"type": "string"}, "expires_in": {"type": "integer"}}
        },
        "handlers.SetModeRequest": {
            "type": "object",
            "properties": {"mode": {"type": "string", "example": "simulated"}}
        },
        "handlers.StartPollingRequest": {
            "type": "object",
            "properties": {"interval": {"type": "string", "example": "5s"}}
        },
        "models.Sample": {
            "type": "object",
            "properties": {
                "temperature_c": {"type": "number"},
                "humidity_pct": {"type": "number"},
                "air_quality": {"description": "number (AQI) or label such as Baik / Buruk"},
                "captured_at": {"type": "string"},
                "source": {"type": "string", "enum": ["local", "remote", "simulated"]}
            }
        },
        "models.Insight": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "level": {"type": "string"},
                "message": {"type": "string"},
                "alert": {"type": "boolean"}
            }
        },
        "models.PollingStatus": {
            "type": "object",
            "properties": {
                "mode": {"type": "string"},
                "running": {"type": "boolean"},
                "interval": {"type": "string"},
                "in_flight": {"type": "boolean"},
                "last_error": {"type": "string"},
                "last_error_at": {"type": "string"},
                "last_success_at": {"type": "string"},
                "consecutive_failures": {"type": "integer"},
                "stale": {"type": "boolean"}
            }
        },
        "models.DashboardView": {
            "type": "object",
            "properties": {
                "sample": {"$ref": "#/definitions/models.Sample"},
                "insight": {"$ref": "#/definitions/models.Insight"},
                "chart": {"type": "array", "items": {"$ref": "#/definitions/models.Sample"}},
                "status": {"$ref": "#/definitions/models.PollingStatus"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Smart Environment Dashboard API",
	Description:      "Temperature, humidity and air quality telemetry with insights, polling control and offline assets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
