// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const InstanceName = "swagger"

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"], "summary": "Create an account and receive a token", "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Credentials"}}],
                "responses": {"201": {"description": "created", "schema": {"$ref": "#/definitions/Token"}}, "400": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"], "summary": "Exchange credentials for a token", "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Credentials"}}],
                "responses": {"200": {"description": "ok", "schema": {"$ref": "#/definitions/Token"}}, "401": {"$ref": "#/responses/Error"}}
            }
        },
        "/me": {"get": {"tags": ["profile"], "summary": "Current user", "responses": {"200": {"description": "ok"}}}},
        "/onboarding": {"post": {"tags": ["profile"], "summary": "Store preferences and create default trackers", "responses": {"200": {"description": "ok"}, "400": {"$ref": "#/responses/Error"}}}},
        "/suggestions/daily": {"get": {"tags": ["profile"], "summary": "Today's suggestions, cached per user and day", "responses": {"200": {"description": "ok"}, "404": {"$ref": "#/responses/Error"}}}},
        "/devices": {"post": {"tags": ["profile"], "summary": "Register a push token", "responses": {"204": {"description": "registered"}}}},
        "/devices/{token}": {"delete": {"tags": ["profile"], "summary": "Remove a push token", "parameters": [{"in": "path", "name": "token", "required": true, "type": "string"}], "responses": {"204": {"description": "removed"}}}},
        "/trackers": {
            "get": {"tags": ["trackers"], "summary": "List trackers", "parameters": [{"in": "query", "name": "active", "type": "boolean"}], "responses": {"200": {"description": "ok"}}},
            "post": {"tags": ["trackers"], "summary": "Create a tracker", "responses": {"201": {"description": "created"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/trackers/{id}": {
            "get": {"tags": ["trackers"], "summary": "Get a tracker", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "ok"}, "404": {"$ref": "#/responses/Error"}}},
            "put": {"tags": ["trackers"], "summary": "Update a tracker (version checked)", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "ok"}, "409": {"$ref": "#/responses/Error"}}},
            "delete": {"tags": ["trackers"], "summary": "Delete a tracker", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"204": {"description": "deleted"}}}
        },
        "/trackers/{id}/streak": {"get": {"tags": ["trackers"], "summary": "Streak of a tracker", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "ok"}, "404": {"$ref": "#/responses/Error"}}}},
        "/streaks": {"get": {"tags": ["trackers"], "summary": "All streaks of the user", "responses": {"200": {"description": "ok"}}}},
        "/entries": {
            "get": {"tags": ["entries"], "summary": "Entries of a tracker", "parameters": [{"in": "query", "name": "tracker_id", "required": true, "type": "string"}, {"$ref": "#/parameters/From"}, {"$ref": "#/parameters/To"}], "responses": {"200": {"description": "ok"}}},
            "post": {"tags": ["entries"], "summary": "Submit an entry", "responses": {"201": {"description": "created"}, "400": {"$ref": "#/responses/Error"}, "404": {"$ref": "#/responses/Error"}}}
        },
        "/entries/{id}": {
            "get": {"tags": ["entries"], "summary": "Get an entry", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "ok"}}},
            "delete": {"tags": ["entries"], "summary": "Delete an entry", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"204": {"description": "deleted"}}}
        },
        "/journal": {
            "get": {"tags": ["entries"], "summary": "Journal entries", "parameters": [{"$ref": "#/parameters/From"}, {"$ref": "#/parameters/To"}], "responses": {"200": {"description": "ok"}}},
            "post": {"tags": ["entries"], "summary": "Write a journal entry", "responses": {"201": {"description": "created"}}}
        },
        "/stats/daily": {"get": {"tags": ["stats"], "summary": "Daily stats in a range", "parameters": [{"$ref": "#/parameters/From"}, {"$ref": "#/parameters/To"}], "responses": {"200": {"description": "ok"}}}},
        "/stats/weekly": {"get": {"tags": ["stats"], "summary": "Per-tracker completion over a period", "responses": {"200": {"description": "ok"}}}},
        "/stats/recalculate": {"post": {"tags": ["stats"], "summary": "Recompute one day", "responses": {"200": {"description": "ok"}}}},
        "/stats/backfill": {"post": {"tags": ["stats"], "summary": "Recompute a range of days", "responses": {"200": {"description": "ok"}}}},
        "/achievements": {"get": {"tags": ["achievements"], "summary": "Catalog with the user's progress", "responses": {"200": {"description": "ok"}}}},
        "/achievements/level": {"get": {"tags": ["achievements"], "summary": "Points and level", "responses": {"200": {"description": "ok"}}}},
        "/recommendations": {"post": {"tags": ["recommendations"], "summary": "Suggested trackers", "responses": {"200": {"description": "ok"}, "400": {"$ref": "#/responses/Error"}}}},
        "/feed": {"get": {"tags": ["feed"], "summary": "Posts and activities, newest first", "parameters": [{"in": "query", "name": "limit", "type": "integer"}, {"in": "query", "name": "before", "type": "string", "format": "date-time"}], "responses": {"200": {"description": "ok"}}}},
        "/feed/generate": {"post": {"tags": ["feed"], "summary": "Generate a post now", "responses": {"201": {"description": "created"}, "204": {"description": "nothing to post"}}}},
        "/feed/{id}/like": {"post": {"tags": ["feed"], "summary": "Like a post, or undo the like", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "ok"}, "404": {"$ref": "#/responses/Error"}}}},
        "/feed/{id}/comments": {
            "get": {"tags": ["feed"], "summary": "Comments, newest first", "parameters": [{"$ref": "#/parameters/ID"}, {"in": "query", "name": "limit", "type": "integer"}, {"in": "query", "name": "before", "type": "string", "format": "date-time"}], "responses": {"200": {"description": "ok"}, "404": {"$ref": "#/responses/Error"}}},
            "post": {"tags": ["feed"], "summary": "Comment on a post", "parameters": [{"$ref": "#/parameters/ID"}, {"in": "body", "name": "comment", "required": true, "schema": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string", "maxLength": 500}}}}], "responses": {"201": {"description": "created"}, "400": {"$ref": "#/responses/Error"}, "404": {"$ref": "#/responses/Error"}}}
        },
        "/dev/seed": {"post": {"tags": ["dev"], "summary": "Seed test data (development only)", "responses": {"201": {"description": "seeded"}, "403": {"$ref": "#/responses/Error"}}}}
    },
    "parameters": {
        "ID": {"in": "path", "name": "id", "required": true, "type": "string"},
        "From": {"in": "query", "name": "from", "type": "string", "format": "date"},
        "To": {"in": "query", "name": "to", "type": "string", "format": "date"}
    },
    "responses": {
        "Error": {"description": "error", "schema": {"$ref": "#/definitions/Error"}}
    },
    "definitions": {
        "Credentials": {"type": "object", "required": ["email", "password"], "properties": {"email": {"type": "string"}, "password": {"type": "string"}, "display_name": {"type": "string"}}},
        "Token": {"type": "object", "properties": {"token": {"type": "string"}, "expires_at": {"type": "string", "format": "date-time"}, "user": {"type": "object"}}},
        "Error": {"type": "object", "properties": {"error": {"type": "string"}, "message": {"type": "string"}}}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Regen API",
	Description:      "Wellness tracking: trackers, streaks, achievements, stats and the personal feed.",
	InfoInstanceName: InstanceName,
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
