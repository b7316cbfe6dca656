// Package docs registers the OpenAPI document served at /swagger. Regenerate with `swag init -g cmd/server/main.go`.
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
        "/api/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Password login",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/auth/logout": {
            "post": {"tags": ["Auth"], "summary": "Clear session cookies", "responses": {"200": {"description": "OK"}}}
        },
        "/api/auth/password-reset": {
            "post": {"tags": ["Auth"], "summary": "Request a password reset email", "responses": {"200": {"description": "OK"}}}
        },
        "/api/auth/password-update": {
            "post": {"tags": ["Auth"], "summary": "Set a new password", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/auth/resend-verification-code": {
            "post": {"tags": ["Auth"], "summary": "Send a fresh verification code", "responses": {"200": {"description": "OK"}, "429": {"description": "Too Many Requests"}}}
        },
        "/api/verification/start": {
            "post": {"tags": ["Verification"], "summary": "Request a code and open a verification session", "responses": {"200": {"description": "OK"}}}
        },
        "/api/verification/attach": {
            "post": {"tags": ["Verification"], "summary": "Continue a verification whose code the signup flow already sent", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/verification/submit": {
            "post": {"tags": ["Verification"], "summary": "Submit a 6-digit code", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/verification/resend": {
            "post": {"tags": ["Verification"], "summary": "Resend the code once the lock elapses", "responses": {"200": {"description": "OK"}, "429": {"description": "Too Many Requests"}}}
        },
        "/api/verification/retry": {
            "post": {"tags": ["Verification"], "summary": "Clear a failed attempt", "responses": {"200": {"description": "OK"}}}
        },
        "/api/verification/switch": {
            "post": {"tags": ["Verification"], "summary": "Abandon the session for another email", "responses": {"200": {"description": "OK"}}}
        },
        "/api/verification/status": {
            "get": {"tags": ["Verification"], "summary": "Current verification state", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/verification/countdown": {
            "get": {"tags": ["Verification"], "summary": "Resend countdown as server-sent events", "produces": ["text/event-stream"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/prices": {
            "get": {"tags": ["Prices"], "summary": "Crypto price snapshot", "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway"}}}
        },
        "/api/notifications/email": {
            "post": {"tags": ["Notifications"], "security": [{"BearerAuth": []}], "summary": "Send an email notification", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/notifications": {
            "get": {"tags": ["Notifications"], "security": [{"BearerAuth": []}], "summary": "Notification history of the caller", "responses": {"200": {"description": "OK"}}}
        },
        "/api/receipts": {
            "post": {"tags": ["Receipts"], "security": [{"BearerAuth": []}], "summary": "Render a transaction receipt", "responses": {"200": {"description": "OK"}}}
        },
        "/api/uploads/{bucket}": {
            "post": {"tags": ["Uploads"], "security": [{"BearerAuth": []}], "summary": "Upload a file to a storage bucket", "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}}}
        },
        "/api/admin/settings": {
            "get": {"tags": ["Settings"], "security": [{"BearerAuth": []}], "summary": "List platform settings", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/api/admin/settings/{key}": {
            "put": {"tags": ["Settings"], "security": [{"BearerAuth": []}], "summary": "Update a platform setting", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
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
	Title:            "FinPortal API",
	Description:      "Session gateway, email verification and notification dispatch for the FinPortal web app.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
