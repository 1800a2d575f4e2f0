// Package docs 用户服务 API 的 OpenAPI 描述，注册到 swag 供 gin-swagger 使用
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
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "列出用户",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/users.Response"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/users.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "创建用户",
                "parameters": [
                    {"description": "用户信息", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/users.CreateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/users.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/users.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/users.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/users.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "users.CreateRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "minLength": 4},
                "email": {"type": "string", "format": "email"},
                "password": {"type": "string", "minLength": 6}
            }
        },
        "users.Response": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "status": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "users.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo API 元信息，运行时可修改 Host 等字段
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Katydid Register Users API",
	Description:      "Create and list users for the registration screen.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
