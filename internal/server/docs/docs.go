// Package docs holds the swagger document served under /swagger. It follows
// the layout of `swag init` output and is kept in step with the handler
// annotations by hand.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "App Reviewer Maintainers",
            "url": "https://github.com/raysh454/appreviewer"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.HealthResponse"}}
                }
            }
        },
        "/api/v1/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "API status and upload limits",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.APIStatusResponse"}}
                }
            }
        },
        "/api/v1/upload": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Upload a source file",
                "parameters": [
                    {"type": "file", "description": "Source file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/server.FileUploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/api/v1/files": {
            "get": {
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "List uploaded files, newest first",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of files", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/server.FileInfoResponse"}}}
                }
            }
        },
        "/api/v1/files/{fileID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Get file information",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.FileInfoResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Delete an uploaded file and its analysis data",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.DeleteFileResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/api/v1/files/{fileID}/diff": {
            "get": {
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Diff a file against an earlier upload",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true},
                    {"type": "string", "description": "Base file ID", "name": "against", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/upload.Diff"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/api/v1/analyze/{fileID}": {
            "post": {
                "description": "Runs in the background. Poll the status endpoint or subscribe to /ws/analyze/{fileID}.",
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Start analyzing an uploaded file",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "already running", "schema": {"$ref": "#/definitions/server.AnalysisResponse"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/server.AnalysisResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Cancel an analysis or remove its results",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.CancelAnalysisResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/api/v1/analyze/{fileID}/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analysis progress",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.AnalysisStatusResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/api/v1/analyze/{fileID}/result": {
            "get": {
                "description": "success is false while the analysis has not completed.",
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analysis report",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.AnalysisResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/ws/analyze/{fileID}": {
            "get": {
                "description": "Upgrades to a websocket that streams progress and result events. A running analysis is followed, a file without one gets it started and a finished analysis is reported once as its status.",
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analysis progress stream",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileID", "in": "path", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "403": {"description": "Origin not allowed"}
                }
            }
        }
    },
    "definitions": {
        "server.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "timestamp": {"type": "string", "example": "2025-01-01T12:00:00Z"},
                "version": {"type": "string", "example": "1.0.0"}
            }
        },
        "server.APIStatusResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "version": {"type": "string"},
                "upload_endpoint": {"type": "string"},
                "analysis_endpoint": {"type": "string"},
                "supported_file_types": {"type": "array", "items": {"type": "string"}},
                "max_file_size": {"type": "string", "example": "10MB"}
            }
        },
        "server.FileUploadResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "file_id": {"type": "string"},
                "file_name": {"type": "string"},
                "file_size": {"type": "integer"},
                "file_type": {"type": "string"},
                "upload_timestamp": {"type": "string"}
            }
        },
        "server.FileInfoResponse": {
            "type": "object",
            "properties": {
                "file_id": {"type": "string"},
                "file_name": {"type": "string"},
                "file_size": {"type": "integer"},
                "file_type": {"type": "string"},
                "sha256": {"type": "string"},
                "upload_timestamp": {"type": "string"},
                "status": {"type": "string", "example": "uploaded"}
            }
        },
        "server.DeleteFileResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "success"},
                "message": {"type": "string"},
                "file_id": {"type": "string"}
            }
        },
        "server.AnalysisResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "analysis_result": {"type": "object"},
                "error": {"type": "string"}
            }
        },
        "server.AnalysisStatusResponse": {
            "type": "object",
            "properties": {
                "file_id": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "running", "completed", "failed"]},
                "progress": {"type": "integer", "example": 63},
                "message": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "server.CancelAnalysisResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error": {"type": "string", "example": "not found"},
                "details": {"type": "string"}
            }
        },
        "upload.Diff": {
            "type": "object",
            "properties": {
                "base_id": {"type": "string"},
                "head_id": {"type": "string"},
                "added": {"type": "integer"},
                "removed": {"type": "integer"},
                "chunks": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "type": {"type": "string", "enum": ["added", "removed"]},
                            "content": {"type": "string"}
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "App Reviewer API",
	Description:      "Upload app source files and run security, code quality and UI/UX analysis on them.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
