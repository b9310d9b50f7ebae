package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CTP Admin API",
        "description": "Competency training program administration",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, refresh, logout"},
        {"name": "TrainingRequests", "description": "Training request lifecycle"},
        {"name": "TrainingBatches", "description": "Batches, roster, attendance and homework"},
        {"name": "Approvals", "description": "Validation project approvals and schedule requests"},
        {"name": "Roles", "description": "Roles and per-module permissions"},
        {"name": "Users", "description": "Administrative accounts"},
        {"name": "ActivityLogs", "description": "Audit trail"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/training-requests": {
            "get": {
                "tags": ["TrainingRequests"],
                "summary": "List training requests",
                "parameters": [
                    {"name": "learnerId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["TrainingRequests"],
                "summary": "Open a training request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTrainingRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/training-batches": {
            "get": {
                "tags": ["TrainingBatches"],
                "summary": "List training batches",
                "parameters": [
                    {"name": "competency", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "name", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["TrainingBatches"],
                "summary": "Create a batch with sessions and initial roster",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/training-batches/{id}/attendance": {
            "patch": {
                "tags": ["TrainingBatches"],
                "summary": "Mark attendance for one session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttendanceUpdateRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Sequence violation", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateTrainingRequestRequest": {
            "type": "object",
            "properties": {
                "learner_id": {"type": "string"},
                "competency_level_id": {"type": "string"}
            }
        },
        "SaveBatchRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "competency_level_id": {"type": "string"},
                "trainer_id": {"type": "string"},
                "session_count": {"type": "integer"},
                "capacity": {"type": "integer"},
                "learner_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AttendanceUpdateRequest": {
            "type": "object",
            "properties": {
                "session_number": {"type": "integer"},
                "attendance": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "learner_id": {"type": "string"},
                            "attended": {"type": "boolean"}
                        }
                    }
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "pagination": {"$ref": "#/definitions/Pagination"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
