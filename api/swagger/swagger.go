package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Kita API",
        "description": "Personal-data lifecycle service for the kita platform",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "GDPR", "description": "Soft deletion, retention and audit trail"},
        {"name": "Deletion Requests", "description": "User-initiated deletion workflow"},
        {"name": "Compliance", "description": "Compliance reporting and anomaly detection"},
        {"name": "Export", "description": "Personal data export"},
        {"name": "Backup", "description": "Backup verification"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/gdpr/soft-delete/{entity}/{id}": {
            "post": {
                "tags": ["GDPR"],
                "summary": "Soft-delete a record and its dependents",
                "parameters": [
                    {"name": "entity", "in": "path", "required": true, "type": "string", "enum": ["user", "child", "group", "institution"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SoftDeleteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Deleted (or no-op)", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Record not found"},
                    "409": {"description": "Already deleted or dependents still active"}
                }
            }
        },
        "/api/v1/gdpr/pending-deletions": {
            "get": {
                "tags": ["GDPR"],
                "summary": "List soft-deleted records awaiting permanent erasure",
                "parameters": [
                    {"name": "types", "in": "query", "type": "string", "description": "comma-separated entity types"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/audit-logs": {
            "get": {
                "tags": ["GDPR"],
                "summary": "Query the privacy audit trail",
                "parameters": [
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "actor", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/cleanup": {
            "post": {
                "tags": ["GDPR"],
                "summary": "Run the retention purge now",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CleanupRequest"}}
                ],
                "responses": {
                    "200": {"description": "Purge result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A purge run is already in progress"}
                }
            }
        },
        "/api/v1/gdpr/retention-periods": {
            "get": {
                "tags": ["GDPR"],
                "summary": "Effective retention periods per entity type",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/complaints": {
            "post": {
                "tags": ["GDPR"],
                "summary": "File a privacy complaint",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ComplaintRequest"}}
                ],
                "responses": {
                    "201": {"description": "Recorded"}
                }
            }
        },
        "/api/v1/gdpr/request-delete/{userId}": {
            "post": {
                "tags": ["Deletion Requests"],
                "summary": "Request deletion of a user account",
                "parameters": [
                    {"name": "userId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DeletionRequestCreate"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A pending request already exists"}
                }
            }
        },
        "/api/v1/gdpr/requests": {
            "get": {
                "tags": ["Deletion Requests"],
                "summary": "List deletion requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/requests/{id}": {
            "get": {
                "tags": ["Deletion Requests"],
                "summary": "Fetch a deletion request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/gdpr/requests/{id}/approve": {
            "post": {
                "tags": ["Deletion Requests"],
                "summary": "Approve a pending deletion request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Approved, user soft-deleted"},
                    "409": {"description": "Request is not pending"}
                }
            }
        },
        "/api/v1/gdpr/requests/{id}/reject": {
            "post": {
                "tags": ["Deletion Requests"],
                "summary": "Reject a pending deletion request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rejected"},
                    "409": {"description": "Request is not pending"}
                }
            }
        },
        "/api/v1/gdpr/export/{userId}": {
            "get": {
                "tags": ["Export"],
                "summary": "Export a user's personal data",
                "parameters": [
                    {"name": "userId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv", "pdf"]},
                    {"name": "mode", "in": "query", "type": "string", "enum": ["inline", "attachment"]}
                ],
                "responses": {
                    "200": {"description": "Export payload"},
                    "403": {"description": "Not your data"}
                }
            }
        },
        "/api/v1/gdpr/compliance-report": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Full compliance report",
                "parameters": [
                    {"name": "periodDays", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/anomaly-detection": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Detected processing anomalies",
                "parameters": [
                    {"name": "periodDays", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/recommendations": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Compliance recommendations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/compliance-score": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Compliance score only",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/gdpr/verify-backup": {
            "post": {
                "tags": ["Backup"],
                "summary": "Verify the latest backup artifact",
                "responses": {
                    "200": {"description": "Verification report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SoftDeleteRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "CleanupRequest": {
            "type": "object",
            "properties": {
                "retention_months": {"type": "integer"}
            }
        },
        "ComplaintRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "DeletionRequestCreate": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
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
