package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EduLearn Report Gateway",
        "description": "Canonical report-request workflow API bridging the EduLearn SPA to the legacy backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Reports", "description": "Report request workflow and downloads"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/reports/requests": {
            "post": {
                "tags": ["Reports"],
                "summary": "Submit a report download request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DownloadRequestPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "No upstream endpoint accepted the request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Reports"],
                "summary": "List report requests for review",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "APPROVED", "REJECTED", "ALL"]},
                    {"name": "courseId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/requests/me": {
            "get": {
                "tags": ["Reports"],
                "summary": "Current learner's report request",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK, data is null when no request exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/requests/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export report requests as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV payload"}
                }
            }
        },
        "/reports/requests/{id}/decision": {
            "patch": {
                "tags": ["Reports"],
                "summary": "Approve or reject a report request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the approved report artifact",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf", "application/json"],
                "parameters": [
                    {"name": "requestId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "quizId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file, or an envelope carrying a download URL"},
                    "403": {"description": "Approval required before download", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Learner performance summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/summary/pdf": {
            "get": {
                "tags": ["Reports"],
                "summary": "Learner report card as PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "Report card file"},
                    "403": {"description": "Approval required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ReportRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "studentId": {"type": "string"},
                "studentName": {"type": "string"},
                "courseId": {"type": "string"},
                "courseName": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                "approvedBy": {"type": "string"},
                "approvedByName": {"type": "string"},
                "approvedByRole": {"type": "string", "enum": ["ADMIN", "INSTRUCTOR"]},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "DownloadRequestPayload": {
            "type": "object",
            "properties": {
                "courseId": {"type": "string"},
                "courseName": {"type": "string"},
                "classLevel": {"type": "string"},
                "quizId": {"type": "string"},
                "quizTitle": {"type": "string"}
            },
            "required": ["courseId", "courseName"]
        },
        "DecisionPayload": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["APPROVED", "REJECTED"]}
            },
            "required": ["status"]
        },
        "LearnerReportSummary": {
            "type": "object",
            "properties": {
                "reportId": {"type": "string"},
                "studentName": {"type": "string"},
                "courseName": {"type": "string"},
                "classLevel": {"type": "string"},
                "schoolYear": {"type": "string"},
                "generatedAt": {"type": "string"},
                "overallAverage": {"type": "number"},
                "performanceLevel": {"type": "string"},
                "feedback": {"type": "string"},
                "subjects": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ReportSubjectRow"}
                }
            }
        },
        "ReportSubjectRow": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "firstTerm": {"type": "number"},
                "secondTerm": {"type": "number"},
                "thirdTerm": {"type": "number"},
                "total": {"type": "number"},
                "grade": {"type": "string"}
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
