package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TutorBase API",
        "description": "Tutoring center back office: rosters, schedules, attendance and tuition",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Teachers", "description": "Instructor roster management"},
        {"name": "Classes", "description": "Class definitions and weekly schedules"},
        {"name": "Enrollments", "description": "Student membership in classes"},
        {"name": "Attendance", "description": "Session grids and marks"},
        {"name": "Tuition", "description": "Monthly ledger and payment facts"},
        {"name": "Dashboard", "description": "Month overview"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
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
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email and password",
                "responses": {
                    "200": {"description": "Issued token pair"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/api/v1/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/api/v1/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List teachers",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Teachers"],
                "summary": "Create teacher",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/api/v1/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class with its weekly schedule",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"},
                    "400": {"description": "Invalid or duplicate weekly slots"}
                }
            }
        },
        "/api/v1/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student, defaulting to TRIAL",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/api/v1/attendance/matrix": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Expected session grid with recorded marks overlaid",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "required": true},
                    {"name": "to", "in": "query", "type": "string", "required": true},
                    {"name": "classIds", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/api/v1/attendance/marks": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Mark presence or absence for one cell",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "delete": {
                "tags": ["Attendance"],
                "summary": "Clear one cell back to unrecorded",
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        },
        "/api/v1/tuition/ledger": {
            "get": {
                "tags": ["Tuition"],
                "summary": "Reconciled tuition ledger for a month",
                "parameters": [
                    {"name": "month", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "student", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/api/v1/tuition/payments": {
            "post": {
                "tags": ["Tuition"],
                "summary": "Record a payment fact",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Payment already exists for this key"}
                }
            }
        },
        "/api/v1/tuition/payments/{id}/confirm": {
            "post": {
                "tags": ["Tuition"],
                "summary": "Confirm a payment, optionally activating the enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Payment not found"}
                }
            }
        },
        "/api/v1/dashboard/overview": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Month overview with tuition, attendance and payroll totals",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/api/v1/exports/tuition.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the tuition ledger as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/api/v1/exports/tuition.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the tuition ledger as PDF",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/api/v1/exports/jobs": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a background export render",
                "responses": {
                    "202": {"$ref": "#/responses/Envelope"},
                    "400": {"description": "Unknown export kind"}
                }
            }
        },
        "/api/v1/exports/jobs/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Get the state of a queued export",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Unknown job"}
                }
            }
        },
        "/api/v1/exports/downloads": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a completed export via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/v1/exports/attendance.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the attendance grid as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        }
    },
    "responses": {
        "Envelope": {
            "description": "Standard response envelope",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
