// Package docs holds the OpenAPI description of the SitePilot API served at
// /swagger. Regenerate with `swag init` after changing handler annotations.
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
        "/submit": {
            "post": {
                "description": "Validates the domain, stores a processing record and schedules the audit. Poll /status with the returned id.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Audits"
                ],
                "summary": "Start an audit",
                "operationId": "submitAudit",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Replays return the original audit id",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "description": "Audit submission",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SubmitRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/handlers.SubmitResponse"
                        },
                        "headers": {
                            "Idempotency-Replayed": {
                                "type": "string",
                                "description": "true when answered from an earlier request"
                            }
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Could not start audit",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/background": {
            "post": {
                "description": "Accepts a job from an HTTP dispatcher and queues it on the local worker pool.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Audits"
                ],
                "summary": "Run a dispatched audit",
                "operationId": "runAudit",
                "parameters": [
                    {
                        "description": "Job",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BackgroundRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/handlers.BackgroundResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Queue full or shutting down",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/status": {
            "get": {
                "description": "Returns the stored record unchanged: processing, complete with results, or error with a message. Unknown or expired ids answer {\"status\":\"not_found\"}.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Audits"
                ],
                "summary": "Poll an audit",
                "operationId": "auditStatus",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Audit id",
                        "name": "id",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.AuditRecord"
                        }
                    },
                    "400": {
                        "description": "Missing audit ID",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/notify": {
            "post": {
                "description": "Stores the address for the audit. If it is already complete the report is sent at once; otherwise it goes out when the audit finishes.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Audits"
                ],
                "summary": "Email the report",
                "operationId": "notifyAudit",
                "parameters": [
                    {
                        "description": "Notify request",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.NotifyRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.NotifyResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/audit": {
            "post": {
                "description": "Scores the domain from the model's own knowledge without fetching it. Nothing is stored.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Audits"
                ],
                "summary": "Synchronous audit",
                "operationId": "quickAudit",
                "parameters": [
                    {
                        "description": "Domain",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.AuditRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.AuditResult"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Not configured",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Audit failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/lead-magnet": {
            "post": {
                "description": "Emails the PDF guide to the visitor and alerts the team. Submissions flagged as spam get the same answer but nothing is sent.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Forms"
                ],
                "summary": "Send the checklist guide",
                "operationId": "leadMagnet",
                "parameters": [
                    {
                        "description": "Lead form",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.LeadMagnetRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.FormResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Failed to send email",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/ticket-confirmation": {
            "post": {
                "description": "Sends the contact a confirmation with the ticket number and priority.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Forms"
                ],
                "summary": "Confirm a support ticket",
                "operationId": "ticketConfirmation",
                "parameters": [
                    {
                        "description": "Ticket",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.TicketConfirmationRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.FormResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Failed to send confirmation email",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/reviews": {
            "get": {
                "description": "Returns the rating, review count and recent reviews of a Google place.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Reviews"
                ],
                "summary": "Google reviews",
                "operationId": "googleReviews",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Google place id",
                        "name": "placeId",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/reviews.Summary"
                        },
                        "headers": {
                            "Cache-Control": {
                                "type": "string",
                                "description": "public, max-age=86400"
                            }
                        }
                    },
                    "400": {
                        "description": "Place ID is required",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Not configured",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Upstream error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "domain.AuditRecord": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "example": "complete"
                },
                "domain": {
                    "type": "string",
                    "example": "example.com"
                },
                "startedAt": {
                    "type": "integer",
                    "example": 1735689600000
                },
                "completedAt": {
                    "type": "integer",
                    "example": 1735689642000
                },
                "results": {
                    "$ref": "#/definitions/domain.AuditResult"
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "domain.AuditResult": {
            "type": "object",
            "properties": {
                "overall_score": {
                    "type": "integer",
                    "example": 64
                },
                "overall_grade": {
                    "type": "string",
                    "example": "D"
                },
                "summary": {
                    "type": "string"
                },
                "categories": {
                    "type": "object",
                    "additionalProperties": {
                        "$ref": "#/definitions/domain.CategoryScore"
                    }
                },
                "critical_count": {
                    "type": "integer"
                },
                "warning_count": {
                    "type": "integer"
                },
                "passed_count": {
                    "type": "integer"
                },
                "blurred_findings": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "domain.CategoryScore": {
            "type": "object",
            "properties": {
                "score": {
                    "type": "integer",
                    "example": 60
                },
                "visible_issue": {
                    "type": "string",
                    "example": "Missing meta description"
                }
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {
                    "type": "string",
                    "example": "123e4567-e89b-12d3-a456-426614174000"
                },
                "code": {
                    "type": "string",
                    "example": "bad_request"
                },
                "message": {
                    "type": "string",
                    "example": "Domain is required"
                }
            }
        },
        "handlers.SubmitRequest": {
            "type": "object",
            "properties": {
                "domain": {
                    "type": "string",
                    "example": "example.com"
                },
                "auditId": {
                    "type": "string",
                    "example": "a1b2c3"
                }
            }
        },
        "handlers.SubmitResponse": {
            "type": "object",
            "properties": {
                "auditId": {
                    "type": "string",
                    "example": "4b0b6f2e-6a55-4a5b-9d55-1f0b8f3e2c11"
                },
                "status": {
                    "type": "string",
                    "example": "processing"
                }
            }
        },
        "handlers.BackgroundRequest": {
            "type": "object",
            "properties": {
                "domain": {
                    "type": "string",
                    "example": "example.com"
                },
                "auditId": {
                    "type": "string",
                    "example": "4b0b6f2e-6a55-4a5b-9d55-1f0b8f3e2c11"
                }
            },
            "required": [
                "auditId",
                "domain"
            ]
        },
        "handlers.BackgroundResponse": {
            "type": "object",
            "properties": {
                "accepted": {
                    "type": "boolean",
                    "example": true
                }
            }
        },
        "handlers.NotifyRequest": {
            "type": "object",
            "properties": {
                "auditId": {
                    "type": "string",
                    "example": "4b0b6f2e-6a55-4a5b-9d55-1f0b8f3e2c11"
                },
                "email": {
                    "type": "string",
                    "example": "jane@acme.com"
                },
                "name": {
                    "type": "string",
                    "example": "Jane"
                },
                "domain": {
                    "type": "string",
                    "example": "acme.com"
                }
            },
            "required": [
                "auditId",
                "email"
            ]
        },
        "handlers.NotifyResponse": {
            "type": "object",
            "properties": {
                "sent": {
                    "type": "boolean",
                    "example": true
                },
                "queued": {
                    "type": "boolean"
                }
            }
        },
        "handlers.AuditRequest": {
            "type": "object",
            "properties": {
                "domain": {
                    "type": "string",
                    "example": "example.com"
                }
            }
        },
        "handlers.LeadMagnetRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string",
                    "example": "Jane Doe"
                },
                "email": {
                    "type": "string",
                    "example": "jane@acme.com"
                },
                "company": {
                    "type": "string",
                    "example": "Acme"
                },
                "_timing": {
                    "type": "integer",
                    "example": 12000
                }
            }
        },
        "handlers.TicketConfirmationRequest": {
            "type": "object",
            "properties": {
                "contact_email": {
                    "type": "string",
                    "example": "jane@acme.com"
                },
                "contact_name": {
                    "type": "string",
                    "example": "Jane Doe"
                },
                "subject": {
                    "type": "string",
                    "example": "Printer offline"
                },
                "ticketNumber": {
                    "type": "string",
                    "example": "T-1042"
                },
                "priority": {
                    "type": "string",
                    "example": "high"
                }
            }
        },
        "handlers.FormResponse": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean",
                    "example": true
                },
                "message": {
                    "type": "string",
                    "example": "Guide sent successfully!"
                }
            }
        },
        "reviews.Summary": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean",
                    "example": true
                },
                "rating": {
                    "type": "number"
                },
                "totalReviews": {
                    "type": "integer"
                },
                "reviews": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/reviews.Review"
                    }
                }
            }
        },
        "reviews.Review": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "relativePublishTimeDescription": {
                    "type": "string"
                },
                "rating": {
                    "type": "number"
                },
                "text": {
                    "$ref": "#/definitions/reviews.LocalizedText"
                },
                "originalText": {
                    "$ref": "#/definitions/reviews.LocalizedText"
                },
                "authorAttribution": {
                    "$ref": "#/definitions/reviews.Author"
                },
                "publishTime": {
                    "type": "string"
                }
            }
        },
        "reviews.LocalizedText": {
            "type": "object",
            "properties": {
                "text": {
                    "type": "string"
                },
                "languageCode": {
                    "type": "string"
                }
            }
        },
        "reviews.Author": {
            "type": "object",
            "properties": {
                "displayName": {
                    "type": "string"
                },
                "uri": {
                    "type": "string"
                },
                "photoUri": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "SitePilot API",
	Description:      "SEO audits, result notification, Google reviews and site form emails for the SimpleIT marketing site.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
