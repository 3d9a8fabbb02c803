package ingress

import "hiring-notifier/internal/common/validation"

// eventSchema checks the shape of an ingress body before it is converted into
// an event. Optional fields accept null as absent. Field content rules (email
// format, blank values) are enforced by the event types themselves.
const eventSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "jobTitle", "applicantName", "applicantEmail"],
  "properties": {
    "type":           {"type": "string", "enum": ["new_application", "status_update"]},
    "jobId":          {"type": ["string", "null"]},
    "jobTitle":       {"type": "string"},
    "applicantName":  {"type": "string"},
    "applicantEmail": {"type": "string"},
    "newStatus":      {"type": ["string", "null"]},
    "correlationKey": {"type": ["string", "null"]}
  },
  "if":   {"properties": {"type": {"const": "status_update"}}},
  "then": {"required": ["newStatus"]}
}`

var payloadSchema = validation.MustCompile(eventSchema)
