package scenario

// documentSchema is the JSON Schema (draft-07) every scenario document must satisfy.
// name and path are optional here: entries without them are skipped during expansion.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "headers": {
      "type": "object",
      "additionalProperties": { "type": "string" }
    },
    "expect": {
      "type": "object",
      "properties": {
        "status": { "type": "integer" },
        "jsonPaths": { "type": "array", "items": { "type": "string" } },
        "arrayMin": { "type": "integer", "minimum": 0 }
      }
    },
    "signal": {
      "oneOf": [
        { "type": "string", "minLength": 1 },
        {
          "type": "object",
          "properties": {
            "name": { "type": "string" },
            "path": { "type": "string" },
            "url": { "type": "string" },
            "method": { "type": "string" },
            "headers": { "$ref": "#/definitions/headers" },
            "body": {},
            "status": { "type": "integer" },
            "jsonPaths": { "type": "array", "items": { "type": "string" } },
            "arrayMin": { "type": "integer", "minimum": 0 },
            "expect": { "$ref": "#/definitions/expect" }
          }
        }
      ]
    },
    "signals": {
      "type": "array",
      "items": { "$ref": "#/definitions/signal" }
    },
    "scenario": {
      "type": "object",
      "properties": {
        "name": { "type": "string" },
        "path": { "type": "string" },
        "method": { "type": "string" },
        "iterations": { "type": "integer" },
        "concurrency": { "type": "integer" },
        "warmup": { "type": "integer" },
        "sleep": { "type": "number" },
        "rateLimit": { "type": "number", "minimum": 0 },
        "headers": { "$ref": "#/definitions/headers" },
        "signals": { "$ref": "#/definitions/signals" },
        "payloads": { "type": "array" },
        "includeSignalsInMetrics": { "type": "boolean" },
        "variants": {
          "type": "array",
          "items": { "$ref": "#/definitions/scenario" }
        }
      }
    }
  },
  "properties": {
    "baseUrl": { "type": "string" },
    "defaults": {
      "type": "object",
      "properties": {
        "iterations": { "type": "integer" },
        "concurrency": { "type": "integer" },
        "warmup": { "type": "integer" },
        "method": { "type": "string" },
        "sleep": { "type": "number" }
      }
    },
    "signals": { "$ref": "#/definitions/signals" },
    "scenarios": {
      "type": "array",
      "items": { "$ref": "#/definitions/scenario" }
    }
  }
}`
