package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Support Ticket Tagger",
    "description": "Classifies support tickets into a fixed category taxonomy with a hosted chat model",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/categories": {
      "get": {"tags": ["tagging"], "summary": "List categories", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
    },
    "/api/classify": {
      "post": {"tags": ["tagging"], "summary": "Classify one message", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "502": {"description": "Classifier error"}}}
    },
    "/api/runs": {
      "post": {"tags": ["runs"], "summary": "Run a tagging batch", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Ticket file unreadable or path outside the configured directory"}, "401": {"description": "Invalid admin key"}, "403": {"description": "ADMIN_KEY not configured"}, "502": {"description": "Classifier error"}}}
    },
    "/api/runs/latest": {
      "get": {"tags": ["runs"], "summary": "Latest run", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "No runs"}}}
    }
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
