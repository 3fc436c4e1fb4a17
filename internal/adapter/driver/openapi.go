package driver

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"
)

// NewDocumentationHandler serves the OpenAPI document as JSON.
func NewDocumentationHandler(swagger *openapi3.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, swagger)
	})
}

// requestValidator rejects requests that do not match the OpenAPI document
// with the usual JSON error body.
func requestValidator(swagger *openapi3.T) func(next http.Handler) http.Handler {
	return nethttpmiddleware.OapiRequestValidatorWithOptions(swagger, &nethttpmiddleware.Options{
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			writeError(w, statusCode, message)
		},
	})
}
