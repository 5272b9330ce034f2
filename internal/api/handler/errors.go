package handler

import (
	"net/http"

	"github.com/mcoot/caseclicker-orchestrator/internal/api/apierr"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}
