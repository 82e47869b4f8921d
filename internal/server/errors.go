package server

import (
	"net/http"

	apperrors "github.com/brainboard/brainboard/internal/errors"
)

// HandleError writes err as an error envelope.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
