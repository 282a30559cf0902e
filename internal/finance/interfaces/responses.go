package interfaces

import (
	"errors"
	"net/http"
	"strconv"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

type respondErrorFunc func(w http.ResponseWriter, status int, message string, errors ...[]string)

// respondServiceError renders a service error with the status of its kind.
// Internal errors never leak their message.
func respondServiceError(respondError respondErrorFunc, w http.ResponseWriter, err error, fallback string) {
	var validationErrors *appErrors.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondError(w, http.StatusBadRequest, "Validation errors occurred", validationErrors.Messages())
		return
	}

	status := appErrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}

func actorFromRequest(r *http.Request) (policy.Actor, bool) {
	return policy.ActorFromContext(r.Context())
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
