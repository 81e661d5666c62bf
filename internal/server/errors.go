package server

import (
	"encoding/json"
	"net/http"

	"github.com/stackbound/aegis/internal/iam"
)

// errorResponse is the JSON error envelope returned by every endpoint.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusForKind maps a domain failure to an HTTP status. Foreign errors land
// on 500.
func statusForKind(kind iam.Kind) int {
	switch kind {
	case iam.KindUserNotFound,
		iam.KindGroupNotFound,
		iam.KindRoleNotFound,
		iam.KindPolicyNotFound,
		iam.KindPolicyVersionNotFound:
		return http.StatusNotFound
	case iam.KindUserExists,
		iam.KindUsernameExists,
		iam.KindGroupExists,
		iam.KindRoleExists,
		iam.KindPolicyExists,
		iam.KindPolicyAlreadyAttached,
		iam.KindRoleAlreadyAttached,
		iam.KindUserAlreadyInGroup,
		iam.KindGroupEssentialRemove:
		return http.StatusConflict
	case iam.KindInvalidAccessKeyFormat,
		iam.KindInvalidEmail,
		iam.KindInvalidPolicyDocument,
		iam.KindPolicyMissingVersion,
		iam.KindPolicyMissingStatement,
		iam.KindPolicyStatementNotArray:
		return http.StatusBadRequest
	case iam.KindAccessKeyLimitReached:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	kind := iam.KindOf(err)
	respondJSON(w, statusForKind(kind), errorResponse{
		Error: err.Error(),
		Kind:  string(kind),
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}
