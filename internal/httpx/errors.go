package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
)

var statusByKind = map[reservation.Kind]int{
	reservation.KindNotFound:         http.StatusNotFound,
	reservation.KindUnavailable:      http.StatusConflict,
	reservation.KindUnauthorized:     http.StatusForbidden,
	reservation.KindInvalidState:     http.StatusBadRequest,
	reservation.KindInvalidCode:      http.StatusBadRequest,
	reservation.KindAlreadyCancelled: http.StatusBadRequest,
	reservation.KindTooLate:          http.StatusBadRequest,
	reservation.KindTransient:        http.StatusServiceUnavailable,
	reservation.KindInternal:         http.StatusInternalServerError,
}

type errorResp struct {
	Error string           `json:"error"`
	Kind  reservation.Kind `json:"kind"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := reservation.KindOf(err)
	code, ok := statusByKind[kind]
	if !ok {
		code = http.StatusInternalServerError
	}

	msg := err.Error()
	switch kind {
	case reservation.KindInternal:
		msg = "internal error"
	case reservation.KindTransient:
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, code, errorResp{Error: msg, Kind: kind})
}
