package apierr

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/qfin/internal/common"
)

// FromStatus maps a non-2xx response to its normalized error. It has no
// side effects; clearing the session on 401 is the service client's job.
func FromStatus(status int, body []byte) *Error {
	serverMsg := ServerMessage(body)
	e := &Error{Status: status, Body: body}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind, e.Message = KindSessionExpired, MsgSessionExpired
	case status == http.StatusForbidden:
		// the OTP challenge rides on this path, so keep the server's words
		e.Message = serverMsg
		if e.Message == "" {
			e.Message = MsgAuthRequired
		}
		e.Kind = KindValidation
		if strings.Contains(e.Message, common.OTPMarker) {
			e.Kind = KindAuthorizationRequired
		}
	case status == http.StatusNotFound:
		e.Kind, e.Message = KindNotFound, MsgNotFound
	case status == http.StatusInternalServerError:
		e.Kind, e.Message = KindServer, MsgServer
	default:
		e.Message = serverMsg
		if e.Message == "" {
			e.Message = MsgUnexpected
		}
		switch {
		case status >= 400 && status < 500:
			e.Kind = KindValidation
		case status >= 500:
			e.Kind = KindServer
		default:
			e.Kind = KindUnknown
		}
	}
	return e
}
