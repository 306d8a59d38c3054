package code

import (
	"encoding/json"
	"fmt"
	httpPKG "net/http"

	"github.com/pkg/errors"
)

type errorCode struct {
	GeneralCode int    `json:"-"`
	Code        int    `json:"code"`
	Message     string `json:"detail"`
	OriginError error  `json:"-"`
	CallStack   string `json:"-"`
}

func CreateHTTPError(err *errorCode) *httpErrorCode {
	return &httpErrorCode{
		HTTPCode:  err.GeneralCode,
		errorCode: err,
	}
}

type httpErrorCode struct {
	HTTPCode int `json:"-"`
	*errorCode
}

func (e errorCode) Error() string {
	errorStr, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	return string(errorStr)
}

// Unwrap keeps errors.Is working through the origin error.
func (e *errorCode) Unwrap() error {
	return e.OriginError
}

func (e *errorCode) AddErrorMetaData(err error) *errorCode {
	e.OriginError = err
	e.CallStack = fmt.Sprintf("%+v", err)
	return e
}

func (e *errorCode) AddCode(code int, args ...any) *errorCode {
	if httpErrorCodes, ok := errorCodes[e.GeneralCode]; ok {
		if errorCodes, ok := httpErrorCodes[code]; ok {
			e.Code = code
			e.Message = fmt.Sprintf(errorCodes, args...)
		}
	}
	return e
}

const (
	Default             = 0
	RateLimit           = 1
	InvalidBody         = 2
	Expired             = 3
	PasswordInvalid     = 5
	LinkNotFound        = 6
	InvalidCustomCode   = 7
	CodeConflict        = 8
	GenerationExhausted = 9
	NotLinkOwner        = 10
	InvalidURL          = 11
	EmailRegistered     = 12
)

var errorCodes = map[int]map[int]string{
	httpPKG.StatusTooManyRequests: {
		Default:   "too many requests",
		RateLimit: "rate limit error. expiry: %d",
	},
	httpPKG.StatusNotFound: {
		Default:      "not found",
		LinkNotFound: "Link not found",
	},
	httpPKG.StatusInternalServerError: {
		Default:             "internal error",
		GenerationExhausted: "Could not generate unique short code after multiple attempts",
	},
	httpPKG.StatusBadRequest: {
		Default:           "bad request",
		InvalidBody:       "invalid body",
		InvalidCustomCode: "Invalid custom code format",
		InvalidURL:        "Invalid url format",
	},
	httpPKG.StatusUnauthorized: {
		Default:         "Could not validate credentials",
		Expired:         "expired",
		PasswordInvalid: "Invalid email or password",
	},
	httpPKG.StatusForbidden: {
		Default:      "forbidden",
		NotLinkOwner: "Not the owner of this link",
	},
	httpPKG.StatusConflict: {
		Default:         "conflict",
		CodeConflict:    "Custom link code already exists",
		EmailRegistered: "Email already registered",
	},
}

type errorCodeOption func(*errorCode)

func CreateErrorCode(code int, options ...errorCodeOption) *errorCode {
	resCode := httpPKG.StatusInternalServerError
	resMessage := errorCodes[httpPKG.StatusInternalServerError][Default]
	if codes, ok := errorCodes[code]; ok {
		resCode = code

		if errorCodes, ok := codes[Default]; ok {
			resMessage = errorCodes
		}
	}

	errorCode := errorCode{
		GeneralCode: resCode,
		Code:        Default,
		Message:     resMessage,
	}

	for _, option := range options {
		option(&errorCode)
	}

	return &errorCode
}

func ParseErrorCode(err error) *errorCode {
	var errorCode *errorCode
	if errors.As(err, &errorCode) {
		return errorCode
	}

	return CreateErrorCode(httpPKG.StatusInternalServerError).AddErrorMetaData(err)
}
