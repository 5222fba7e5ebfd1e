package document

import "errors"

var ErrJSONUnmarshalFailed = errors.New("failed to unmarshal document JSON")
