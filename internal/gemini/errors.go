package gemini

import "errors"

var (
	// ErrConfiguration means the client cannot make a request at all.
	ErrConfiguration = errors.New("gemini client not configured")
	// ErrEncoding means the audio payload could not be packaged for upload.
	ErrEncoding = errors.New("audio payload could not be encoded")
	// ErrNetwork means the request never produced an HTTP response.
	ErrNetwork = errors.New("gemini request failed")
	// ErrService means the service answered but refused or produced nothing.
	ErrService = errors.New("gemini service error")
	// ErrSchema means the generated text is not a valid consultation document.
	ErrSchema = errors.New("gemini response does not match consultation schema")
)
