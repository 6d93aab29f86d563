package cloudtrail

import "errors"

var (
	// ErrMalformedKey indicates a key that does not follow the CloudTrail
	// delivery layout.
	ErrMalformedKey = errors.New("malformed CloudTrail key")
	// ErrNotJSONObject indicates a payload whose top level is not a JSON object.
	ErrNotJSONObject = errors.New("payload is not a JSON object")
	// ErrMissingRecords indicates a payload without a Records array.
	ErrMissingRecords = errors.New("payload has no Records array")
)
