package submitter

import "errors"

var (
	// ErrFileTooLarge is returned when the upload exceeds MAX_UPLOAD_BYTES.
	ErrFileTooLarge = errors.New("submitter: file exceeds maximum upload size")

	// ErrEmptyFilename is returned when no filename (and therefore no
	// extension to dispatch on) is supplied.
	ErrEmptyFilename = errors.New("submitter: filename is required")

	// ErrMissingRequiredColumn is returned when the file header is missing
	// a column the Mapping Configuration requires.
	ErrMissingRequiredColumn = errors.New("submitter: uploaded file header is missing a required column")
)
