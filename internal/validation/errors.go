package validation

import "errors"

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file size exceeds upload limit")
	ErrNotAnImage      = errors.New("only image files are supported")
)
