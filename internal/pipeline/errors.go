package pipeline

import "errors"

var (
	ErrBadDate             = errors.New("unparseable death date")
	ErrDuplicateIdentifier = errors.New("duplicate identifier in joined source")
)
