package rubric

import "errors"

var (
	ErrEmptyLabel       = errors.New("column label is empty")
	ErrEmptyKey         = errors.New("column key is empty")
	ErrEmptyTopicName   = errors.New("topic name is empty")
	ErrReservedTopic    = errors.New("topic name is reserved")
	ErrInvalidTopicName = errors.New("topic name contains '.' or ':'")
)
