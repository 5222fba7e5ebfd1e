package main

import "errors"

var (
	ErrUnknownMode = errors.New("unknown mode")
	ErrMissingFlag = errors.New("missing flag")
)
