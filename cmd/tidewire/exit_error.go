package main

import "strconv"

// exitError carries an explicit process exit code. A silent exitError has
// already been reported by the command.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.err != nil:
		return e.err.Error()
	default:
		return "exit " + strconv.Itoa(e.code)
	}
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}
