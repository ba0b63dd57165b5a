package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorEmptyInput is the only fatal condition for a report run: a fully
// empty or unreadable record set.
var ErrorEmptyInput = errors.New("no records found in any source")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
