// cmd/formctl/main.go
//
// formctl – offline access to the form validator.
//
// Commands
// --------
//
//	formctl forms                                  list known forms
//	formctl validate --form signup [file|-]        validate a JSON record
//	formctl feedback --form signup --field password <value>
//	formctl lint <dir>                             check a definitions dir
//
// Exit status is 0 on success, 1 when a record is invalid, and 2 on usage
// or I/O errors.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute()
	switch {
	case err == nil:
	case errors.Is(err, errInvalid):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "formctl:", err)
		os.Exit(2)
	}
}
