package fake

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// CheckLog returns a logger and a check function. When called, the function
// will verify if the logger has seen the message printed.
func CheckLog(msg string) (zerolog.Logger, func(t *testing.T)) {
	buffer := new(bytes.Buffer)

	check := func(t *testing.T) {
		require.Contains(t, buffer.String(), fmt.Sprintf(`"%s"`, msg))
	}

	return zerolog.New(buffer), check
}

// NewBadLogger returns a logger that fails every write so that tests can
// cover the logging branches without output.
func NewBadLogger() zerolog.Logger {
	return zerolog.New(badWriter{})
}

type badWriter struct{}

func (badWriter) Write([]byte) (int, error) {
	return 0, fakeErr
}
