//go:build !linux

package lirc

import (
	"errors"
	"os"
)

func openPort(path string) (port, error) {
	return nil, &os.PathError{Op: "open", Path: path, Err: errors.New("lirc devices are only supported on linux")}
}
