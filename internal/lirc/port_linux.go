package lirc

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

type filePort struct {
	fd int
}

func openPort(path string) (port, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return &filePort{fd: fd}, nil
}

func (f *filePort) getUint32(req uint) (uint32, error) {
	return unix.IoctlGetUint32(f.fd, req)
}

// setUint32 uses the raw syscall since the transmitter mask request
// reports through its return value.
func (f *filePort) setUint32(req uint, v uint32) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(f.fd), uintptr(req), uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

func (f *filePort) Write(p []byte) (int, error) { return unix.Write(f.fd, p) }

func (f *filePort) Close() error { return unix.Close(f.fd) }
