//go:build windows

package local

import (
	"syscall"
	"unsafe"
)

// shFileOpStruct mirrors the Win32 SHFILEOPSTRUCTW layout closely enough
// to drive SHFileOperationW for a single FOF_ALLOWUNDO delete, which is
// the documented way to send a path to the Recycle Bin rather than
// deleting it outright.
type shFileOpStruct struct {
	hwnd                  uintptr
	wFunc                 uint32
	pFrom                 *uint16
	pTo                   *uint16
	fFlags                uint16
	fAnyOperationsAborted int32
	hNameMappings         uintptr
	lpszProgressTitle     *uint16
}

const (
	foDelete        = 0x0003
	fofAllowUndo    = 0x0040
	fofNoConfirm    = 0x0010
	fofSilent       = 0x0004
	fofNoErrorUI    = 0x0400
)

var (
	modShell32           = syscall.NewLazyDLL("shell32.dll")
	procSHFileOperationW = modShell32.NewProc("SHFileOperationW")
)

// shellRecycle sends path to the Recycle Bin via SHFileOperationW. The
// path must be double-null-terminated per the Win32 contract.
func shellRecycle(path string) error {
	utf16Path, err := syscall.UTF16FromString(path)
	if err != nil {
		return err
	}
	// Double-terminate: the slice already carries one trailing NUL from
	// UTF16FromString, so append a second.
	utf16Path = append(utf16Path, 0)

	op := shFileOpStruct{
		wFunc:  foDelete,
		pFrom:  &utf16Path[0],
		fFlags: fofAllowUndo | fofNoConfirm | fofSilent | fofNoErrorUI,
	}
	ret, _, _ := procSHFileOperationW.Call(uintptr(unsafe.Pointer(&op)))
	if ret != 0 {
		return syscall.Errno(ret)
	}
	return nil
}
