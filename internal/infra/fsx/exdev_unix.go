//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
)

// isEXDEV 识别跨文件系统 rename 失败。os.Rename 在 unix 上把底层
// errno 包进 *os.LinkError，两种形态都要认。
func isEXDEV(err error) bool {
	var le *os.LinkError
	if errors.As(err, &le) {
		err = le.Err
	}
	return errors.Is(err, syscall.EXDEV)
}
