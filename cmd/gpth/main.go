package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		// 报告里已经包含失败项时不重复打印，只用退出码表达。
		if !errors.Is(err, errReportHasFailures) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
