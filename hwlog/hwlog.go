// Package hwlog prefixes log lines with a timestamp and file:line.
// Use hwlog.Red, hwlog.Green, ... for coloured lines.
package hwlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

type color string

var (
	Red     color  = "\033[31m"
	Green   color  = "\033[32m"
	Yellow  color  = "\033[33m"
	Blue    color  = "\033[34m"
	Magenta color  = "\033[35m"
	Cyan    color  = "\033[36m"
	reset   string = "\033[0m"
)

var std = log.New(os.Stdout, "", log.Ltime|log.Lshortfile)

// SetOutput redirects all hwlog output, e.g. to io.Discard in tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func Print(v ...any) {
	std.Output(2, fmt.Sprint(v...))
}

func Printf(format string, v ...any) {
	std.Output(2, fmt.Sprintf(format, v...))
}

func Println(v ...any) {
	std.Output(2, fmt.Sprintln(v...))
}

func (c color) Print(v ...any) {
	std.Output(2, string(c)+fmt.Sprint(v...)+reset)
}

func (c color) Printf(format string, v ...any) {
	std.Output(2, string(c)+fmt.Sprintf(format, v...)+reset)
}

func (c color) Println(v ...any) {
	std.Output(2, string(c)+fmt.Sprint(v...)+reset)
}
