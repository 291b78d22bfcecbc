package main

import (
	"fmt"

	"github.com/fatih/color"
)

func successf(format string, args ...any) {
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

func errorf(format string, args ...any) {
	color.New(color.FgRed).Printf("✗ %s\n", fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	color.New(color.FgYellow).Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	color.New(color.FgCyan).Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

func heading(title string) {
	color.New(color.FgMagenta, color.Bold).Printf("━━━ %s ━━━\n", title)
}

func printKV(key string, value any) {
	color.New(color.FgYellow).Printf("  %s: ", key)
	fmt.Printf("%v\n", value)
}
