package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"kitsura-miniapp/internal/money"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

func success(msg string) string {
	return green("✔ " + msg)
}

func failure(msg string) string {
	return red("✘ " + msg)
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, bold(title))
}

// field prints an indented "label: value" line, skipping empty values.
func field(w io.Writer, label string, value any) {
	s := strings.TrimSpace(fmt.Sprint(value))
	if s == "" {
		return
	}
	fmt.Fprintf(w, "  %s %s\n", gray(label+":"), s)
}

func price(m money.Money) string {
	if m.IsEmpty() {
		return "-"
	}
	return m.Label
}

func mark(on bool) string {
	if on {
		return green("●")
	}
	return gray("○")
}
