package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Input is where prompts read answers from. Tests swap it out.
var Input io.Reader = os.Stdin

// Confirm prompts the user with a yes/no question. Returns true for yes.
func Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", StyleWarning.Render(prompt))
	return isYes(readLine())
}

// ConfirmDanger is like Confirm but styled with the error color (for destructive actions).
func ConfirmDanger(prompt string) bool {
	fmt.Printf("%s [y/N]: ", StyleError.Render("⚠ "+prompt))
	return isYes(readLine())
}

// PromptInput asks for one line of free text.
func PromptInput(prompt string) string {
	fmt.Printf("%s: ", StyleValue.Render(prompt))
	return strings.TrimSpace(readLine())
}

var (
	reader    *bufio.Reader
	readerSrc io.Reader
)

func readLine() string {
	if reader == nil || readerSrc != Input {
		reader, readerSrc = bufio.NewReader(Input), Input
	}
	line, _ := reader.ReadString('\n')
	return line
}

func isYes(line string) bool {
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
