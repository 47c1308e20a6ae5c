package ui

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrCancelled is returned when the user aborts a prompt with Ctrl+C or Ctrl+D.
var ErrCancelled = errors.New("cancelled")

// Select shows items and returns the chosen index and value.
func Select(label string, items []string) (int, string, error) {
	sel := promptui.Select{
		Label: label,
		Items: items,
		Size:  min(len(items), 12),
		Templates: &promptui.SelectTemplates{
			Active:   "▸ {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "✔ {{ . | green }}",
		},
	}
	idx, value, err := sel.Run()
	return idx, value, mapPromptErr(err)
}

// Ask reads a line of text. validate may be nil.
func Ask(label, def string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
		Validate:  validate,
	}
	value, err := p.Run()
	return strings.TrimSpace(value), mapPromptErr(err)
}

// Confirm asks a yes/no question; anything but yes is false.
func Confirm(label string) bool {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}

// NotBlank rejects empty input.
func NotBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value cannot be empty")
	}
	return nil
}

func mapPromptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
		return ErrCancelled
	}
	return err
}
