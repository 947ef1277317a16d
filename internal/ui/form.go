package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FormField is one question asked by a Form. A field with Choices is a
// menu; a field without is free text.
type FormField struct {
	Key      string
	Label    string
	Hint     string
	Choices  []string
	Default  string
	Optional bool
}

// FormValues maps field keys to the answers collected so far.
type FormValues map[string]string

// FormValidator checks the complete set of answers. When it fails it names
// the field to re-ask; an empty field sends the user back to the first one.
type FormValidator func(FormValues) (field string, err error)

type formModel struct {
	title    string
	fields   []FormField
	validate FormValidator

	idx       int
	cursor    int
	input     string
	values    FormValues
	errMsg    string
	done      bool
	cancelled bool
}

func newFormModel(title string, fields []FormField, validate FormValidator) formModel {
	m := formModel{
		title:    title,
		fields:   fields,
		validate: validate,
		values:   make(FormValues, len(fields)),
	}
	m.enter(0)
	return m
}

func (m formModel) Init() tea.Cmd { return nil }

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	f := m.fields[m.idx]

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if len(f.Choices) > 0 && m.cursor > 0 {
			m.cursor--
			return m, nil
		}

	case "down", "j":
		if len(f.Choices) > 0 && m.cursor < len(f.Choices)-1 {
			m.cursor++
			return m, nil
		}

	case "shift+tab":
		if m.idx > 0 {
			m.errMsg = ""
			m.enter(m.idx - 1)
		}
		return m, nil

	case "enter":
		return m.submit()

	case "backspace":
		if len(f.Choices) == 0 && len(m.input) > 0 {
			r := []rune(m.input)
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	}

	if len(f.Choices) == 0 && key.Type == tea.KeyRunes {
		m.input += string(key.Runes)
	} else if len(f.Choices) == 0 && key.Type == tea.KeySpace {
		m.input += " "
	}
	return m, nil
}

func (m formModel) submit() (tea.Model, tea.Cmd) {
	f := m.fields[m.idx]
	var value string
	if len(f.Choices) > 0 {
		value = f.Choices[m.cursor]
	} else {
		value = strings.TrimSpace(m.input)
		if value == "" && !f.Optional {
			m.errMsg = fmt.Sprintf("%s is required", f.Label)
			return m, nil
		}
	}
	m.values[f.Key] = value
	m.errMsg = ""

	if m.idx < len(m.fields)-1 {
		m.enter(m.idx + 1)
		return m, nil
	}

	if m.validate != nil {
		if field, err := m.validate(m.values); err != nil {
			m.errMsg = err.Error()
			m.enter(m.indexOf(field))
			return m, nil
		}
	}
	m.done = true
	return m, tea.Quit
}

// enter moves to field i, pre-filling the previous answer or the default.
func (m *formModel) enter(i int) {
	m.idx = i
	f := m.fields[i]
	prev, answered := m.values[f.Key]
	if !answered {
		prev = f.Default
	}
	m.cursor = 0
	m.input = ""
	if len(f.Choices) > 0 {
		for j, c := range f.Choices {
			if c == prev {
				m.cursor = j
			}
		}
		return
	}
	m.input = prev
}

func (m formModel) indexOf(key string) int {
	for i, f := range m.fields {
		if f.Key == key {
			return i
		}
	}
	return 0
}

func (m formModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.title) + "\n")
	sb.WriteString(StyleMeta.Render(fmt.Sprintf("Question %d of %d", m.idx+1, len(m.fields))) + "\n\n")

	labelWidth := 0
	for _, f := range m.fields[:m.idx] {
		if w := lipgloss.Width(f.Label); w > labelWidth {
			labelWidth = w
		}
	}
	for _, f := range m.fields[:m.idx] {
		sb.WriteString("  " + StyleMeta.Render(padR(f.Label, labelWidth)) + "  " + Val(m.values[f.Key]) + "\n")
	}
	if m.idx > 0 {
		sb.WriteString("\n")
	}

	f := m.fields[m.idx]
	sb.WriteString(StyleValue.Render(f.Label) + "\n")
	if f.Hint != "" {
		sb.WriteString(StyleMeta.Render(f.Hint) + "\n")
	}
	if len(f.Choices) > 0 {
		for i, c := range f.Choices {
			icon := "  "
			style := lipgloss.NewStyle().Foreground(ColorValue)
			if i == m.cursor {
				icon = "▸ "
				style = StyleSelected
			}
			sb.WriteString(icon + style.Render(c) + "\n")
		}
	} else {
		sb.WriteString("> " + StyleAddress.Render(m.input) + "█\n")
	}

	if m.errMsg != "" {
		sb.WriteString("\n" + Err(m.errMsg) + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("Enter confirm · shift+tab back · esc cancel"))
	return StyleBorder.Render(sb.String()) + "\n"
}

// RunForm asks every field in order and returns the answers once validate
// accepts them. Cancelling returns (nil, nil).
func RunForm(title string, fields []FormField, validate FormValidator) (FormValues, error) {
	if len(fields) == 0 {
		return FormValues{}, nil
	}
	p := tea.NewProgram(newFormModel(title, fields, validate))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}
	fm := final.(formModel)
	if fm.cancelled || !fm.done {
		return nil, nil
	}
	return fm.values, nil
}

// padR pads s to visible width n (ANSI-safe using lipgloss.Width).
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}
