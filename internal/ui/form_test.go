package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func investFields() []FormField {
	return []FormField{
		{Key: "template", Label: "Template", Choices: []string{"growth-vault", "income-note"}},
		{Key: "amount", Label: "Amount"},
		{Key: "notes", Label: "Special terms", Optional: true},
	}
}

func press(t *testing.T, m formModel, keys ...tea.KeyMsg) formModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(formModel)
	}
	return m
}

func typeText(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter     = tea.KeyMsg{Type: tea.KeyEnter}
	keyDown      = tea.KeyMsg{Type: tea.KeyDown}
	keyBackspace = tea.KeyMsg{Type: tea.KeyBackspace}
	keyBack      = tea.KeyMsg{Type: tea.KeyShiftTab}
	keyEsc       = tea.KeyMsg{Type: tea.KeyEsc}
)

// ---------------------------------------------------------------------------
// Navigation
// ---------------------------------------------------------------------------

func TestFormCollectsAnswers(t *testing.T) {
	m := newFormModel("Invest", investFields(), nil)
	m = press(t, m, keyDown, keyEnter, typeText("50"), keyEnter, keyEnter)

	require.True(t, m.done)
	assert.Equal(t, FormValues{"template": "income-note", "amount": "50", "notes": ""}, m.values)
}

func TestFormRequiresNonOptionalText(t *testing.T) {
	m := newFormModel("Invest", investFields(), nil)
	m = press(t, m, keyEnter, keyEnter)

	assert.Equal(t, 1, m.idx, "empty required field keeps the cursor there")
	assert.Equal(t, "Amount is required", m.errMsg)
	assert.False(t, m.done)
}

func TestFormTypingLettersThatAreNavigationKeys(t *testing.T) {
	m := newFormModel("Invest", investFields(), nil)
	m = press(t, m, keyEnter, keyEnter, typeText("j"), typeText("k"), typeText("q"))
	assert.Equal(t, 2, m.idx)
	assert.Equal(t, "jkq", m.input)
}

func TestFormBackspace(t *testing.T) {
	m := newFormModel("Invest", investFields(), nil)
	m = press(t, m, keyEnter, typeText("1000"), keyBackspace)
	assert.Equal(t, "100", m.input)
}

func TestFormBackRestoresPreviousAnswer(t *testing.T) {
	m := newFormModel("Invest", investFields(), nil)
	m = press(t, m, keyDown, keyEnter, typeText("75"), keyEnter, keyBack)

	assert.Equal(t, 1, m.idx)
	assert.Equal(t, "75", m.input)

	m = press(t, m, keyBack)
	assert.Equal(t, 0, m.idx)
	assert.Equal(t, 1, m.cursor, "choice cursor returns to the earlier pick")
}

func TestFormDefaults(t *testing.T) {
	fields := []FormField{
		{Key: "term", Label: "Term", Choices: []string{"6 months", "12 months"}, Default: "12 months"},
		{Key: "apy", Label: "APY", Default: "8.5"},
	}
	m := newFormModel("Terms", fields, nil)
	assert.Equal(t, 1, m.cursor)
	m = press(t, m, keyEnter)
	assert.Equal(t, "8.5", m.input)
	m = press(t, m, keyEnter)
	require.True(t, m.done)
	assert.Equal(t, FormValues{"term": "12 months", "apy": "8.5"}, m.values)
}

func TestFormEscCancels(t *testing.T) {
	m := newFormModel("Invest", investFields(), nil)
	next, cmd := m.Update(keyEsc)
	m = next.(formModel)
	assert.True(t, m.cancelled)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestFormValidatorSendsUserBackToField(t *testing.T) {
	calls := 0
	validate := func(v FormValues) (string, error) {
		calls++
		if v["amount"] != "50" {
			return "amount", errors.New("Amount must be between 10 and 100")
		}
		return "", nil
	}
	m := newFormModel("Invest", investFields(), validate)
	m = press(t, m, keyEnter, typeText("5"), keyEnter, keyEnter)

	require.False(t, m.done)
	assert.Equal(t, 1, m.idx)
	assert.Equal(t, "5", m.input)
	assert.Equal(t, "Amount must be between 10 and 100", m.errMsg)
	assert.Contains(t, m.View(), "Amount must be between 10 and 100")

	m = press(t, m, keyBackspace, typeText("50"), keyEnter, keyEnter)
	assert.True(t, m.done)
	assert.Equal(t, 2, calls)
}

func TestFormValidatorUnknownFieldRestartsAtFirst(t *testing.T) {
	validate := func(FormValues) (string, error) { return "", errors.New("try again") }
	m := newFormModel("Invest", investFields(), validate)
	m = press(t, m, keyEnter, typeText("50"), keyEnter, keyEnter)
	assert.Equal(t, 0, m.idx)
	assert.Equal(t, "try again", m.errMsg)
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

func TestFormViewShowsAnsweredFields(t *testing.T) {
	m := newFormModel("Invest", investFields(), nil)
	m = press(t, m, keyEnter, typeText("42"), keyEnter)
	view := m.View()
	assert.Contains(t, view, "Invest")
	assert.Contains(t, view, "Question 3 of 3")
	assert.Contains(t, view, "growth-vault")
	assert.Contains(t, view, "42")
	assert.Contains(t, view, "Special terms")
}

func TestRunFormWithoutFields(t *testing.T) {
	v, err := RunForm("Empty", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, v)
}
