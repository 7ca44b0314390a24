package apiclient

import "strings"

const codeLength = 6

// CodeInput models the six single-digit cells of the TOTP challenge. Cells
// hold at most one digit each; filling the last cell auto-submits, and the
// same complete code is never auto-submitted twice in a row.
type CodeInput struct {
	cells [codeLength]byte
	focus int

	lastSubmitted string
	submit        func(code string)
}

func NewCodeInput(submit func(code string)) *CodeInput {
	return &CodeInput{submit: submit}
}

// TypeDigit puts one digit into the focused cell and advances focus.
// Non-digit input is ignored.
func (c *CodeInput) TypeDigit(r rune) {
	if r < '0' || r > '9' || c.focus >= codeLength {
		return
	}
	c.cells[c.focus] = byte(r)
	c.focus++
	c.maybeAutoSubmit()
}

// Backspace clears the previous cell and moves focus back to it.
func (c *CodeInput) Backspace() {
	if c.focus == 0 {
		return
	}
	c.focus--
	c.cells[c.focus] = 0
}

// Paste fills all six cells atomically from a 6-digit string. Anything else
// is rejected without touching the cells.
func (c *CodeInput) Paste(s string) {
	s = strings.TrimSpace(s)
	if len(s) != codeLength {
		return
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return
		}
	}
	copy(c.cells[:], s)
	c.focus = codeLength
	c.maybeAutoSubmit()
}

// Submit fires explicitly regardless of the auto-submit dedupe, as long as
// all six cells are filled.
func (c *CodeInput) Submit() {
	if !c.Complete() {
		return
	}
	code := c.Code()
	c.lastSubmitted = code
	c.submit(code)
}

// Clear resets the cells for another attempt. The dedupe marker survives so
// re-entering the identical code still requires an explicit submit.
func (c *CodeInput) Clear() {
	c.cells = [codeLength]byte{}
	c.focus = 0
}

func (c *CodeInput) Complete() bool {
	for _, b := range c.cells {
		if b == 0 {
			return false
		}
	}
	return true
}

func (c *CodeInput) Code() string {
	return string(c.cells[:])
}

func (c *CodeInput) maybeAutoSubmit() {
	if !c.Complete() {
		return
	}
	code := c.Code()
	if code == c.lastSubmitted {
		return
	}
	c.lastSubmitted = code
	c.submit(code)
}
