package ui

// Paint wraps text in code and the theme's reset sequence. Text is
// returned unchanged when code is empty.
func (t Theme) Paint(code, text string) string {
	if code == "" {
		return text
	}
	return code + text + t.Reset
}

// Header styles a table column label.
func (t Theme) Header(text string) string { return t.Paint(t.Underline, text) }

// Backend styles a backend name.
func (t Theme) Backend(text string) string { return t.Paint(t.Primary, text) }

// Duration styles an elapsed time.
func (t Theme) Duration(text string) string { return t.Paint(t.Warning, text) }

// Status styles a verdict: green when ok, red otherwise.
func (t Theme) Status(ok bool, text string) string {
	if ok {
		return t.Paint(t.Success, text)
	}
	return t.Paint(t.Error, text)
}
