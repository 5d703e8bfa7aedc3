package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildPromptRunes styles a prompt, marking letters that spell a weak phoneme.
func buildPromptRunes(prompt string, weak map[string]struct{}) []styledRune {
	runes := []rune(prompt)
	marked := weakSpans(runes, weak)

	out := make([]styledRune, 0, len(runes))
	for i, r := range runes {
		style := promptStyle
		if marked[i] {
			style = weakStyle
		}
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

// weakSpans marks every rune covered by a case-insensitive weak phoneme match.
func weakSpans(runes []rune, weak map[string]struct{}) []bool {
	marked := make([]bool, len(runes))
	if len(weak) == 0 {
		return marked
	}
	lower := []rune(strings.ToLower(string(runes)))
	if len(lower) != len(runes) {
		return marked
	}
	for p := range weak {
		pr := []rune(strings.ToLower(p))
		if len(pr) == 0 {
			continue
		}
		for i := 0; i+len(pr) <= len(lower); i++ {
			if string(lower[i:i+len(pr)]) == string(pr) {
				for j := i; j < i+len(pr); j++ {
					marked[j] = true
				}
			}
		}
	}
	return marked
}

// plainRunes wraps text in a single style.
func plainRunes(text string, style lipgloss.Style) []styledRune {
	out := make([]styledRune, 0, len(text))
	for _, r := range text {
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
