package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	minPlotWidth        = 10
	labelWidth          = 10
	axisSeparator       = " | "
	scoreMax            = 100.0
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var blocks = []rune("▁▂▃▄▅▆▇█")

var colorPalette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
}

// PlotSeries renders one bar row per series on a fixed 0-100 score scale.
func PlotSeries(w io.Writer, title string, series []Series, width int) error {
	return PlotSeriesWithColor(w, title, series, width, false)
}

// PlotSeriesWithColor renders the plot with optional forced color output.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width int, forceColor bool) error {
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)
	useColor := shouldUseColor(w, forceColor)

	wroteTitle := false
	for i, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		if !wroteTitle && title != "" {
			if _, err := fmt.Fprintln(w, title); err != nil {
				return err
			}
			wroteTitle = true
		}
		row := renderBars(resampleSeries(s.Values, width))
		if useColor {
			row = colorPalette[i%len(colorPalette)] + row + colorReset
		}
		minVal, maxVal := seriesMinMax(s.Values)
		if _, err := fmt.Fprintf(w, "%-*s%s%s  (min %.1f, max %.1f)\n", labelWidth, truncateLabel(s.Name), axisSeparator, row, minVal, maxVal); err != nil {
			return err
		}
	}
	if !wroteTitle {
		return nil
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	// Leave room for the label column and the min/max suffix.
	return max(totalWidth-labelWidth-len(axisSeparator)-24, minPlotWidth)
}

func renderBars(values []float64) string {
	var b strings.Builder
	top := len(blocks) - 1
	for _, v := range values {
		v = math.Max(0, math.Min(v, scoreMax))
		idx := int(math.Round(v / scoreMax * float64(top)))
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

func truncateLabel(name string) string {
	r := []rune(name)
	if len(r) > labelWidth {
		return string(r[:labelWidth])
	}
	return name
}

func resampleSeries(values []float64, width int) []float64 {
	if len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := max((i+1)*len(values)/width, start+1)
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func seriesMinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
