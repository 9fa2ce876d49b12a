package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// FormatText writes a human-readable run summary.
func FormatText(w io.Writer, m *Metrics) {
	if m.Attempted == 0 {
		fmt.Fprintln(w, "No frames attempted")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "wsprobe - Run Summary")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %v\n", m.TestDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Connections:    %s\n", formatNumber(m.Runs))
	fmt.Fprintf(w, "Frames Sent:    %s / %s (%.1f%%)\n",
		formatNumber(m.Sent), formatNumber(m.Attempted), m.SuccessRate)
	fmt.Fprintf(w, "Frames Failed:  %s\n", formatNumber(m.Failed))
	fmt.Fprintf(w, "Bytes Sent:     %s\n", formatNumber(int(m.BytesSent)))
	fmt.Fprintf(w, "Frames/sec:     %.1f\n", m.FramesPerSec)

	if m.Sent > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Write Latency:")
		fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(m.Write.Min))
		fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(m.Write.Avg))
		fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(m.Write.P50))
		fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(m.Write.P95))
		fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(m.Write.Max))
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Step:")
	for _, name := range stepOrder(m.Steps) {
		sm := m.Steps[name]
		fmt.Fprintf(w, "  %-15s %s/%s sent   avg=%s  p95=%s\n",
			name, formatNumber(sm.Sent), formatNumber(sm.Attempted),
			FormatDuration(sm.Write.Avg),
			FormatDuration(sm.Write.P95))
	}
}

// FormatJSON writes the run summary as indented JSON.
func FormatJSON(w io.Writer, m *Metrics) error {
	output := struct {
		Duration     string                     `json:"duration"`
		Connections  int                        `json:"connections"`
		Attempted    int                        `json:"attempted"`
		Sent         int                        `json:"sent"`
		Failed       int                        `json:"failed"`
		BytesSent    int64                      `json:"bytesSent"`
		SuccessRate  float64                    `json:"successRate"`
		FramesPerSec float64                    `json:"framesPerSec"`
		Write        jsonDurationMetrics        `json:"write"`
		Steps        map[string]jsonStepMetrics `json:"steps"`
	}{
		Duration:     m.TestDuration.Round(time.Millisecond).String(),
		Connections:  m.Runs,
		Attempted:    m.Attempted,
		Sent:         m.Sent,
		Failed:       m.Failed,
		BytesSent:    m.BytesSent,
		SuccessRate:  m.SuccessRate,
		FramesPerSec: m.FramesPerSec,
		Write:        toJSONDurationMetrics(m.Write),
		Steps:        make(map[string]jsonStepMetrics, len(m.Steps)),
	}

	for name, sm := range m.Steps {
		output.Steps[name] = jsonStepMetrics{
			Index:     sm.Index,
			Attempted: sm.Attempted,
			Sent:      sm.Sent,
			Failed:    sm.Failed,
			Write:     toJSONDurationMetrics(sm.Write),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonStepMetrics struct {
	Index     int                 `json:"index"`
	Attempted int                 `json:"attempted"`
	Sent      int                 `json:"sent"`
	Failed    int                 `json:"failed"`
	Write     jsonDurationMetrics `json:"write"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// stepOrder sorts step names by script position, then name.
func stepOrder(steps map[string]*StepMetrics) []string {
	names := make([]string, 0, len(steps))
	for name := range steps {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := steps[names[i]], steps[names[j]]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return names[i] < names[j]
	})
	return names
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return formatNumber(n/1000) + fmt.Sprintf(",%03d", n%1000)
}
