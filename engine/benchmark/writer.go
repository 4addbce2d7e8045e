package benchmark

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
)

// Writer encodes measurement rows as
// resX,resY,lights,path,params,cpuMs,gpuMs,views
// where views is a ";"-joined list of name;cpuMs;gpuMs triples.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Write encodes one result and flushes it.
//
// Parameters:
//   - r: the result to write
//
// Returns:
//   - error: if the underlying writer fails
func (w *Writer) Write(r Result) error {
	if err := w.csv.Write(Row(r)); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Row returns the CSV fields of a result.
func Row(r Result) []string {
	views := make([]string, 0, 3*len(r.Stats.Views))
	for _, name := range r.Stats.ViewNames() {
		v := r.Stats.Views[name]
		views = append(views, name, millis(v.AvgCPU), millis(v.AvgGPU))
	}
	return []string{
		strconv.FormatUint(uint64(r.Run.Resolution.Width), 10),
		strconv.FormatUint(uint64(r.Run.Resolution.Height), 10),
		strconv.Itoa(r.Run.Lights),
		r.Run.Path.String(),
		r.Run.Params(),
		millis(r.Stats.AvgFrameCPU),
		millis(r.Stats.AvgFrameGPU),
		strings.Join(views, ";"),
	}
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 4, 64)
}
