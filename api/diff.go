package api

import (
	"encoding/json"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Diff compares two states. If they differ, text is an ASCII rendering
// of the delta.
func Diff(before, after CpuState, coloring bool) (text string, modified bool, err error) {
	left, err := json.Marshal(before)
	if err != nil {
		return
	}
	right, err := json.Marshal(after)
	if err != nil {
		return
	}

	differ := gojsondiff.New()
	delta, err := differ.Compare(left, right)
	if err != nil {
		return
	}
	modified = delta.Modified()
	if !modified {
		return
	}

	var leftObj any
	_ = json.Unmarshal(left, &leftObj)

	cfg := formatter.AsciiFormatterConfig{
		Coloring: coloring,
	}
	text, err = formatter.NewAsciiFormatter(leftObj, cfg).Format(delta)

	return
}
