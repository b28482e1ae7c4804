package subtitle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Cue is a single raw subtitle cue before grouping into transcript items.
type Cue struct {
	Start float64
	Text  string
}

// cuesPerItem controls how many raw cues are merged into one transcript item.
// Merging keeps item counts manageable for the compaction engine while the
// leading cue's start time stays addressable.
const cuesPerItem = 5

// ReduceCues groups raw cues into transcript items. When withTimestamp is
// set, each item text gets a bracketed [M:SS] prefix from its first cue and
// StartSeconds is populated.
func ReduceCues(cues []Cue, withTimestamp bool) []TranscriptItem {
	if len(cues) == 0 {
		return nil
	}
	var items []TranscriptItem
	for i := 0; i < len(cues); i += cuesPerItem {
		end := i + cuesPerItem
		if end > len(cues) {
			end = len(cues)
		}
		parts := make([]string, 0, end-i)
		for _, c := range cues[i:end] {
			if t := strings.TrimSpace(c.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			continue
		}
		text := strings.Join(parts, " ")
		item := TranscriptItem{Index: len(items)}
		if withTimestamp {
			start := cues[i].Start
			item.Text = FormatBracketTimestamp(start) + " " + text
			item.StartSeconds = &start
		} else {
			item.Text = text
		}
		items = append(items, item)
	}
	return items
}

// FormatBracketTimestamp renders seconds as [M:SS] or [H:MM:SS].
func FormatBracketTimestamp(seconds float64) string {
	s := int(seconds)
	if s < 0 {
		s = 0
	}
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("[%d:%02d:%02d]", h, m, sec)
	}
	return fmt.Sprintf("[%d:%02d]", m, sec)
}

// ParseVTT parses WebVTT content into cues. Header, cue identifiers, NOTE
// and STYLE blocks are skipped.
func ParseVTT(content string) []Cue {
	var cues []Cue
	lines := strings.Split(content, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "-->") {
			i++
			continue
		}
		start, ok := parseCueTimestamp(strings.TrimSpace(strings.SplitN(line, "-->", 2)[0]))
		i++
		var text []string
		for i < len(lines) {
			t := strings.TrimSpace(lines[i])
			if t == "" {
				break
			}
			text = append(text, stripCueTags(t))
			i++
		}
		if ok && len(text) > 0 {
			cues = append(cues, Cue{Start: start, Text: strings.Join(text, " ")})
		}
	}
	return cues
}

// ParseSRT parses SubRip content into cues. Sequence numbers are ignored;
// ordering comes from file position.
func ParseSRT(content string) []Cue {
	var cues []Cue
	blocks := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		timeIdx := -1
		for j, l := range lines {
			if strings.Contains(l, "-->") {
				timeIdx = j
				break
			}
		}
		if timeIdx < 0 || timeIdx+1 >= len(lines) {
			continue
		}
		start, ok := parseCueTimestamp(strings.TrimSpace(strings.SplitN(lines[timeIdx], "-->", 2)[0]))
		if !ok {
			continue
		}
		var text []string
		for _, l := range lines[timeIdx+1:] {
			if t := strings.TrimSpace(l); t != "" {
				text = append(text, stripCueTags(t))
			}
		}
		if len(text) > 0 {
			cues = append(cues, Cue{Start: start, Text: strings.Join(text, " ")})
		}
	}
	return cues
}

// jsonCue matches both the savesubs JSON export ({start, text}) and the
// bilibili subtitle body ({from, content}).
type jsonCue struct {
	Start   float64 `json:"start"`
	From    float64 `json:"from"`
	Text    string  `json:"text"`
	Content string  `json:"content"`
}

// ParseJSONCues parses a JSON array of cue objects.
func ParseJSONCues(content string) []Cue {
	var raw []jsonCue
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil
	}
	var cues []Cue
	for _, c := range raw {
		text := c.Text
		if text == "" {
			text = c.Content
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		start := c.Start
		if start == 0 && c.From > 0 {
			start = c.From
		}
		cues = append(cues, Cue{Start: start, Text: text})
	}
	return cues
}

// parseCueTimestamp parses "HH:MM:SS.mmm", "HH:MM:SS,mmm" or "MM:SS.mmm"
// into seconds.
func parseCueTimestamp(ts string) (float64, bool) {
	ts = strings.ReplaceAll(ts, ",", ".")
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}

// ParseClockDuration parses "H:MM:SS", "MM:SS" or a bare seconds value.
func ParseClockDuration(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ":") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	v, ok := parseCueTimestamp(s)
	if !ok {
		return 0
	}
	return v
}

// stripCueTags removes inline markup like <i>, <b> and voice spans.
func stripCueTags(s string) string {
	for {
		open := strings.Index(s, "<")
		if open < 0 {
			break
		}
		close := strings.Index(s[open:], ">")
		if close < 0 {
			break
		}
		s = s[:open] + s[open+close+1:]
	}
	return strings.TrimSpace(s)
}
