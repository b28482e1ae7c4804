// Package summary holds the transcript compaction engine and the prompt
// builder for the completion provider.
package summary

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/video-summary/backend/internal/subtitle"
)

// DefaultByteLimit is the prompt budget for transcript text, in UTF-8 bytes.
// 15,000 bytes is roughly where prompts start getting truncated; 6,200
// leaves room for the instruction template.
const DefaultByteLimit = 6200

// timestampPrefixRE matches a bracketed [M:SS] / [HH:MM:SS] prefix.
var timestampPrefixRE = regexp.MustCompile(`^\[\d{1,2}:\d{2}(?::\d{2})?\]`)

// hasTimestampFormat samples up to 10 items and reports whether a majority
// carry a bracketed timestamp prefix.
func hasTimestampFormat(items []subtitle.TranscriptItem) bool {
	if len(items) == 0 {
		return false
	}
	sampleSize := len(items)
	if sampleSize > 10 {
		sampleSize = 10
	}
	count := 0
	for _, item := range items[:sampleSize] {
		if timestampPrefixRE.MatchString(strings.TrimSpace(item.Text)) {
			count++
		}
	}
	threshold := (sampleSize + 1) / 2
	if threshold < 1 {
		threshold = 1
	}
	return count >= threshold
}

// Compact reduces newItems to fit byteLimit, then backfills entries from
// oldItems that are not already present, in their original order. The
// result's UTF-8 byte length never exceeds byteLimit unless a single
// non-decomposable item is itself over budget, in which case the oversize
// text is returned as-is.
//
// Reduction discards a random half of the items per round, so output is
// non-deterministic for over-budget input; pass a seeded rnd for
// reproducibility. Tests should assert the byte bound, not exact output.
func Compact(newItems, oldItems []subtitle.TranscriptItem, byteLimit int, rnd *rand.Rand) string {
	separator := " "
	if hasTimestampFormat(newItems) {
		// Newlines keep the bracketed timestamps parseable downstream.
		separator = "\n"
	}
	return compact(newItems, oldItems, byteLimit, separator, rnd)
}

func compact(newItems, oldItems []subtitle.TranscriptItem, byteLimit int, separator string, rnd *rand.Rand) string {
	working := sortedByIndex(newItems)
	text := joinItems(working, separator)

	if len(text) > byteLimit {
		if len(working) <= 1 {
			// Single item over budget: best-effort oversize output.
			return text
		}
		return compact(filterHalfRandomly(working, rnd), oldItems, byteLimit, separator, rnd)
	}

	lastByteLength := len(text)
	for _, old := range oldItems {
		if containsText(newItems, old.Text) {
			continue
		}
		nextByteLength := len(old.Text)
		if lastByteLength+nextByteLength > byteLimit {
			headroom := byteLimit - lastByteLength
			if headroom > 0 {
				chunk := truncateProportionally(old.Text, headroom, nextByteLength)
				if chunk != "" {
					working = append(working, subtitle.TranscriptItem{Text: chunk, Index: old.Index})
					working = sortedByIndex(working)
					text = joinItems(working, separator)
				}
			}
			break
		}
		working = append(working, old)
		working = sortedByIndex(working)
		text = joinItems(working, separator)
		lastByteLength = len(text)
	}

	// Character-proportional truncation can round over the boundary on
	// multibyte text; clamp to keep the budget guarantee.
	if len(text) > byteLimit {
		text = clampBytes(text, byteLimit)
	}
	return text
}

// LimitByteLength trims s to roughly byteLimit UTF-8 bytes using
// character-proportional truncation, then clamps to the exact bound.
func LimitByteLength(s string, byteLimit int) string {
	if len(s) <= byteLimit {
		return s
	}
	runes := []rune(s)
	ratio := float64(byteLimit) / float64(len(s))
	keep := int(float64(len(runes)) * ratio)
	if keep < 0 {
		keep = 0
	}
	return clampBytes(string(runes[:keep]), byteLimit)
}

// truncateProportionally keeps the share of text matching the remaining
// headroom (in bytes), truncating on character boundaries.
func truncateProportionally(text string, headroom, byteLength int) string {
	runes := []rune(text)
	keep := int(float64(len(runes)) * float64(headroom) / float64(byteLength))
	if keep <= 0 {
		return ""
	}
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[:keep])
}

// clampBytes cuts s to at most byteLimit bytes on a rune boundary.
func clampBytes(s string, byteLimit int) string {
	if len(s) <= byteLimit {
		return s
	}
	cut := byteLimit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// filterHalfRandomly removes roughly half of the items by uniform random
// selection without replacement.
func filterHalfRandomly(items []subtitle.TranscriptItem, rnd *rand.Rand) []subtitle.TranscriptItem {
	half := len(items) / 2
	drop := make(map[int]bool, half)
	for len(drop) < half {
		var idx int
		if rnd != nil {
			idx = rnd.Intn(len(items))
		} else {
			idx = rand.Intn(len(items))
		}
		drop[idx] = true
	}
	kept := make([]subtitle.TranscriptItem, 0, len(items)-half)
	for i, item := range items {
		if !drop[i] {
			kept = append(kept, item)
		}
	}
	return kept
}

func containsText(items []subtitle.TranscriptItem, text string) bool {
	for _, item := range items {
		if item.Text == text {
			return true
		}
	}
	return false
}

func sortedByIndex(items []subtitle.TranscriptItem) []subtitle.TranscriptItem {
	out := make([]subtitle.TranscriptItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func joinItems(items []subtitle.TranscriptItem, separator string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Text
	}
	return strings.Join(parts, separator)
}
