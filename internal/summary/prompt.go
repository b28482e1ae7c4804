package summary

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultLanguage is the output language when the request does not choose one.
const DefaultLanguage = "中文"

// PromptOptions carries everything the prompt builder needs.
type PromptOptions struct {
	Title           string
	Transcript      string
	OutputLanguage  string
	DurationSeconds float64
	ByteLimit       int
}

// inlineTimestampRE detects bracketed timestamps anywhere in the transcript.
var inlineTimestampRE = regexp.MustCompile(`\[\d{1,2}:\d{2}(?::\d{2})?\]`)

var newlineRunRE = regexp.MustCompile(`\n+`)

// StructuredSummary renders the structured-summary request. Bracketed
// timestamps in the transcript are preserved verbatim (newlines included) so
// the provider can place them; without timestamps, newlines collapse to
// single spaces. When a duration is known, a ceiling instruction forbids
// generated timestamps past the end of the video — a prompt-level contract
// the provider is trusted, not guaranteed, to honor.
func StructuredSummary(opts PromptOptions) string {
	title := strings.TrimSpace(newlineRunRE.ReplaceAllString(opts.Title, " "))

	byteLimit := opts.ByteLimit
	if byteLimit <= 0 {
		byteLimit = DefaultByteLimit
	}
	transcript := LimitByteLength(opts.Transcript, byteLimit)
	if inlineTimestampRE.MatchString(transcript) {
		transcript = strings.TrimSpace(transcript)
	} else {
		transcript = strings.TrimSpace(newlineRunRE.ReplaceAllString(transcript, " "))
	}

	language := opts.OutputLanguage
	if language == "" {
		language = DefaultLanguage
	}

	durationConstraint := ""
	if opts.DurationSeconds > 0 {
		formatted := SecondsToClock(opts.DurationSeconds)
		durationConstraint = fmt.Sprintf(
			"\n\nIMPORTANT: This video has a total duration of %s (%.0f seconds). ALL timestamps you generate (e.g., MM:SS or HH:MM:SS) MUST be ≤ this duration. If any content corresponds to a time beyond the duration, automatically adjust it to the closest valid time or skip that timestamp. NEVER generate timestamps that exceed %s.",
			formatted, opts.DurationSeconds, formatted)
	}

	return fmt.Sprintf(`You are a professional video content analyzer. Please analyze the video and generate a comprehensive structured summary in %s Language.%s

Your output MUST follow this EXACT format (copy the structure precisely):

## 摘要
[Write a complete paragraph (2-4 sentences) summarizing the video content. Do NOT use bullet points or lists. Write as a flowing paragraph.]

## 亮点
[emoji] [Content description. Write naturally, include key details. Add timestamp at the END if applicable, format: MM:SS or HH:MM:SS]
[Continue with 5-8 highlights, each starting with an emoji]
#标签1 #标签2 #标签3 [Add 3-5 relevant hashtags at the end]

## 思考
[Question as a title/subheading, without "问题：" prefix]
[Answer content. Add timestamp at the END of the answer if applicable]

[Continue with 3-5 questions and answers]

## 术语解释
[Term Name]: [Explanation content]
[Continue with 3-5 terms, each on a new line]

## 视频主题
[Video topic/title in one line]

## 时间线总结

[Timestamp] - [emoji] [Brief title/heading]

[Detailed description paragraph explaining what happens at this timestamp]

[Continue with chronological timeline entries]

Requirements:
1. Use EXACT markdown headers: ## 摘要, ## 亮点, ## 思考, ## 术语解释, ## 视频主题, ## 时间线总结
2. 摘要 must be a complete paragraph, NOT a list
3. 亮点: Start each line with an emoji, add the timestamp at the END if applicable, finish with a hashtags line. Each highlight MUST be on a separate line.
4. 思考: Question as title, answer as content with timestamp at END if applicable. Separate each pair with a blank line.
5. 术语解释: Format as "Term: Explanation", one per line, no bullet points
6. If the transcript contains timestamps like "[0:49]" at the beginning of a line, extract them, strip the brackets and place the time at the END of the matching highlight or answer (e.g. "☕️ passengers enjoy afternoon tea 0:49")
7. If the transcript does NOT contain timestamps, you may omit timestamps or estimate them from content position
8. There may be typos in the subtitles, please correct them
9. All content should be in %s Language

Title: "%s"
Transcript: "%s"

Please generate the structured summary now:`, language, durationConstraint, language, title, transcript)
}

// QASystemPrompt builds the system message for single-turn question
// answering over a transcript.
func QASystemPrompt(videoTitle, transcriptText string) string {
	if strings.TrimSpace(videoTitle) == "" {
		videoTitle = "未知"
	}
	return fmt.Sprintf(`你是一个专业的视频内容分析助手。用户正在观看一个视频，你需要根据视频的字幕内容来精准回答用户的问题。

以下是视频的信息：
- 视频标题：%s
- 视频字幕内容：
%s

请注意以下规则：
1. 只根据上述字幕内容来回答问题，不要编造字幕中没有提到的信息。
2. 如果字幕中包含时间戳信息（如 [MM:SS] 格式），在回答中引用相关内容时，请附上对应的时间戳，方便用户跳转到视频对应位置。
3. 如果问题在字幕内容中找不到答案，请诚实告知用户该信息在视频中未提及。
4. 回答请简洁明了。
5. 可以对字幕内容进行归纳、总结和分析。`, videoTitle, transcriptText)
}

// SecondsToClock renders seconds as M:SS or H:MM:SS.
func SecondsToClock(seconds float64) string {
	s := int(seconds)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
