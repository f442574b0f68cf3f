package parser

import (
	"regexp"
	"strings"
)

// Bootstrap holds the labeled fields of a phase-1 persona reply. Every
// field is optional; a missing label leaves the field empty.
type Bootstrap struct {
	Name          string `json:"name"`
	World         string `json:"world"`
	Identity      string `json:"identity"`
	Personality   string `json:"personality"`
	Likes         string `json:"likes"`
	Dislikes      string `json:"dislikes"`
	Background    string `json:"background"`
	Secret        string `json:"secret"`
	Scene         string `json:"scene"`
	MeetingReason string `json:"meeting_reason"`
	Greeting      string `json:"greeting"`
}

// bootstrapLine matches one "标签：值" line, tolerating markdown list
// markers and bold markers the model sometimes adds.
func bootstrapLine(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[\s>*#-]*(?:\*\*)?(?:` + labels + `)(?:\*\*)?\s*[:：]\s*(.+?)\s*$`)
}

var bootstrapFields = []struct {
	re     *regexp.Regexp
	assign func(*Bootstrap, string)
}{
	{bootstrapLine(`名字|姓名`), func(b *Bootstrap, v string) { b.Name = v }},
	{bootstrapLine(`世界观|世界`), func(b *Bootstrap, v string) { b.World = v }},
	{bootstrapLine(`身份`), func(b *Bootstrap, v string) { b.Identity = v }},
	{bootstrapLine(`性格`), func(b *Bootstrap, v string) { b.Personality = v }},
	{bootstrapLine(`喜好|喜欢`), func(b *Bootstrap, v string) { b.Likes = v }},
	{bootstrapLine(`厌恶|讨厌`), func(b *Bootstrap, v string) { b.Dislikes = v }},
	{bootstrapLine(`背景`), func(b *Bootstrap, v string) { b.Background = v }},
	{bootstrapLine(`秘密`), func(b *Bootstrap, v string) { b.Secret = v }},
	{bootstrapLine(`场景`), func(b *Bootstrap, v string) { b.Scene = v }},
	{bootstrapLine(`相遇原因|相遇`), func(b *Bootstrap, v string) { b.MeetingReason = v }},
	{bootstrapLine(`开场白|问候语`), func(b *Bootstrap, v string) { b.Greeting = v }},
}

// ParseBootstrap extracts the labeled persona fields from a phase-1
// reply. Missing labels are not an error.
func ParseBootstrap(text string) *Bootstrap {
	b := &Bootstrap{}
	for _, field := range bootstrapFields {
		if m := field.re.FindStringSubmatch(text); m != nil {
			field.assign(b, strings.TrimSpace(m[1]))
		}
	}
	return b
}

// IsEmpty reports whether no persona field was recognized at all.
func (b *Bootstrap) IsEmpty() bool {
	return b.Name == "" && b.World == "" && b.Identity == "" &&
		b.Personality == "" && b.Background == "" && b.Greeting == ""
}
