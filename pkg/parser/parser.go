// Package parser extracts control markup from model replies.
//
// The model is instructed to embed bracketed directives inside freeform
// prose. Grammar v1, one directive per bracket pair:
//
//	directive   = "[" tag "]"
//	tag         = scene | task | clue | plot | discovery | item
//	            | trust | gold | affection | option | event | eventOption
//	scene       = "场景" sep text
//	task        = "任务" sep text
//	clue        = "线索" sep text
//	plot        = "剧情" sep text
//	discovery   = "发现" sep category "|" text
//	item        = "获得物品" sep name "|" type [ "|" description ]
//	trust       = "信任度" sep signedInt
//	gold        = "金币" sep signedInt
//	affection   = "好感度" sep signedInt
//	option      = "选项" index sep text
//	event       = "触发事件" sep name "|" description "|" successRate
//	eventOption = "事件选项" index sep text "|" signedInt "|" signedInt
//	sep         = ":" | "："
//	index       = "1" … "4"
//
// Parsing never fails: every directive is optional, malformed markup is
// left in the prose, and absent numeric directives default to zero.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxOptions bounds how many numbered options a reply may carry.
// Directives with higher indices are dropped.
const MaxOptions = 4

// TurnAffectionLimit clamps the per-turn affection delta regardless of
// what the model emitted. Trust and gold deltas are intentionally not
// limited per turn.
const TurnAffectionLimit = 10

// Option is a numbered choice offered to the player.
type Option struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// EventOffer is a named one-shot event proposed by the model, with a
// success rate in [0,100].
type EventOffer struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SuccessRate int    `json:"success_rate"`
}

// EventOption is a numbered way to face an offered event, carrying the
// affection deltas applied on success or failure.
type EventOption struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	SuccessDelta int    `json:"success_delta"`
	FailDelta    int    `json:"fail_delta"`
}

// Discovery is a categorized piece of world knowledge.
type Discovery struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// ItemGrant is an inventory grant emitted by the model.
type ItemGrant struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Response is the structured result of parsing a model reply.
type Response struct {
	CleanText       string        `json:"clean_text"`
	Scene           string        `json:"scene,omitempty"`
	Task            string        `json:"task,omitempty"`
	Clue            string        `json:"clue,omitempty"`
	Plot            string        `json:"plot,omitempty"`
	Discoveries     []Discovery   `json:"discoveries,omitempty"`
	Items           []ItemGrant   `json:"items,omitempty"`
	TrustChange     int           `json:"trust_change,omitempty"`
	GoldChange      int           `json:"gold_change,omitempty"`
	AffectionChange int           `json:"affection_change,omitempty"`
	Options         []Option      `json:"options,omitempty"`
	Event           *EventOffer   `json:"event,omitempty"`
	EventOptions    []EventOption `json:"event_options,omitempty"`
}

var (
	sceneRe     = regexp.MustCompile(`\[场景[:：]([^\]\|]+)\]`)
	taskRe      = regexp.MustCompile(`\[任务[:：]([^\]\|]+)\]`)
	clueRe      = regexp.MustCompile(`\[线索[:：]([^\]\|]+)\]`)
	plotRe      = regexp.MustCompile(`\[剧情[:：]([^\]\|]+)\]`)
	discoveryRe = regexp.MustCompile(`\[发现[:：]([^\]\|]+)\|([^\]]+)\]`)
	itemRe      = regexp.MustCompile(`\[获得物品[:：]([^\]\|]+)\|([^\]\|]+)(?:\|([^\]]+))?\]`)
	trustRe     = regexp.MustCompile(`\[信任度[:：]([+-]?\d+)\]`)
	goldRe      = regexp.MustCompile(`\[金币[:：]([+-]?\d+)\]`)
	affectionRe = regexp.MustCompile(`\[好感度[:：]([+-]?\d+)\]`)
	optionRe    = regexp.MustCompile(`\[选项(\d{1,2})[:：]([^\]]+)\]`)
	eventRe     = regexp.MustCompile(`\[触发事件[:：]([^\]\|]+)\|([^\]\|]+)\|(\d+)\]`)
	eventOptRe  = regexp.MustCompile(`\[事件选项(\d{1,2})[:：]([^\]\|]+)\|([+-]?\d+)\|([+-]?\d+)\]`)

	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	spaceRunRe      = regexp.MustCompile(`[ \t]{2,}`)
)

// Parse extracts every directive from a model reply. Each matched
// directive is stripped from the running text before the next pattern
// is applied; remaining whitespace runs are collapsed at the end.
func Parse(text string) *Response {
	resp := &Response{}

	text, resp.Scene = takeLast(text, sceneRe)
	text, resp.Task = takeLast(text, taskRe)
	text, resp.Clue = takeLast(text, clueRe)
	text, resp.Plot = takeLast(text, plotRe)

	var matches [][]string
	text, matches = takeAll(text, discoveryRe)
	for _, m := range matches {
		resp.Discoveries = append(resp.Discoveries, Discovery{
			Category: strings.TrimSpace(m[1]),
			Content:  strings.TrimSpace(m[2]),
		})
	}

	text, matches = takeAll(text, itemRe)
	for _, m := range matches {
		resp.Items = append(resp.Items, ItemGrant{
			Name:        strings.TrimSpace(m[1]),
			Type:        strings.TrimSpace(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
	}

	text, resp.TrustChange = takeLastInt(text, trustRe)
	text, resp.GoldChange = takeLastInt(text, goldRe)

	// Last occurrence wins, then the per-turn clamp applies.
	text, resp.AffectionChange = takeLastInt(text, affectionRe)
	resp.AffectionChange = clamp(resp.AffectionChange, -TurnAffectionLimit, TurnAffectionLimit)

	text, matches = takeAll(text, optionRe)
	resp.Options = collectOptions(matches)

	text, matches = takeAll(text, eventRe)
	if len(matches) > 0 {
		m := matches[0]
		rate, _ := strconv.Atoi(m[3])
		resp.Event = &EventOffer{
			Name:        strings.TrimSpace(m[1]),
			Description: strings.TrimSpace(m[2]),
			SuccessRate: clamp(rate, 0, 100),
		}
	}

	text, matches = takeAll(text, eventOptRe)
	resp.EventOptions = collectEventOptions(matches)

	resp.CleanText = collapseWhitespace(text)
	return resp
}

// takeLast strips every match of re from text; the last occurrence
// provides the value.
func takeLast(text string, re *regexp.Regexp) (string, string) {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, ""
	}
	value := strings.TrimSpace(matches[len(matches)-1][1])
	return re.ReplaceAllString(text, ""), value
}

func takeLastInt(text string, re *regexp.Regexp) (string, int) {
	remaining, raw := takeLast(text, re)
	if raw == "" {
		return remaining, 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return remaining, 0
	}
	return remaining, n
}

func takeAll(text string, re *regexp.Regexp) (string, [][]string) {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}
	return re.ReplaceAllString(text, ""), matches
}

func collectOptions(matches [][]string) []Option {
	seen := make(map[int]bool)
	var options []Option
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > MaxOptions || seen[idx] {
			continue
		}
		seen[idx] = true
		options = append(options, Option{Index: idx, Text: strings.TrimSpace(m[2])})
	}
	sortByIndex(options, func(o Option) int { return o.Index })
	return options
}

func collectEventOptions(matches [][]string) []EventOption {
	seen := make(map[int]bool)
	var options []EventOption
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > MaxOptions || seen[idx] {
			continue
		}
		seen[idx] = true
		succ, _ := strconv.Atoi(m[3])
		fail, _ := strconv.Atoi(m[4])
		options = append(options, EventOption{
			Index:        idx,
			Text:         strings.TrimSpace(m[2]),
			SuccessDelta: succ,
			FailDelta:    fail,
		})
	}
	sortByIndex(options, func(o EventOption) int { return o.Index })
	return options
}

func sortByIndex[T any](items []T, index func(T) int) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && index(items[j]) < index(items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func collapseWhitespace(text string) string {
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
