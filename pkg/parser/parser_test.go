package parser

import (
	"fmt"
	"strings"
	"testing"
)

func TestParse_NoTags(t *testing.T) {
	resp := Parse("hello world")

	if resp.CleanText != "hello world" {
		t.Errorf("Expected clean text unchanged, got %q", resp.CleanText)
	}
	if resp.AffectionChange != 0 {
		t.Errorf("Expected zero affection change, got %d", resp.AffectionChange)
	}
	if len(resp.Options) != 0 {
		t.Errorf("Expected no options, got %d", len(resp.Options))
	}
	if resp.Event != nil {
		t.Error("Expected no event")
	}
}

func TestParse_AffectionClamp(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"[好感度:+5]", 5},
		{"[好感度:-3]", -3},
		{"[好感度:+50]", 10},
		{"[好感度:-99]", -10},
		{"[好感度：+7]", 7}, // full-width colon
	}

	for _, tt := range tests {
		resp := Parse("她笑了。" + tt.raw)
		if resp.AffectionChange != tt.want {
			t.Errorf("Parse(%q): expected affection %d, got %d", tt.raw, tt.want, resp.AffectionChange)
		}
		if strings.Contains(resp.CleanText, "好感度") {
			t.Errorf("Parse(%q): tag not stripped from clean text %q", tt.raw, resp.CleanText)
		}
	}
}

func TestParse_AffectionLastWins(t *testing.T) {
	resp := Parse("[好感度:+2]中间文字[好感度:-4]")
	if resp.AffectionChange != -4 {
		t.Errorf("Expected last affection tag to win, got %d", resp.AffectionChange)
	}
}

func TestParse_TrustAndGoldUnbounded(t *testing.T) {
	resp := Parse("交易完成。[信任度:+35][金币:-2500]")
	if resp.TrustChange != 35 {
		t.Errorf("Expected trust change 35, got %d", resp.TrustChange)
	}
	if resp.GoldChange != -2500 {
		t.Errorf("Expected gold change -2500, got %d", resp.GoldChange)
	}
}

func TestParse_OptionsCappedAtFour(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("你要怎么做？\n")
	for i := 1; i <= 6; i++ {
		sb.WriteString(fmt.Sprintf("[选项%d:选择%d]\n", i, i))
	}

	resp := Parse(sb.String())
	if len(resp.Options) != 4 {
		t.Fatalf("Expected exactly 4 options, got %d", len(resp.Options))
	}
	for i, opt := range resp.Options {
		if opt.Index != i+1 {
			t.Errorf("Expected option index %d, got %d", i+1, opt.Index)
		}
	}
	if strings.Contains(resp.CleanText, "选项") {
		t.Errorf("Expected all option tags stripped, got %q", resp.CleanText)
	}
}

func TestParse_TwoDigitIndicesStrippedAndDropped(t *testing.T) {
	resp := Parse("[选项1:甲][选项12:乙]她等你回答。[事件选项10:丙|5|-5]")
	if len(resp.Options) != 1 {
		t.Fatalf("Expected 1 option, got %d", len(resp.Options))
	}
	if len(resp.EventOptions) != 0 {
		t.Fatalf("Expected no event options, got %d", len(resp.EventOptions))
	}
	if strings.Contains(resp.CleanText, "选项") {
		t.Errorf("Expected out-of-range tags stripped from prose, got %q", resp.CleanText)
	}
}

func TestParse_DuplicateOptionIndexKeepsFirst(t *testing.T) {
	resp := Parse("[选项1:甲][选项1:乙][选项2:丙]")
	if len(resp.Options) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(resp.Options))
	}
	if resp.Options[0].Text != "甲" {
		t.Errorf("Expected first occurrence kept, got %q", resp.Options[0].Text)
	}
}

func TestParse_Event(t *testing.T) {
	text := "突然，乌云密布。[触发事件:暴雨|一场突如其来的暴雨|70]" +
		"[事件选项1:拉她避雨|+8|-2][事件选项2:继续前行|+3|-5]"

	resp := Parse(text)
	if resp.Event == nil {
		t.Fatal("Expected an event offer")
	}
	if resp.Event.Name != "暴雨" {
		t.Errorf("Expected event name 暴雨, got %q", resp.Event.Name)
	}
	if resp.Event.SuccessRate != 70 {
		t.Errorf("Expected success rate 70, got %d", resp.Event.SuccessRate)
	}
	if len(resp.EventOptions) != 2 {
		t.Fatalf("Expected 2 event options, got %d", len(resp.EventOptions))
	}
	if resp.EventOptions[0].SuccessDelta != 8 || resp.EventOptions[0].FailDelta != -2 {
		t.Errorf("Expected deltas +8/-2, got %+d/%+d",
			resp.EventOptions[0].SuccessDelta, resp.EventOptions[0].FailDelta)
	}
}

func TestParse_EventRateClamped(t *testing.T) {
	resp := Parse("[触发事件:告白|鼓起勇气|250]")
	if resp.Event == nil {
		t.Fatal("Expected an event offer")
	}
	if resp.Event.SuccessRate != 100 {
		t.Errorf("Expected rate clamped to 100, got %d", resp.Event.SuccessRate)
	}
}

func TestParse_SingleEventFirstWins(t *testing.T) {
	resp := Parse("[触发事件:甲|第一|50][触发事件:乙|第二|60]")
	if resp.Event == nil || resp.Event.Name != "甲" {
		t.Fatalf("Expected first event kept, got %+v", resp.Event)
	}
	if strings.Contains(resp.CleanText, "触发事件") {
		t.Errorf("Expected all event tags stripped, got %q", resp.CleanText)
	}
}

func TestParse_SceneTaskCluePlot(t *testing.T) {
	text := "[场景:黄昏的天台][任务:找到她的画册][线索:画册边角的烫金缩写][剧情:两人在天台初次交谈]正文。"
	resp := Parse(text)

	if resp.Scene != "黄昏的天台" {
		t.Errorf("Expected scene extracted, got %q", resp.Scene)
	}
	if resp.Task != "找到她的画册" {
		t.Errorf("Expected task extracted, got %q", resp.Task)
	}
	if resp.Clue != "画册边角的烫金缩写" {
		t.Errorf("Expected clue extracted, got %q", resp.Clue)
	}
	if resp.Plot != "两人在天台初次交谈" {
		t.Errorf("Expected plot extracted, got %q", resp.Plot)
	}
	if resp.CleanText != "正文。" {
		t.Errorf("Expected clean narrative, got %q", resp.CleanText)
	}
}

func TestParse_Discoveries(t *testing.T) {
	resp := Parse("[发现:人物|神秘的转学生][发现:地点|旧音乐教室]")
	if len(resp.Discoveries) != 2 {
		t.Fatalf("Expected 2 discoveries, got %d", len(resp.Discoveries))
	}
	if resp.Discoveries[0].Category != "人物" || resp.Discoveries[0].Content != "神秘的转学生" {
		t.Errorf("Unexpected discovery %+v", resp.Discoveries[0])
	}
}

func TestParse_ItemGrant(t *testing.T) {
	resp := Parse("她递给你一把钥匙。[获得物品:音乐教室钥匙|key|能打开旧音乐教室的门]")
	if len(resp.Items) != 1 {
		t.Fatalf("Expected 1 item grant, got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.Name != "音乐教室钥匙" || item.Type != "key" {
		t.Errorf("Unexpected item grant %+v", item)
	}
	if item.Description == "" {
		t.Error("Expected item description extracted")
	}
}

func TestParse_MalformedTagsLeftInProse(t *testing.T) {
	// Unclosed bracket and unknown tag names degrade to narrative-only.
	resp := Parse("[好感度:+5 未闭合 [未知标签:x]")
	if resp.AffectionChange != 0 {
		t.Errorf("Expected malformed affection tag ignored, got %d", resp.AffectionChange)
	}
}

func TestParse_WhitespaceCollapsed(t *testing.T) {
	text := "第一段。\n\n[场景:教室]\n\n\n\n第二段。"
	resp := Parse(text)
	if strings.Contains(resp.CleanText, "\n\n\n") {
		t.Errorf("Expected blank runs collapsed, got %q", resp.CleanText)
	}
	if strings.HasPrefix(resp.CleanText, "\n") || strings.HasSuffix(resp.CleanText, "\n") {
		t.Errorf("Expected trimmed clean text, got %q", resp.CleanText)
	}
}

func TestParseBootstrap(t *testing.T) {
	text := `名字：绫音
世界观：近未来的海滨城市
身份：高中二年级学生，天文社社长
性格：外冷内热，嘴硬心软
喜好：星空、黑咖啡
厌恶：被当成小孩子
背景：幼年随父母搬到这座城市
秘密：她其实一直记得小时候见过你
场景：放学后的天文台
相遇原因：你误闯了天文社的观测活动
开场白：「……你挡住望远镜了。让开一点。」`

	b := ParseBootstrap(text)
	if b.Name != "绫音" {
		t.Errorf("Expected name 绫音, got %q", b.Name)
	}
	if b.World != "近未来的海滨城市" {
		t.Errorf("Expected world extracted, got %q", b.World)
	}
	if b.Secret == "" {
		t.Error("Expected secret extracted")
	}
	if b.Greeting != "「……你挡住望远镜了。让开一点。」" {
		t.Errorf("Expected greeting extracted, got %q", b.Greeting)
	}
	if b.IsEmpty() {
		t.Error("Expected bootstrap to be non-empty")
	}
}

func TestParseBootstrap_MissingFieldsNotAnError(t *testing.T) {
	b := ParseBootstrap("没有任何标签的普通文本")
	if !b.IsEmpty() {
		t.Errorf("Expected empty bootstrap, got %+v", b)
	}
}

func TestParseBootstrap_MarkdownDecorations(t *testing.T) {
	b := ParseBootstrap("- **名字**：小樱\n* 性格: 开朗")
	if b.Name != "小樱" {
		t.Errorf("Expected markdown list label parsed, got %q", b.Name)
	}
	if b.Personality != "开朗" {
		t.Errorf("Expected ASCII colon label parsed, got %q", b.Personality)
	}
}
