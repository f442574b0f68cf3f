package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/galgame-engine/pkg/chat"
	"github.com/jwebster45206/galgame-engine/pkg/game"
)

func TestNew(t *testing.T) {
	b := New()
	if b == nil {
		t.Fatal("Expected builder to be created, got nil")
	}
	if b.historyWindow != DefaultHistoryWindow {
		t.Errorf("Expected default history window %d, got %d", DefaultHistoryWindow, b.historyWindow)
	}
}

func TestBuilder_Build_RequiresSession(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Error("Expected error when session is missing")
	}
}

func TestBuilder_Build_MessageOrder(t *testing.T) {
	sess := game.NewSession("", "u1", "")
	history := []game.HistoryEntry{
		{Role: game.HistoryRolePlayer, Content: "你好"},
		{Role: game.HistoryRoleCharacter, Content: "……你是谁？"},
	}

	messages, err := New().
		WithSession(sess).
		WithHistory(history).
		WithPlayerTurn("我叫阿远。", nil).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(messages) != 4 {
		t.Fatalf("Expected 4 messages (system + 2 history + user), got %d", len(messages))
	}
	if messages[0].Role != chat.ChatRoleSystem {
		t.Errorf("Expected system message first, got %q", messages[0].Role)
	}
	if messages[1].Role != chat.ChatRoleUser || messages[2].Role != chat.ChatRoleAgent {
		t.Error("Expected history roles mapped player→user, character→assistant")
	}
	if messages[3].Content != "我叫阿远。" {
		t.Errorf("Expected player turn last, got %q", messages[3].Content)
	}
}

func TestBuilder_Build_HistoryWindow(t *testing.T) {
	sess := game.NewSession("", "u1", "")
	var history []game.HistoryEntry
	for i := 0; i < 10; i++ {
		history = append(history, game.HistoryEntry{Role: game.HistoryRolePlayer, Content: "msg"})
	}

	messages, err := New().
		WithSession(sess).
		WithHistory(history).
		WithHistoryWindow(4).
		WithPlayerTurn("hi", nil).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	// system + 4 windowed + user
	if len(messages) != 6 {
		t.Errorf("Expected 6 messages, got %d", len(messages))
	}
}

func TestBuilder_Build_ImageRefs(t *testing.T) {
	sess := game.NewSession("", "u1", "")
	messages, err := New().
		WithSession(sess).
		WithPlayerTurn("看这个", []string{"photo.jpg"}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	last := messages[len(messages)-1]
	if !strings.Contains(last.Content, "photo.jpg") {
		t.Errorf("Expected image reference in player turn, got %q", last.Content)
	}
}

func TestBuildSystemPrompt_GrammarAlwaysAppended(t *testing.T) {
	sess := game.NewSession("", "u1", "")
	char := &game.Character{Name: "小樱", PromptTemplate: "你是{character_name}。"}

	prompt := BuildSystemPrompt(char, sess, "")
	if !strings.Contains(prompt, "你是小樱。") {
		t.Errorf("Expected custom template substituted, got %q", prompt)
	}
	if !strings.Contains(prompt, "输出控制标记") {
		t.Error("Expected grammar block appended to custom template")
	}
}

func TestBuildSystemPrompt_SecretWithheld(t *testing.T) {
	sess := game.NewSession("", "u1", "")
	sess.Settings.Environment = game.Environment{
		Name:   "绫音",
		World:  "海滨城市",
		Secret: "她一直记得小时候见过你",
	}

	prompt := BuildSystemPrompt(nil, sess, "")
	if strings.Contains(prompt, "她一直记得小时候见过你") {
		t.Error("Expected secret withheld before any reveal")
	}

	sess.Settings.State.RevealSecret("儿时的约定")
	prompt = BuildSystemPrompt(nil, sess, "")
	if !strings.Contains(prompt, "她一直记得小时候见过你") {
		t.Error("Expected secret included after reveal")
	}
}

func TestBuildSystemPrompt_StateDigests(t *testing.T) {
	sess := game.NewSession("", "u1", "")
	sess.Settings.State.AddClue("画册上的缩写")
	sess.Settings.State.AddNPC("店长")
	for _, p := range []string{"一", "二", "三", "四", "五"} {
		sess.Settings.State.AddPlot(p)
	}
	sess.MarkTriggered("初次约会")

	prompt := BuildSystemPrompt(nil, sess, "之前的摘要")
	if !strings.Contains(prompt, "画册上的缩写") || !strings.Contains(prompt, "店长") {
		t.Error("Expected known info digest in prompt")
	}
	if !strings.Contains(prompt, "初次约会") {
		t.Error("Expected triggered events in known info digest")
	}
	// Story progress carries only the last 3 plot entries.
	if strings.Contains(prompt, "1. 一") || !strings.Contains(prompt, "五") {
		t.Error("Expected story progress limited to last 3 plot entries")
	}
	if !strings.Contains(prompt, "之前的摘要") {
		t.Error("Expected history summary substituted")
	}
}

func TestBuildSystemPrompt_DiscoveredInfoStableOrder(t *testing.T) {
	sess := game.NewSession("", "u1", "")
	for _, c := range []string{"人物", "地点", "传闻", "往事"} {
		sess.Settings.State.AddDiscovery(c, c+"的内容")
	}

	first := BuildSystemPrompt(nil, sess, "")
	for i := 0; i < 10; i++ {
		if got := BuildSystemPrompt(nil, sess, ""); got != first {
			t.Fatal("Expected identical prompt for identical state")
		}
	}
}

func TestBuildOpeningPrompt(t *testing.T) {
	env := game.Environment{
		Name:          "绫音",
		World:         "海滨城市",
		Identity:      "天文社社长",
		Personality:   "外冷内热",
		Scene:         "放学后的天文台",
		MeetingReason: "误闯观测活动",
		Greeting:      "……你挡住望远镜了。",
	}
	prompt := BuildOpeningPrompt(env)
	for _, want := range []string{"绫音", "放学后的天文台", "……你挡住望远镜了。"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected opening prompt to contain %q", want)
		}
	}
}
