// Package prompts assembles the system prompts for the galgame turn
// loop and the two-phase character bootstrap.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// DefaultSystemPromptTemplate is used when a character carries no
// custom template. Custom templates may use the same {placeholder}
// tokens; the control-markup block is appended after substitution
// either way, so a custom template can never drop the grammar contract.
const DefaultSystemPromptTemplate = `你正在扮演一个恋爱文字游戏（Galgame）中的角色。完全沉浸在角色中，不要承认你是 AI，不要讨论游戏机制。

### 你的角色
姓名：{character_name}
世界观：{world}
身份：{identity}
性格：{personality}
喜好：{likes}
厌恶：{dislikes}
背景：{background}
相遇原因：{meeting_reason}
秘密：{secret}

### 当前关系
好感度：{affection_value}（{affection_level}）
关系：{relationship}
信任度：{trust_value}（{trust_level}）
玩家金币：{gold}

### 当前进展
场景：{current_scene}
任务：{current_task}

### 已知情报
{known_info}

### 剧情回顾
{story_progress}

### 此前对话摘要
{history_summary}

### 行为准则
- 以第一人称扮演角色，叙述与对白交织，每次回复一到三段。
- 按照当前好感度对应的关系阶段与玩家互动，不要跳跃式升温。
- 秘密未被玩家发现前绝不主动透露。
- 已经触发过的事件不要再次触发。`

// GrammarPrompt is the fixed closing block describing the control
// markup. It is always appended after template substitution.
const GrammarPrompt = `

### 输出控制标记（必须严格遵守格式，标记会被系统解析后从文本中移除）
在正文中可以嵌入以下方括号标记：
- [好感度:±数字] 本回合好感度变化（-10 到 +10）
- [信任度:±数字] 信任度变化
- [金币:±数字] 玩家金币变化
- [场景:描述] 场景发生变化时输出
- [任务:描述] 给玩家新任务时输出
- [线索:描述] 玩家获得新线索时输出
- [剧情:一句话概括] 每回合概括本段剧情
- [发现:类别|内容] 玩家获得新情报（类别如：人物、地点、秘密）
- [获得物品:名称|类型|描述] 给玩家物品，类型为 key/gift/consumable/clue 之一
- [选项1:文本] 到 [选项4:文本] 给玩家最多四个行动选项
- [触发事件:事件名|事件描述|成功率] 触发一次性特殊事件，成功率 0-100
- [事件选项1:文本|成功好感变化|失败好感变化] 事件的应对选项，最多四个
不要用代码块包裹标记，不要输出未定义的标记。`

// BootstrapPrompt is the fixed phase-1 prompt. The reply is parsed
// line-by-line into the session environment.
const BootstrapPrompt = `你是一个恋爱文字游戏的世界生成器。请创造一个有魅力、有层次的可攻略角色和她所在的世界。要求设定具体、有记忆点，避免套路化。

严格按以下格式输出，每行一个字段，不要输出其他内容：
名字：角色姓名
世界观：故事发生的世界，一句话
身份：角色的身份职业
性格：性格特点，一句话
喜好：喜欢的事物
厌恶：讨厌的事物
背景：成长背景，一到两句话
秘密：角色隐藏的秘密，玩家需要逐步发现
场景：初次相遇的场景
相遇原因：玩家与角色相遇的契机
开场白：角色对玩家说的第一句话`

// openingPromptFormat is the fixed phase-2 prompt, rendered with the
// freshly generated environment.
const openingPromptFormat = `你正在扮演「%s」。世界观：%s。身份：%s。性格：%s。

场景：%s
相遇原因：%s

请写出游戏的开场：描写场景与初次相遇，以你的开场白「%s」收尾，并给玩家两到四个行动选项。在正文中按控制标记格式输出 [场景:...]、[剧情:...] 和 [选项N:...] 标记。`

// unknownValue fills placeholders the session cannot provide yet.
const unknownValue = "（未知）"

// secretWithheld replaces the character secret until a secret
// discovery has occurred.
const secretWithheld = "（有一个尚未对玩家透露的秘密，剧情推进后才可逐步揭示）"

// BuildSystemPrompt renders the character's template (or the default)
// against the session's current state and appends the grammar block.
func BuildSystemPrompt(char *game.Character, sess *game.Session, historySummary string) string {
	template := DefaultSystemPromptTemplate
	if char != nil && char.PromptTemplate != "" {
		template = char.PromptTemplate
	}

	env := sess.Settings.Environment
	gs := sess.Settings.State

	name := env.Name
	if name == "" && char != nil {
		name = char.Name
	}

	secret := secretWithheld
	if len(gs.RevealedSecrets) > 0 && env.Secret != "" {
		secret = env.Secret
	}

	affectionLevel := game.LevelFor(game.AffectionLevels, sess.Affection)
	trustLevel := game.LevelFor(game.TrustLevels, sess.Trust)

	replacer := strings.NewReplacer(
		"{character_name}", orUnknown(name),
		"{world}", orUnknown(env.World),
		"{identity}", orUnknown(env.Identity),
		"{personality}", orUnknown(env.Personality),
		"{likes}", orUnknown(env.Likes),
		"{dislikes}", orUnknown(env.Dislikes),
		"{background}", orUnknown(env.Background),
		"{meeting_reason}", orUnknown(env.MeetingReason),
		"{secret}", secret,
		"{affection_value}", fmt.Sprintf("%d", sess.Affection),
		"{affection_level}", affectionLevel.Label,
		"{relationship}", affectionLevel.Label,
		"{trust_value}", fmt.Sprintf("%d", sess.Trust),
		"{trust_level}", trustLevel.Label,
		"{gold}", fmt.Sprintf("%d", sess.Gold),
		"{triggered_events}", listOrNone(sess.TriggeredEvents),
		"{current_scene}", orUnknown(gs.CurrentScene),
		"{current_task}", orUnknown(gs.CurrentTask),
		"{known_info}", knownInfoDigest(sess),
		"{story_progress}", storyProgressDigest(gs),
		"{history_summary}", orUnknown(historySummary),
	)

	return replacer.Replace(template) + GrammarPrompt
}

// BuildOpeningPrompt renders the phase-2 prompt for a generated
// environment.
func BuildOpeningPrompt(env game.Environment) string {
	return fmt.Sprintf(openingPromptFormat,
		env.Name, env.World, env.Identity, env.Personality,
		env.Scene, env.MeetingReason, env.Greeting)
}

// knownInfoDigest summarizes everything the player has learned so far:
// clues, known NPCs, visited places, discoveries and triggered events.
func knownInfoDigest(sess *game.Session) string {
	gs := sess.Settings.State
	var sb strings.Builder

	writeList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(label + "：" + strings.Join(items, "、") + "\n")
	}

	writeList("线索", gs.Clues)
	writeList("认识的人", gs.KnownNPCs)
	writeList("去过的地方", gs.VisitedPlaces)
	writeList("已触发事件", sess.TriggeredEvents)
	// Stable category order keeps the prompt identical across turns.
	categories := make([]string, 0, len(gs.DiscoveredInfo))
	for category := range gs.DiscoveredInfo {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		writeList(category, gs.DiscoveredInfo[category])
	}

	if sb.Len() == 0 {
		return "（暂无）"
	}
	return strings.TrimRight(sb.String(), "\n")
}

// storyProgressDigest returns the last three plot entries.
func storyProgressDigest(gs game.GameState) string {
	const window = 3
	plots := gs.PlotHistory
	if len(plots) == 0 {
		return "（故事刚刚开始）"
	}
	if len(plots) > window {
		plots = plots[len(plots)-window:]
	}
	var sb strings.Builder
	for i, p := range plots {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, p))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orUnknown(v string) string {
	if v == "" {
		return unknownValue
	}
	return v
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "（无）"
	}
	return strings.Join(items, "、")
}
