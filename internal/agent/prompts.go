package agent

import (
	"fmt"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

var systemPrompts = map[v1.Language]string{
	v1.LanguageEnglish: "You drive an Android device to complete the user's task. " +
		"Each turn you receive a screenshot and the foreground app, and must reply " +
		`with exactly one call: do(action="<Verb>", ...) or finish(message="...").` +
		` Wrap your reasoning in <think></think> and your call in <answer></answer>.`,
	v1.LanguageChinese: "你正在操作一台安卓设备以完成用户的任务。每一轮你会收到一张截图和当前前台应用，" +
		`必须仅回复一次调用：do(action="<Verb>", ...) 或 finish(message="...")。` +
		"将推理过程放在 <think></think> 中，将调用放在 <answer></answer> 中。",
}

func systemPrompt(lang v1.Language) string {
	if p, ok := systemPrompts[lang]; ok {
		return p
	}
	return systemPrompts[v1.LanguageEnglish]
}

// screenInfo renders the short text accompanying each screenshot, telling
// the model what app currently has focus (or that it couldn't be
// determined).
func screenInfo(currentApp string, lang v1.Language) string {
	if lang == v1.LanguageChinese {
		if currentApp == "" {
			return "当前前台应用未知。"
		}
		return fmt.Sprintf("当前前台应用：%s。", currentApp)
	}
	if currentApp == "" {
		return "Current foreground app is unknown."
	}
	return fmt.Sprintf("Current foreground app: %s.", currentApp)
}
