package domain

import (
	"sort"
	"strings"
)

// ParsedCommand is the result of parsing one inbound message. Immutable;
// produced once per message and consumed by the router.
type ParsedCommand struct {
	Provider string
	Layer    Layer
	Message  string
	Explicit bool
}

// Defaults applied when a message carries no provider prefix.
const (
	DefaultProvider = "claude"
	DefaultLayer    = LayerAPI
)

type prefixTarget struct {
	provider string
	layer    Layer
}

// prefixMapping maps provider prefixes to their (provider, layer) target.
var prefixMapping = map[string]prefixTarget{
	"@claude-api": {"claude", LayerAPI},
	"@claude":     {"claude", LayerAPI},
	"@gemini-api": {"gemini", LayerAPI},
	"@gemini":     {"gemini", LayerAPI},
	"@openai":     {"openai", LayerAPI},
	"@gpt":        {"openai", LayerAPI},
	"@claude-cli": {"claude", LayerCLI},
	"@code":       {"claude", LayerCLI},
	"@gemini-cli": {"gemini", LayerCLI},
}

// sortedPrefixes holds the prefix table ordered longest-first so that
// @claude-cli matches before @claude.
var sortedPrefixes = func() []string {
	prefixes := make([]string, 0, len(prefixMapping))
	for prefix := range prefixMapping {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return prefixes
}()

// cliKeywords signal that a message likely needs the CLI layer. Used as the
// non-AI fallback for intent classification.
var cliKeywords = []string{
	"查看代码", "view code", "分析代码", "analyze code", "代码库", "codebase",
	"修改文件", "modify file", "读取文件", "read file", "写入文件", "write file",
	"创建文件", "create file",
	"执行命令", "execute command", "运行脚本", "run script",
	"分析项目", "analyze project", "项目结构", "project structure",
}

// ParseCommand extracts an explicit backend selection from message text.
// When a known prefix starts the message the prefix is stripped (case of the
// remaining text preserved) and Explicit is set; otherwise the defaults are
// returned with the message unmodified.
func ParseCommand(message string) ParsedCommand {
	lower := strings.ToLower(message)
	for _, prefix := range sortedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			target := prefixMapping[prefix]
			return ParsedCommand{
				Provider: target.provider,
				Layer:    target.layer,
				Message:  strings.TrimSpace(message[len(prefix):]),
				Explicit: true,
			}
		}
	}
	return ParsedCommand{
		Provider: DefaultProvider,
		Layer:    DefaultLayer,
		Message:  message,
		Explicit: false,
	}
}

// DetectCLIKeywords reports whether the message contains any CLI keyword,
// matched case-insensitively as a substring.
func DetectCLIKeywords(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range cliKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
