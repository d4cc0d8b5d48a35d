package bus

import (
	"strings"

	"github.com/ceyewan/cartmesh/xerrors"
)

// 主题模式工具。
//
// 对外暴露 AMQP 风格的模式语法（`*` 匹配单段，`#` 匹配尾部任意段），
// NATS 后端在订阅时将其翻译为 NATS 通配符（`*` / `>`）。

// ValidatePattern 校验主题模式
//
// 合法模式由点分隔的非空段组成，段可以是字面量、`*`，
// 或者出现在末尾的 `#`。
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return xerrors.Wrapf(ErrInvalidPattern, "empty pattern")
	}

	tokens := strings.Split(pattern, ".")
	for i, tok := range tokens {
		switch {
		case tok == "":
			return xerrors.Wrapf(ErrInvalidPattern, "empty token in %q", pattern)
		case tok == "#" && i != len(tokens)-1:
			return xerrors.Wrapf(ErrInvalidPattern, "# must be the last token in %q", pattern)
		case strings.ContainsAny(tok, "*#") && tok != "*" && tok != "#":
			return xerrors.Wrapf(ErrInvalidPattern, "wildcard must occupy a whole token in %q", pattern)
		}
	}
	return nil
}

// TranslatePattern 将 AMQP 风格模式翻译为 NATS 主题语法
//
// `*` 两边语义一致直接保留，尾部 `#` 翻译为 NATS 的 `>`。
func TranslatePattern(pattern string) (string, error) {
	if err := ValidatePattern(pattern); err != nil {
		return "", err
	}
	if strings.HasSuffix(pattern, ".#") {
		return strings.TrimSuffix(pattern, "#") + ">", nil
	}
	if pattern == "#" {
		return ">", nil
	}
	return pattern, nil
}

// MatchTopic 判断路由键是否匹配主题模式
//
// 内存后端的投递判断。`#` 匹配尾部零个或多个段，`*` 恰好匹配一段。
func MatchTopic(pattern, topic string) bool {
	if ValidatePattern(pattern) != nil || topic == "" {
		return false
	}

	ptoks := strings.Split(pattern, ".")
	ttoks := strings.Split(topic, ".")

	for i, ptok := range ptoks {
		if ptok == "#" {
			// 尾部任意段（包括零段）
			return true
		}
		if i >= len(ttoks) {
			return false
		}
		if ptok != "*" && ptok != ttoks[i] {
			return false
		}
	}
	return len(ptoks) == len(ttoks)
}
