package modelclient

import (
	"regexp"
	"strings"

	"github.com/kandev/androidctl/internal/common/apperrors"
)

// thinkPattern and answerPattern match <think>...</think> and <answer>...</answer>
// independently and tolerantly: either may be missing, surrounding
// whitespace and stray text outside the two blocks is ignored.
var (
	thinkPattern  = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	answerPattern = regexp.MustCompile(`(?s)<answer>(.*?)</answer>`)
)

// parseEnvelope extracts the thought and action text from a model reply
// body. A missing <think> block yields an empty thought; a missing
// <answer> block is a MalformedResponse error.
func parseEnvelope(body string) (thought, actionText string, err error) {
	if m := thinkPattern.FindStringSubmatch(body); m != nil {
		thought = strings.TrimSpace(m[1])
	}

	m := answerPattern.FindStringSubmatch(body)
	if m == nil {
		return thought, "", apperrors.MalformedResponseErr("model reply missing <answer> block")
	}
	actionText = strings.TrimSpace(m[1])
	if actionText == "" {
		return thought, "", apperrors.MalformedResponseErr("model reply has an empty <answer> block")
	}
	return thought, actionText, nil
}
