package modelclient

import (
	"time"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// computeTimeout implements the adaptive timeout formula:
//
//	min(maxTimeout, baseTimeout + contentFactor*totalTextChars + imageFactor*imageCount)
func computeTimeout(cfg v1.ModelConfig, messages []v1.Message) time.Duration {
	var textChars, images int
	for _, m := range messages {
		textChars += m.TextLen()
		images += m.ImageCount()
	}

	timeout := cfg.BaseTimeout + time.Duration(textChars)*cfg.ContentFactor + time.Duration(images)*cfg.ImageFactor
	if timeout > cfg.MaxTimeout {
		return cfg.MaxTimeout
	}
	return timeout
}

// growTimeout extends a per-attempt timeout by cfg.RetryGrowthFactor,
// capped at cfg.MaxTimeout.
func growTimeout(cfg v1.ModelConfig, current time.Duration) time.Duration {
	grown := time.Duration(float64(current) * cfg.RetryGrowthFactor)
	if grown > cfg.MaxTimeout {
		return cfg.MaxTimeout
	}
	if grown < current {
		return current
	}
	return grown
}
