package steptracker

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// screenshotKey builds the BlobStore key for one step's screenshot, nesting
// the file under the task so all of a task's screenshots share the
// "task/<taskId>/" key prefix, and stamping the filename with the capture time plus an
// 8-hex-char UUID suffix so concurrent writers never collide.
func screenshotKey(taskID string, stepNumber int) string {
	now := time.Now()
	suffix := uuid.NewString()[:8]
	name := fmt.Sprintf("screenshot_%s_%s.png", now.Format("20060102_150405"), suffix)
	return fmt.Sprintf("task/%s/step/%d_%s", taskID, stepNumber, name)
}
