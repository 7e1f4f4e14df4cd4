package reconcile

import (
	"fmt"

	"go-publicist/internal/model"
)

func outcomeNotice(k Key, o model.Outcome) model.Notice {
	n := model.Notice{PostID: k.PostID, Platform: k.Platform}
	name := model.DisplayName(k.Platform)
	switch {
	case o.Success:
		n.Level = model.LevelSuccess
		n.Message = fmt.Sprintf("Successfully published to %s!", name)
		if o.PostURL != "" {
			n.Message += " " + o.PostURL
		}
	case o.RequiresConfiguration:
		n.Level = model.LevelWarning
		n.Message = fmt.Sprintf("%s webhook not configured. Please add it to your .env file.", name)
	default:
		msg := o.ErrorMessage
		if msg == "" {
			msg = "Unknown error"
		}
		n.Level = model.LevelError
		n.Message = fmt.Sprintf("Failed to publish to %s: %s", name, msg)
	}
	return n
}

func batchNotice(postID model.PostID, br model.BatchResult) model.Notice {
	n := model.Notice{PostID: postID}
	total := br.SuccessCount + br.FailureCount
	switch {
	case total == 0:
		n.Level = model.LevelInfo
		n.Message = fmt.Sprintf("Post #%d: no platforms were published", postID)
	case br.FailureCount == 0:
		n.Level = model.LevelSuccess
		n.Message = fmt.Sprintf("Post #%d: successfully published to %d platform(s)!", postID, br.SuccessCount)
	case br.SuccessCount == 0:
		n.Level = model.LevelError
		n.Message = fmt.Sprintf("Post #%d: failed to publish to %d platform(s)", postID, br.FailureCount)
	default:
		n.Level = model.LevelWarning
		n.Message = fmt.Sprintf("Post #%d: published to %d of %d platform(s), %d failed", postID, br.SuccessCount, total, br.FailureCount)
	}
	return n
}
