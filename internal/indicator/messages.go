package indicator

import (
	"fmt"
	"strings"

	"github.com/rbright/drai/internal/config"
	"github.com/rbright/drai/internal/consultation"
)

type messages struct {
	recording  string
	processing string
	errorText  string
	// review formats the ready notification for a flag count.
	review func(flags int) string
}

// indicatorMessages follows the note language so the notification matches
// what the clinician is about to read.
func indicatorMessages(lang consultation.Language) messages {
	switch lang {
	case consultation.LanguageTraditionalChinese:
		return messages{
			recording:  "問診錄音中…",
			processing: "問診分析中…",
			errorText:  "問診分析失敗",
			review: func(flags int) string {
				if flags == 0 {
					return "問診紀錄已完成"
				}
				return fmt.Sprintf("問診紀錄已完成：%d 項待確認", flags)
			},
		}
	default:
		return messages{
			recording:  "Recording consultation…",
			processing: "Analyzing consultation…",
			errorText:  "Consultation analysis failed",
			review: func(flags int) string {
				switch flags {
				case 0:
					return "Consultation ready for review"
				case 1:
					return "Consultation ready: 1 flag to check"
				default:
					return fmt.Sprintf("Consultation ready: %d flags to check", flags)
				}
			},
		}
	}
}

// withOverrides applies non-empty text_* settings. text_review may carry one %d
// for the flag count.
func (m messages) withOverrides(cfg config.IndicatorConfig) messages {
	if text := strings.TrimSpace(cfg.TextRecording); text != "" {
		m.recording = text
	}
	if text := strings.TrimSpace(cfg.TextProcessing); text != "" {
		m.processing = text
	}
	if text := strings.TrimSpace(cfg.TextError); text != "" {
		m.errorText = text
	}
	if text := strings.TrimSpace(cfg.TextReview); text != "" {
		m.review = func(flags int) string {
			if strings.Contains(text, "%d") {
				return fmt.Sprintf(text, flags)
			}
			return text
		}
	}
	return m
}
