package gateway

import (
	"encoding/json"
	"sort"
	"strings"
)

// Template describes one improvement template offered by the backend.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PreviewURL  string `json:"preview_url"`
}

// UploadResult is the backend's response to a successful upload. The backend
// issues the durable identifier here; no identifier exists before this point.
type UploadResult struct {
	ID           string
	OriginalText string
	ImprovedText string
	DownloadURL  string
}

// ProgressReport carries a best-effort status line for an in-flight or
// finished job.
type ProgressReport struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type templatesEnvelope struct {
	Templates []Template `json:"templates"`
}

// uploadEnvelope tolerates both shapes the backend has shipped for
// improved_data: a plain string and an object keyed by section.
type uploadEnvelope struct {
	ID           string          `json:"file_id"`
	OriginalText string          `json:"original_text"`
	ImprovedData json.RawMessage `json:"improved_data"`
	DownloadURL  string          `json:"download_url"`
}

func decodeImprovedData(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", true
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, true
	}

	var sections map[string]string
	if err := json.Unmarshal(raw, &sections); err == nil {
		keys := make([]string, 0, len(sections))
		for key := range sections {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var builder strings.Builder
		for _, key := range keys {
			if builder.Len() > 0 {
				builder.WriteString("\n\n")
			}
			builder.WriteString(sections[key])
		}
		return builder.String(), true
	}

	return "", false
}
