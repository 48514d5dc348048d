package session

import (
	"encoding/json"
	"strings"
)

// createIDKeys is the ordered set of identifier keys checked when
// recording a create/bootstrap success.
var createIDKeys = []string{"id", "game_id", "player_id", "app_id", "session_id"}

// RecordCallOutcome implements post-call bookkeeping: on a
// successful call, parse resultText as JSON and update idsByKey, mark any
// gating prerequisite called, and record create/bootstrap identifiers
// under the tool's prefix. Called with isError=true is a no-op.
func RecordCallOutcome(state *State, tool ToolInfo, resultText string, isError bool, prereqs Prerequisites) {
	if isError {
		return
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(resultText), &parsed); err == nil {
		for key, value := range parsed {
			if key != "id" && !strings.HasSuffix(key, "_id") {
				continue
			}
			str, ok := value.(string)
			if !ok {
				continue
			}
			state.RecordID(key, str)
		}
	}

	if _, isGate := prereqs[tool.OriginalName]; isGate {
		state.MarkPrerequisiteCalled(tool.OriginalName)
	}

	lower := strings.ToLower(tool.WireName)
	if strings.Contains(lower, "create") || strings.Contains(lower, "bootstrap") {
		prefix := ExtractPrefix(tool.OriginalName)
		var ids []string
		if parsed != nil {
			for _, key := range createIDKeys {
				if v, ok := parsed[key]; ok {
					if str, ok := v.(string); ok {
						ids = append(ids, str)
					}
				}
			}
		}
		state.RecordCreated(prefix, ids)
	}
}
