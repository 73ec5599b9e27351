package generator

import (
	"encoding/json"
	"strings"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// ExtractScores pulls a trailing JSON score object out of generated text.
// Review backends are instructed to end their reply with a single-line JSON
// object such as {"safety": 0.9}; everything before it is prose. Returns the
// prose (trimmed) and the recognized scores. Unknown keys are ignored; if no
// valid object is found the full text is returned with nil scores.
func ExtractScores(text string) (string, map[blackboard.ScoreName]float64) {
	start := strings.LastIndex(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(text), nil
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return strings.TrimSpace(text), nil
	}

	scores := make(map[blackboard.ScoreName]float64)
	for key, value := range raw {
		switch name := blackboard.ScoreName(strings.ToLower(key)); name {
		case blackboard.ScoreSafety, blackboard.ScoreEmpathy, blackboard.ScoreClinical:
			scores[name] = value
		}
	}

	if len(scores) == 0 {
		return strings.TrimSpace(text), nil
	}

	return strings.TrimSpace(text[:start]), scores
}
