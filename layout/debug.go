package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将一个批次的版面方案输出为 JSON，便于调试或可视化。
func WriteDebugJSON(plans []NamedPlan, path string) error {
	if len(plans) == 0 {
		return nil
	}
	type entry struct {
		NamedPlan
		Lines []PlacedLine `json:"lines"`
	}
	out := make([]entry, 0, len(plans))
	for _, p := range plans {
		out = append(out, entry{NamedPlan: p, Lines: p.Plan.Lines()})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
