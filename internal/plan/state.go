package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"RetireRisk/internal/model"
)

// LoadState reads the plan state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.PlanState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PlanState{}, nil
		}
		return nil, err
	}
	var state model.PlanState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode plan state: %w", err)
	}
	return &state, nil
}

// SaveState writes the plan state to a JSON file.
func SaveState(filePath string, state *model.PlanState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	return os.WriteFile(filePath, data, 0644)
}
