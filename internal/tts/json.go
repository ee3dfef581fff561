package tts

import (
	"encoding/json"
	"fmt"
)

// parseJSON decodes data into target.
func parseJSON(data []byte, target any) error {
	err := json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}
