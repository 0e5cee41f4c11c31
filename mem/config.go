package mem

import (
	"encoding/json"
	"fmt"
	"os"
)

// WaitConfig holds the bus wait states charged per access.
type WaitConfig struct {
	// NonSequentialAccess is the cycle cost of an access that starts a
	// new burst. Default: 1 cycle.
	NonSequentialAccess uint64 `json:"non_sequential_access"`

	// SequentialAccess is the cycle cost of an access that continues
	// the previous burst at the next address. Default: 1 cycle.
	SequentialAccess uint64 `json:"sequential_access"`
}

// DefaultWaitConfig returns a WaitConfig where every access costs one
// cycle.
func DefaultWaitConfig() *WaitConfig {
	return &WaitConfig{
		NonSequentialAccess: 1,
		SequentialAccess:    1,
	}
}

// LoadWaitConfig loads a WaitConfig from a JSON file. Fields absent
// from the file keep their defaults.
func LoadWaitConfig(path string) (*WaitConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wait config file: %w", err)
	}

	config := DefaultWaitConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse wait config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a WaitConfig to a JSON file.
func (c *WaitConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize wait config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write wait config file: %w", err)
	}

	return nil
}

// Validate checks that all wait states are valid (> 0).
func (c *WaitConfig) Validate() error {
	if c.NonSequentialAccess == 0 {
		return fmt.Errorf("non_sequential_access must be > 0")
	}
	if c.SequentialAccess == 0 {
		return fmt.Errorf("sequential_access must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the WaitConfig.
func (c *WaitConfig) Clone() *WaitConfig {
	return &WaitConfig{
		NonSequentialAccess: c.NonSequentialAccess,
		SequentialAccess:    c.SequentialAccess,
	}
}
