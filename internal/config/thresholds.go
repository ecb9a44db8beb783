package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

// LoadThresholds reads default thresholds from a YAML file. Keys left out
// keep the built-in defaults; a missing file is not an error.
//
//	click_threshold: 15
//	acos_threshold: 0.35
func LoadThresholds(path string) (models.Thresholds, error) {
	t := models.DefaultThresholds()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return models.DefaultThresholds(), fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

type thresholdOverrides struct {
	ClickThreshold    *float64 `json:"click_threshold"`
	ACOSThreshold     *float64 `json:"acos_threshold"`
	CVRThreshold      *float64 `json:"cvr_threshold"`
	LowClickThreshold *float64 `json:"low_click_threshold"`
	OrderThreshold    *float64 `json:"order_threshold"`
}

// MergeThresholds applies a partial JSON override on top of base. Count
// thresholds sent as decimals are truncated to integers.
func MergeThresholds(base models.Thresholds, overrides string) (models.Thresholds, error) {
	if overrides == "" {
		return base, nil
	}
	var o thresholdOverrides
	if err := json.Unmarshal([]byte(overrides), &o); err != nil {
		return base, fmt.Errorf("invalid thresholds JSON: %w", err)
	}
	t := base
	if o.ClickThreshold != nil {
		t.ClickThreshold = int(*o.ClickThreshold)
	}
	if o.ACOSThreshold != nil {
		t.ACOSThreshold = *o.ACOSThreshold
	}
	if o.CVRThreshold != nil {
		t.CVRThreshold = *o.CVRThreshold
	}
	if o.LowClickThreshold != nil {
		t.LowClickThreshold = int(*o.LowClickThreshold)
	}
	if o.OrderThreshold != nil {
		t.OrderThreshold = int(*o.OrderThreshold)
	}
	return t, nil
}
