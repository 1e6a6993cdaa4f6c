// Package config provides configuration loading and validation for the
// VAD segmentation service. It handles YAML-based static configuration plus
// a pointer-field Options delta type used for runtime partial updates.
package config
 