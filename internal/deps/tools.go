package deps

import (
	"fmt"
	"strings"

	"scdmix/internal/config"
	"scdmix/internal/services"
)

// ToolRequirements lists the binaries an import run needs for cfg.
func ToolRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			ConfigKey:   "tools.ffmpeg",
			Description: "Decodes, filters, and resamples source audio",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			ConfigKey:   "tools.ffprobe",
			Description: "Inspects sample rate and channel layout of sources",
		},
	}
}

// RequireAvailable returns a configuration error naming every required
// binary that is missing. Optional requirements are ignored.
func RequireAvailable(statuses []Status) error {
	var missing []string
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "deps", "check binaries", strings.Join(missing, ", "), nil)
}
