package startup

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"clip-stacker/internal/logging"
)

// Tool is the availability of an external binary.
type Tool struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
	Required  bool   `json:"required"`
}

// CheckTool resolves bin on PATH and reads the first line of its version
// output.
func CheckTool(name, bin string, required bool, versionArgs ...string) Tool {
	t := Tool{Name: name, Required: required}

	path, err := exec.LookPath(bin)
	if err != nil {
		return t
	}
	t.Path = path
	t.Available = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, versionArgs...).Output()
	if err != nil {
		logging.Debug("  %s version check failed: %v", name, err)
		return t
	}
	if line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n"); line != "" {
		t.Version = strings.TrimSpace(line)
	}
	return t
}

// CheckTools checks ffmpeg, ffprobe, yt-dlp and a headless browser and logs
// the result. ffmpeg and ffprobe are required for composition.
func CheckTools(c *Config, chromePath string) []Tool {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXTERNAL TOOLS")
	logging.Info("------------------------------------------------------------")

	tools := []Tool{
		CheckTool("ffmpeg", c.FFmpegPath, true, "-version"),
		CheckTool("ffprobe", c.FFprobePath, true, "-version"),
		CheckTool("yt-dlp", c.YTDLPPath, false, "--version"),
	}
	chrome := Tool{Name: "chrome"}
	if chromePath != "" {
		chrome.Path = chromePath
		chrome.Available = true
	}
	tools = append(tools, chrome)

	for _, t := range tools {
		switch {
		case t.Available && t.Version != "":
			logging.Info("  [OK] %-8s %s", t.Name, t.Version)
		case t.Available:
			logging.Info("  [OK] %-8s %s", t.Name, t.Path)
		case t.Required:
			logging.Warn("  [!!] %-8s not found, jobs will fail during composition", t.Name)
		default:
			logging.Info("  [--] %-8s not found, dependent strategies will be skipped", t.Name)
		}
	}
	return tools
}

// MissingRequired returns the names of required tools that are unavailable.
func MissingRequired(tools []Tool) []string {
	var missing []string
	for _, t := range tools {
		if t.Required && !t.Available {
			missing = append(missing, t.Name)
		}
	}
	return missing
}
