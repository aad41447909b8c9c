package app

import (
	"os/exec"
	"runtime"
	"strings"
)

// clipboardTool is a clipboard writer and the arguments that make it read
// stdin into the system clipboard.
type clipboardTool struct {
	name string
	args []string
}

var unixClipboardTools = []clipboardTool{
	{name: "pbcopy"},
	{name: "wl-copy"},
	{name: "xclip", args: []string{"-selection", "clipboard"}},
	{name: "xsel", args: []string{"--clipboard", "--input"}},
}

func detectClipboard() ([]string, bool) {
	return detectClipboardInternal(runtime.GOOS, exec.LookPath)
}

func detectClipboardInternal(goos string, lookPath func(string) (string, error)) ([]string, bool) {
	if strings.EqualFold(goos, "windows") {
		for _, candidate := range []string{"clip.exe", "clip"} {
			if path, err := lookPath(candidate); err == nil && path != "" {
				return []string{path}, true
			}
		}
		for _, ps := range []string{"powershell", "powershell.exe", "pwsh"} {
			if path, err := lookPath(ps); err == nil && path != "" {
				return []string{path, "-NoLogo", "-NoProfile", "-Command", "$input | Set-Clipboard"}, true
			}
		}
	}

	for _, tool := range unixClipboardTools {
		if resolved, err := lookPath(tool.name); err == nil && resolved != "" {
			return append([]string{resolved}, tool.args...), true
		}
	}

	return nil, false
}
