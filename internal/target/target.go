package target

import "runtime"

// Resource is a file placed alongside a target's launcher inside the bundle.
type Resource struct {
	// Source is the path of the file, relative to the application root unless absolute.
	Source string
	// Dest is the destination directory relative to the launcher ("." for the top level).
	Dest string
	// Binary marks native executables, which the bundler must not scan as data.
	Binary bool
}

// Target describes one executable to assemble.
type Target struct {
	// Name is the launcher name (platform extension excluded).
	Name string
	// Entry is the script entry point, relative to the application root.
	Entry string
	// Windowed suppresses the console window on platforms that would show one.
	Windowed bool
	// HiddenImports are runtime-only imports static analysis cannot discover.
	// The assembler refuses to exclude anything listed here.
	HiddenImports []string
	// Resources are data files and binaries copied next to the launcher.
	Resources []Resource
	// Icons maps GOOS to an icon file relative to the application root.
	// A target with no icon for the current platform is built without one.
	Icons map[string]string
	// ExtraExclusions are packages this target drops on top of the global set.
	ExtraExclusions []string
}

// Executable names and their process names used by install-time kill guards.
const (
	BridgeName  = "ScriptCompilerBridge"
	TrackerName = "tracker"
)

// Bridge describes the foreground executable: the local server plus tray icon.
// ffmpegPath is the provisioned media-processor binary embedded into the bundle;
// the bridge prepends its directory to PATH at startup.
func Bridge(ffmpegPath string) Target {
	return Target{
		Name:     BridgeName,
		Entry:    "main.py",
		Windowed: true,
		HiddenImports: []string{
			"uvicorn.logging",
			"uvicorn.loops.auto",
			"uvicorn.protocols.http.auto",
			"uvicorn.protocols.websockets.auto",
			"uvicorn.lifespan.on",
			"pystray._win32",
			"pystray._darwin",
			"PIL.Image",
		},
		Resources: []Resource{
			{Source: "favicon.png", Dest: "."},
			{Source: ffmpegPath, Dest: "ffmpeg", Binary: true},
		},
		Icons: map[string]string{
			"windows": "assets/app.ico",
			"darwin":  "assets/app.icns",
		},
	}
}

// Tracker describes the headless companion subprocess. It never touches the
// GUI or server stack, so those are excluded on top of the global set.
func Tracker() Target {
	return Target{
		Name:     TrackerName,
		Entry:    "tracker.py",
		Windowed: true,
		HiddenImports: []string{
			"cv2",
			"numpy",
		},
		ExtraExclusions: []string{
			"fastapi",
			"uvicorn",
			"starlette",
			"pydantic",
			"pystray",
			"PIL",
			"websockets",
		},
	}
}

// ProcessNames returns the platform process names of both executables,
// used by kill-before-install and kill-before-clean guards.
func ProcessNames() []string {
	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}

	return []string{BridgeName + ext, TrackerName + ext}
}
