package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/telemacy/bridge-packager/internal/logger"
)

// AppBundleOptions describes the macOS application bundle wrapped around a Bundle.
type AppBundleOptions struct {
	// Name is the bundle display name (produces <Name>.app).
	Name string
	// Identifier is the reverse-DNS bundle identifier.
	Identifier string
	// Version is the release version embedded into the bundle metadata.
	Version string
	// Executable is the launcher started when the bundle is opened.
	Executable string
	// Icon is an optional .icns file copied into Contents/Resources.
	Icon string
}

// infoPlist declares the bundle metadata. LSUIElement keeps the merged
// process out of the Dock and task switcher; the application presents itself
// through its menu-bar icon only.
const infoPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleName</key>
	<string>{{.Name}}</string>
	<key>CFBundleDisplayName</key>
	<string>{{.Name}}</string>
	<key>CFBundleIdentifier</key>
	<string>{{.Identifier}}</string>
	<key>CFBundleExecutable</key>
	<string>{{.Executable}}</string>
	<key>CFBundleShortVersionString</key>
	<string>{{.Version}}</string>
	<key>CFBundleVersion</key>
	<string>{{.Version}}</string>
	<key>CFBundlePackageType</key>
	<string>APPL</string>
{{- if .Icon}}
	<key>CFBundleIconFile</key>
	<string>{{.IconBase}}</string>
{{- end}}
	<key>LSUIElement</key>
	<true/>
	<key>NSHighResolutionCapable</key>
	<true/>
</dict>
</plist>
`

var plistTemplate = template.Must(template.New("info-plist").Parse(infoPlist))

// WrapApp wraps the merged bundle into a <Name>.app structure beside it and
// returns the .app path. The bundle tree becomes Contents/MacOS.
func WrapApp(ctx context.Context, b *Bundle, opts AppBundleOptions) (string, error) {
	parent := filepath.Dir(b.Dir)
	appDir := filepath.Join(parent, opts.Name+".app")
	contents := filepath.Join(appDir, "Contents")
	macOS := filepath.Join(contents, "MacOS")
	resources := filepath.Join(contents, "Resources")

	if err := os.MkdirAll(resources, 0o755); err != nil {
		return "", fmt.Errorf("create app bundle skeleton: %w", err)
	}

	// The merged tree moves wholesale; nothing refers to its old location.
	if err := os.Rename(b.Dir, macOS); err != nil {
		return "", fmt.Errorf("move bundle into app: %w", err)
	}

	b.Dir = macOS

	iconBase := ""

	if opts.Icon != "" {
		iconBase = filepath.Base(opts.Icon)
		if err := copyFile(opts.Icon, filepath.Join(resources, iconBase)); err != nil {
			return "", fmt.Errorf("copy bundle icon: %w", err)
		}
	}

	plist, err := os.Create(filepath.Join(contents, "Info.plist"))
	if err != nil {
		return "", fmt.Errorf("create Info.plist: %w", err)
	}

	data := struct {
		AppBundleOptions
		IconBase string
	}{AppBundleOptions: opts, IconBase: iconBase}

	if err = plistTemplate.Execute(plist, data); err != nil {
		_ = plist.Close()
		return "", fmt.Errorf("render Info.plist: %w", err)
	}

	if err = plist.Close(); err != nil {
		return "", fmt.Errorf("write Info.plist: %w", err)
	}

	logger.InfoKV(ctx, "App bundle wrapped", "path", appDir)

	return appDir, nil
}
